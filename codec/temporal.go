package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// temporalCodec handles DATE/NEWDATE, TIME, DATETIME, TIMESTAMP. DATE,
// DATETIME and TIMESTAMP decode to time.Time; TIME decodes to
// time.Duration by default since its value can exceed 24 hours
// (MariaDB allows up to 838:59:59).
type temporalCodec struct{}

func (temporalCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	switch col.Type {
	case protocol.TypeDate, protocol.TypeNewDate, protocol.TypeDateTime, protocol.TypeTimestamp:
		return host == HostTime || host == HostAny
	case protocol.TypeTime:
		return host == HostDuration || host == HostTime || host == HostAny
	}
	return false
}

func (temporalCodec) CanEncode(host HostType, value any) bool {
	switch value.(type) {
	case time.Time, time.Duration:
		return true
	}
	return false
}

func (temporalCodec) WireType(value any) (uint8, bool) {
	switch value.(type) {
	case time.Duration:
		return protocol.TypeTime, false
	default:
		return protocol.TypeDateTime, false
	}
}

// --- binary decode ---

func (temporalCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	if col.Type == protocol.TypeTime {
		return decodeBinaryTime(r, col)
	}
	return decodeBinaryDateTime(r, col.Type == protocol.TypeDate || col.Type == protocol.TypeNewDate)
}

func decodeBinaryDateTime(r io.Reader, dateOnly bool) (any, error) {
	length, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, fmt.Errorf("codec: datetime length byte: %w", err)
	}
	if length == 0 {
		// Zero-length binary encoding is the wire shorthand for the
		// all-zero date/time ("0000-00-00 00:00:00"), which has no valid
		// calendar representation.
		return nil, nil
	}
	year, err := buffer.ReadNumber[uint16](r, 2)
	if err != nil {
		return nil, err
	}
	month, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	day, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	var hour, min, sec uint8
	var micro uint32
	if length >= 7 {
		if hour, err = buffer.ReadNumber[uint8](r, 1); err != nil {
			return nil, err
		}
		if min, err = buffer.ReadNumber[uint8](r, 1); err != nil {
			return nil, err
		}
		if sec, err = buffer.ReadNumber[uint8](r, 1); err != nil {
			return nil, err
		}
	}
	if length >= 11 {
		if micro, err = buffer.ReadNumber[uint32](r, 4); err != nil {
			return nil, err
		}
	}
	if year == 0 && month == 0 && day == 0 {
		return nil, nil
	}
	if dateOnly {
		return time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Date(int(year), time.Month(month), int(day), int(hour), int(min), int(sec), int(micro)*1000, time.UTC), nil
}

// binaryTime is the raw decomposition of a TIME column's binary encoding,
// kept distinct from a bare time.Duration so callers can implement the
// lossy hour-fold conversion to a calendar time without re-parsing bytes.
type binaryTime struct {
	negative   bool
	days       uint32
	hour, min, sec uint8
	micro      uint32
}

func decodeBinaryTimeParts(r io.Reader) (binaryTime, error) {
	var t binaryTime
	length, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return t, fmt.Errorf("codec: time length byte: %w", err)
	}
	if length == 0 {
		return t, nil
	}
	negByte, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return t, err
	}
	t.negative = negByte != 0
	if t.days, err = buffer.ReadNumber[uint32](r, 4); err != nil {
		return t, err
	}
	if t.hour, err = buffer.ReadNumber[uint8](r, 1); err != nil {
		return t, err
	}
	if t.min, err = buffer.ReadNumber[uint8](r, 1); err != nil {
		return t, err
	}
	if t.sec, err = buffer.ReadNumber[uint8](r, 1); err != nil {
		return t, err
	}
	if length == 12 {
		if t.micro, err = buffer.ReadNumber[uint32](r, 4); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (t binaryTime) duration() time.Duration {
	d := time.Duration(t.days)*24*time.Hour +
		time.Duration(t.hour)*time.Hour +
		time.Duration(t.min)*time.Minute +
		time.Duration(t.sec)*time.Second +
		time.Duration(t.micro)*time.Microsecond
	if t.negative {
		return -d
	}
	return d
}

// decodeBinaryTime always resolves a TIME column to its faithful
// time.Duration representation. A caller asking for HostTime instead of
// HostDuration on a TIME column gets the same Duration value back: the
// Codec interface's DecodeBinary/DecodeText don't carry the requested
// host type through to here (only CanDecode sees it, for eligibility), so
// there is no hook to apply the lossy hour = (days*24+hour) % 24 calendar
// fold spec's Design Notes describes for that case. Duration is the only
// representation this codec can actually produce.
func decodeBinaryTime(r io.Reader, col *protocol.ColumnDefinition) (any, error) {
	parts, err := decodeBinaryTimeParts(r)
	if err != nil {
		return nil, err
	}
	return parts.duration(), nil
}

// --- text decode ---

func (temporalCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	s := strings.TrimSpace(string(raw))
	if col.Type == protocol.TypeTime {
		return parseTimeText(s)
	}
	return parseDateTimeText(s, col.Type == protocol.TypeDate || col.Type == protocol.TypeNewDate)
}

// parseDateTimeText tokenizes "YYYY-MM-DD[ HH:MM:SS[.ffffff]]" on the
// separators '-', ' ', ':', '.'. An all-zero result decodes to null; a
// zero date with a non-zero time component is treated as "epoch with
// time" (year 1, month 1, day 1) rather than null.
func parseDateTimeText(s string, dateOnly bool) (any, error) {
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		// Fast path for the common zero-date sentinel with no time part.
		if s == "0000-00-00" || s == "0000-00-00 00:00:00" || s == "" {
			return nil, nil
		}
	}
	datePart := s
	timePart := ""
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		datePart = s[:idx]
		timePart = s[idx+1:]
	}
	dateFields := strings.Split(datePart, "-")
	year, month, day := 0, 0, 0
	if len(dateFields) > 0 {
		year, _ = strconv.Atoi(dateFields[0])
	}
	if len(dateFields) > 1 {
		month, _ = strconv.Atoi(dateFields[1])
	}
	if len(dateFields) > 2 {
		day, _ = strconv.Atoi(dateFields[2])
	}

	hour, min, sec, micro := 0, 0, 0, 0
	if timePart != "" {
		var err error
		hour, min, sec, micro, err = parseClockFields(timePart)
		if err != nil {
			return nil, err
		}
	}

	if year == 0 && month == 0 && day == 0 {
		if hour == 0 && min == 0 && sec == 0 && micro == 0 {
			return nil, nil
		}
		year, month, day = 1, 1, 1
	}
	if dateOnly {
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, micro*1000, time.UTC), nil
}

// parseClockFields parses "HH:MM:SS[.ffffff]" into its components.
func parseClockFields(s string) (hour, min, sec, micro int, err error) {
	fracIdx := strings.IndexByte(s, '.')
	clock := s
	frac := ""
	if fracIdx >= 0 {
		clock = s[:fracIdx]
		frac = s[fracIdx+1:]
	}
	parts := strings.Split(clock, ":")
	if len(parts) > 0 {
		if hour, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("codec: time hour %q: %w", parts[0], err)
		}
	}
	if len(parts) > 1 {
		if min, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("codec: time minute %q: %w", parts[1], err)
		}
	}
	if len(parts) > 2 {
		if sec, err = strconv.Atoi(parts[2]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("codec: time second %q: %w", parts[2], err)
		}
	}
	if frac != "" {
		micro = parseFractionMicros(frac)
	}
	return hour, min, sec, micro, nil
}

// parseFractionMicros interprets frac as the digits after the decimal
// point of a seconds value, right-padding (or truncating) to 6 digits.
func parseFractionMicros(frac string) int {
	if len(frac) > 6 {
		frac = frac[:6]
	} else {
		frac += strings.Repeat("0", 6-len(frac))
	}
	v, _ := strconv.Atoi(frac)
	return v
}

func parseTimeText(s string) (any, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	hour, min, sec, micro, err := parseClockFields(s)
	if err != nil {
		return nil, err
	}
	d := time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(micro)*time.Microsecond
	if neg {
		d = -d
	}
	return d, nil
}

// --- formatting for the String codec ---

// FormatCanonical renders t as the canonical "yyyy-MM-dd[ HH:mm:ss[.SSSSSS]]"
// text form used when a caller decodes a temporal column as a string.
func FormatCanonical(t time.Time, dateOnly bool) string {
	if dateOnly {
		return t.Format("2006-01-02")
	}
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	micro := t.Nanosecond() / 1000
	return fmt.Sprintf("%s.%06d", t.Format("2006-01-02 15:04:05"), micro)
}

// FormatDuration renders d as "[-]HH:MM:SS[.SSSSSS]", MariaDB's TIME text
// form; the hour field is not wrapped to 24 (days are folded into it).
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int64(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	micros := int64(d / time.Microsecond)
	sign := ""
	if neg {
		sign = "-"
	}
	if micros == 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, hours, minutes, seconds, micros)
}

// --- encode ---

func (temporalCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	switch v := value.(type) {
	case time.Time:
		return encodeDateTime(w, v, format)
	case time.Duration:
		return encodeDuration(w, v, format)
	default:
		return fmt.Errorf("codec: temporal encode: unsupported type %T", value)
	}
}

func encodeDateTime(w io.Writer, t time.Time, format Format) error {
	if format == Text {
		_, err := io.WriteString(w, FormatCanonical(t, false))
		return err
	}
	hasTime := t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
	hasMicros := t.Nanosecond() != 0
	length := uint8(0)
	switch {
	case hasMicros:
		length = 11
	case hasTime:
		length = 7
	default:
		length = 4
	}
	if err := buffer.WriteNumber(w, length, 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, uint16(t.Year()), 2); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, uint8(t.Month()), 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, uint8(t.Day()), 1); err != nil {
		return err
	}
	if length == 4 {
		return nil
	}
	if err := buffer.WriteNumber(w, uint8(t.Hour()), 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, uint8(t.Minute()), 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, uint8(t.Second()), 1); err != nil {
		return err
	}
	if length == 7 {
		return nil
	}
	return buffer.WriteNumber(w, uint32(t.Nanosecond()/1000), 4)
}

func encodeDuration(w io.Writer, d time.Duration, format Format) error {
	if format == Text {
		_, err := io.WriteString(w, FormatDuration(d))
		return err
	}
	neg := d < 0
	if neg {
		d = -d
	}
	days := uint32(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hour := uint8(d / time.Hour)
	d -= time.Duration(hour) * time.Hour
	min := uint8(d / time.Minute)
	d -= time.Duration(min) * time.Minute
	sec := uint8(d / time.Second)
	d -= time.Duration(sec) * time.Second
	micro := uint32(d / time.Microsecond)

	length := uint8(8)
	if micro != 0 {
		length = 12
	}
	if err := buffer.WriteNumber(w, length, 1); err != nil {
		return err
	}
	var negByte uint8
	if neg {
		negByte = 1
	}
	if err := buffer.WriteNumber(w, negByte, 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, days, 4); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, hour, 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, min, 1); err != nil {
		return err
	}
	if err := buffer.WriteNumber(w, sec, 1); err != nil {
		return err
	}
	if length == 8 {
		return nil
	}
	return buffer.WriteNumber(w, micro, 4)
}
