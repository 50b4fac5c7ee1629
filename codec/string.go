package codec

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// stringCodec is the catch-all for HostString/HostAny: every other codec is
// tried first (see DefaultRegistry's ordering comment), so this only fires
// for VARCHAR/CHAR/TEXT/ENUM/SET/JSON directly, or for any column type a
// caller asks to see rendered as a string (an integer column with
// ZEROFILL, a DECIMAL's raw digits, a temporal value's canonical text
// form).
type stringCodec struct{}

func (stringCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	return host == HostString || host == HostAny
}

func (stringCodec) CanEncode(host HostType, value any) bool {
	_, ok := value.(string)
	return ok
}

func (stringCodec) WireType(value any) (uint8, bool) {
	return protocol.TypeVarString, false
}

func (stringCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	s := string(raw)
	if isNumericColumn(col.Type) && col.Zerofill() {
		return buffer.ZeroPad(s, int(col.DisplayWidth)), nil
	}
	return s, nil
}

func (stringCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	switch {
	case isNumericColumn(col.Type):
		return decodeIntegerAsString(r, col)
	case col.Type == protocol.TypeFloat || col.Type == protocol.TypeDouble:
		return decodeFloatAsString(r, col)
	case col.Type == protocol.TypeDecimal || col.Type == protocol.TypeNewDecimal:
		s, err := buffer.ReadLenencString(r)
		if err != nil {
			return nil, err
		}
		return s, nil
	case col.Type == protocol.TypeDate || col.Type == protocol.TypeNewDate:
		v, err := decodeBinaryDateTime(r, true)
		if err != nil {
			return nil, err
		}
		return formatBinaryTemporal(v, true)
	case col.Type == protocol.TypeDateTime || col.Type == protocol.TypeTimestamp:
		v, err := decodeBinaryDateTime(r, false)
		if err != nil {
			return nil, err
		}
		return formatBinaryTemporal(v, false)
	case col.Type == protocol.TypeTime:
		parts, err := decodeBinaryTimeParts(r)
		if err != nil {
			return nil, err
		}
		return FormatDuration(parts.duration()), nil
	default:
		s, err := buffer.ReadLenencString(r)
		if err != nil {
			return nil, fmt.Errorf("codec: string binary: %w", err)
		}
		if isNumericColumn(col.Type) && col.Zerofill() {
			return buffer.ZeroPad(s, int(col.DisplayWidth)), nil
		}
		return s, nil
	}
}

func formatBinaryTemporal(v any, dateOnly bool) (any, error) {
	if v == nil {
		if dateOnly {
			return "0000-00-00", nil
		}
		return "0000-00-00 00:00:00", nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("codec: string binary: unexpected temporal value %T", v)
	}
	return FormatCanonical(t, dateOnly), nil
}

func decodeIntegerAsString(r io.Reader, col *protocol.ColumnDefinition) (any, error) {
	width := intWidth(col.Type)
	raw := make([]byte, width)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	var u uint64
	for i := width - 1; i >= 0; i-- {
		u = u<<8 | uint64(raw[i])
	}
	var s string
	if col.Unsigned() {
		s = strconv.FormatUint(maskUint(u, width), 10)
	} else {
		s = strconv.FormatInt(signExtend(u, width), 10)
	}
	if col.Zerofill() {
		s = buffer.ZeroPad(s, int(col.DisplayWidth))
	}
	return s, nil
}

func decodeFloatAsString(r io.Reader, col *protocol.ColumnDefinition) (any, error) {
	v, err := (floatCodec{}).DecodeBinary(r, col, nil)
	if err != nil {
		return nil, err
	}
	return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
}

func (stringCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("codec: string encode: unsupported type %T", value)
	}
	if format == Binary {
		return buffer.WriteLenencString(w, s)
	}
	noBackslash := ctx != nil && ctx.NoBackslashEscapes()
	_, err := io.WriteString(w, buffer.EscapeLiteral(s, noBackslash))
	return err
}
