package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// integerCodec handles TINYINT/SMALLINT/MEDIUMINT/INT/BIGINT. MEDIUMINT
// (INT24) is wire-encoded on the wire as a full 4-byte value even though it
// is logically 3 bytes wide (the 4th byte is padding, sign-extended on
// read, discarded on write).
type integerCodec struct{}

func (integerCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	switch col.Type {
	case protocol.TypeTiny, protocol.TypeShort, protocol.TypeInt24, protocol.TypeLong, protocol.TypeLongLong, protocol.TypeYear:
		return host == HostInt64 || host == HostUint64 || host == HostAny
	}
	return false
}

func (integerCodec) CanEncode(host HostType, value any) bool {
	return host == HostInt64 || host == HostUint64
}

func (integerCodec) WireType(value any) (uint8, bool) {
	switch value.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return protocol.TypeLongLong, true
	default:
		return protocol.TypeLongLong, false
	}
}

func intWidth(colType uint8) int {
	switch colType {
	case protocol.TypeTiny:
		return 1
	case protocol.TypeShort, protocol.TypeYear:
		return 2
	case protocol.TypeInt24, protocol.TypeLong:
		return 4
	case protocol.TypeLongLong:
		return 8
	default:
		return 8
	}
}

// expandTwoDigitYear maps the legacy YEAR(2) wire encoding to a 4-digit
// year: values <= 69 are 2000+n, everything else is 1900+n.
func expandTwoDigitYear(col *protocol.ColumnDefinition, year int64) int64 {
	if col.Type != protocol.TypeYear || col.DisplayWidth != 2 {
		return year
	}
	if year <= 69 {
		return 2000 + year
	}
	return 1900 + year
}

func (integerCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	s := strings.TrimSpace(string(raw))
	if col.Unsigned() {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("codec: integer text %q: %w", s, err)
		}
		return uint64(expandTwoDigitYear(col, int64(v))), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("codec: integer text %q: %w", s, err)
	}
	return expandTwoDigitYear(col, v), nil
}

func (integerCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	width := intWidth(col.Type)
	raw := make([]byte, width)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	var u uint64
	for i := width - 1; i >= 0; i-- {
		u = u<<8 | uint64(raw[i])
	}
	if col.Unsigned() {
		return maskUint(uint64(expandTwoDigitYear(col, int64(maskUint(u, width)))), 8), nil
	}
	return expandTwoDigitYear(col, signExtend(u, width)), nil
}

func maskUint(u uint64, width int) uint64 {
	if width >= 8 {
		return u
	}
	return u & (1<<(8*uint(width)) - 1)
}

func signExtend(u uint64, width int) int64 {
	if width >= 8 {
		return int64(u)
	}
	bits := uint(8 * width)
	v := u & (1<<bits - 1)
	signBit := uint64(1) << (bits - 1)
	if v&signBit != 0 {
		v -= 1 << bits
	}
	return int64(v)
}

func (integerCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	if format == Text {
		_, err := io.WriteString(w, fmt.Sprintf("%d", value))
		return err
	}
	switch v := value.(type) {
	case int64:
		return buffer.WriteNumber(w, v, 8)
	case int:
		return buffer.WriteNumber(w, int64(v), 8)
	case int32:
		return buffer.WriteNumber(w, int64(v), 8)
	case int16:
		return buffer.WriteNumber(w, int64(v), 8)
	case int8:
		return buffer.WriteNumber(w, int64(v), 8)
	case uint64:
		return buffer.WriteNumber(w, v, 8)
	case uint:
		return buffer.WriteNumber(w, uint64(v), 8)
	case uint32:
		return buffer.WriteNumber(w, uint64(v), 8)
	case uint16:
		return buffer.WriteNumber(w, uint64(v), 8)
	case uint8:
		return buffer.WriteNumber(w, uint64(v), 8)
	default:
		return fmt.Errorf("codec: integer encode: unsupported type %T", value)
	}
}
