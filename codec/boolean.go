package codec

import (
	"io"
	"strings"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// booleanCodec decodes a column as a bool: true iff the value is non-zero
// (numeric columns) or not equal to the literal string "0" (textual
// columns). MySQL has no native BOOLEAN wire type (it's a TINYINT(1)
// alias), so this only ever fires when a caller explicitly asks for
// HostBool.
type booleanCodec struct{}

func isNumericColumn(colType uint8) bool {
	switch colType {
	case protocol.TypeTiny, protocol.TypeShort, protocol.TypeInt24,
		protocol.TypeLong, protocol.TypeLongLong, protocol.TypeYear:
		return true
	}
	return false
}

func isTextColumn(colType uint8) bool {
	switch colType {
	case protocol.TypeVarchar, protocol.TypeVarString, protocol.TypeString,
		protocol.TypeEnum, protocol.TypeSet, protocol.TypeJSON:
		return true
	}
	return false
}

func (booleanCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	if host != HostBool {
		return false
	}
	return isNumericColumn(col.Type) || isTextColumn(col.Type)
}

func (booleanCodec) CanEncode(host HostType, value any) bool {
	return host == HostBool
}

func (booleanCodec) WireType(value any) (uint8, bool) {
	return protocol.TypeTiny, false
}

func (booleanCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	return strings.TrimSpace(string(raw)) != "0", nil
}

func (booleanCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	if isNumericColumn(col.Type) {
		width := intWidth(col.Type)
		raw := make([]byte, width)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		nonZero := false
		for _, b := range raw {
			if b != 0 {
				nonZero = true
				break
			}
		}
		return nonZero, nil
	}
	s, err := buffer.ReadLenencString(r)
	if err != nil {
		return nil, err
	}
	return s != "0", nil
}

func (booleanCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	b, _ := value.(bool)
	var n byte
	if b {
		n = 1
	}
	if format == Text {
		if b {
			_, err := io.WriteString(w, "1")
			return err
		}
		_, err := io.WriteString(w, "0")
		return err
	}
	_, err := w.Write([]byte{n})
	return err
}
