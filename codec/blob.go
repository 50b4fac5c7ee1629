package codec

import (
	"fmt"
	"io"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// blobCodec handles the BLOB family and GEOMETRY as opaque []byte. The text
// protocol already lenenc-unwraps column bytes before a codec ever sees
// them (see protocol.DecodeTextRow), so DecodeText is a plain copy; the
// binary protocol carries its own lenenc-prefixed string per value.
type blobCodec struct{}

func isBlobColumn(colType uint8) bool {
	switch colType {
	case protocol.TypeTinyBlob, protocol.TypeMediumBlob, protocol.TypeLongBlob,
		protocol.TypeBlob, protocol.TypeGeometry:
		return true
	}
	return false
}

func (blobCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	if !isBlobColumn(col.Type) {
		return false
	}
	return host == HostBytes || host == HostAny
}

func (blobCodec) CanEncode(host HostType, value any) bool {
	_, ok := value.([]byte)
	return ok && host == HostBytes
}

func (blobCodec) WireType(value any) (uint8, bool) {
	return protocol.TypeBlob, false
}

func (blobCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (blobCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	s, err := buffer.ReadLenencString(r)
	if err != nil {
		return nil, fmt.Errorf("codec: blob binary: %w", err)
	}
	return []byte(s), nil
}

func (blobCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("codec: blob encode: unsupported type %T", value)
	}
	if format == Binary {
		return buffer.WriteLenencString(w, string(b))
	}
	noBackslash := ctx != nil && ctx.NoBackslashEscapes()
	_, err := io.WriteString(w, buffer.EscapeLiteral(string(b), noBackslash))
	return err
}
