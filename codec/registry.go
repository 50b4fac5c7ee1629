// Package codec implements the value codec registry: per-(host type,
// server data type) encode/decode pairs that translate between native Go
// values and the server's text and binary column formats.
package codec

import (
	"fmt"
	"io"

	"github.com/kasuganosora/mariadb-proto/protocol"
)

// Format distinguishes the text result protocol (plain COM_QUERY) from the
// binary result protocol (prepared statement execute).
type Format int

const (
	Text Format = iota
	Binary
)

// HostType is the Go-side type a caller wants a column value decoded into,
// or a value being encoded is expressed as. HostAny lets a codec pick its
// own natural representation (used when scanning into `any`/`interface{}`).
type HostType int

const (
	HostAny HostType = iota
	HostInt64
	HostUint64
	HostFloat64
	HostBigDecimal
	HostString
	HostBool
	HostTime
	HostDuration
	HostBytes
)

// Codec is the four-method contract every value codec implements (spec
// 4.2). The registry resolves by ordered linear scan; the first codec whose
// CanDecode/CanEncode matches wins, so codec order is significant and fixed
// at registry construction (see DefaultRegistry).
type Codec interface {
	CanDecode(col *protocol.ColumnDefinition, host HostType) bool
	CanEncode(host HostType, value any) bool
	// WireType returns the MYSQL_TYPE_* byte (and whether it's unsigned) a
	// COM_STMT_EXECUTE parameter of this value should declare.
	WireType(value any) (typ uint8, unsigned bool)
	DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error)
	DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error)
	Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error
}

// Registry is the ordered list of codecs value decode/encode resolves
// against.
type Registry struct {
	codecs []Codec
}

// NewRegistry builds an empty registry; codecs are appended in the order
// they should be tried.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a codec to the end of the resolution order.
func (reg *Registry) Register(c Codec) {
	reg.codecs = append(reg.codecs, c)
}

// DefaultRegistry returns a registry pre-loaded with all built-in codecs, in
// the stable order: integers, floats, decimals, booleans, temporals, BIT,
// blobs, then strings. The string codec comes last because it accepts
// HostString and HostAny for every column type: it is the catch-all, and
// placed earlier it would take HostAny decodes that the type-specific
// codecs answer with their natural representation. Of the codecs before
// it only bitCodec accepts HostString, so a HostString request for a
// zero-fill integer or a temporal column is formatted by the string codec.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(&integerCodec{})
	reg.Register(&floatCodec{})
	reg.Register(&decimalCodec{})
	reg.Register(&booleanCodec{})
	reg.Register(&temporalCodec{})
	reg.Register(&bitCodec{})
	reg.Register(&blobCodec{})
	reg.Register(&stringCodec{})
	return reg
}

// DecodeText decodes raw (already lenenc-unwrapped text-protocol column
// bytes) for the given column into the requested host type.
func (reg *Registry) DecodeText(raw []byte, col *protocol.ColumnDefinition, host HostType, ctx *protocol.Context) (any, error) {
	for _, c := range reg.codecs {
		if c.CanDecode(col, host) {
			return c.DecodeText(raw, col, ctx)
		}
	}
	return nil, fmt.Errorf("codec: no codec for column type 0x%02x -> host %d", col.Type, host)
}

// DecodeBinary decodes one binary-protocol column value from r.
func (reg *Registry) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, host HostType, ctx *protocol.Context) (any, error) {
	for _, c := range reg.codecs {
		if c.CanDecode(col, host) {
			return c.DecodeBinary(r, col, ctx)
		}
	}
	return nil, fmt.Errorf("codec: no codec for column type 0x%02x -> host %d", col.Type, host)
}

// BinaryValueDecoder adapts the registry to protocol.BinaryValueDecoder,
// decoding each column to its natural (HostAny) representation.
func (reg *Registry) BinaryValueDecoder(ctx *protocol.Context) protocol.BinaryValueDecoder {
	return func(r io.Reader, col *protocol.ColumnDefinition) (any, error) {
		return reg.DecodeBinary(r, col, HostAny, ctx)
	}
}

// Encode encodes value for the given format using the first codec that
// claims it.
func (reg *Registry) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	host := hostTypeOf(value)
	for _, c := range reg.codecs {
		if c.CanEncode(host, value) {
			return c.Encode(w, value, format, ctx)
		}
	}
	return fmt.Errorf("codec: no codec can encode %T", value)
}

// EncodeParam binary-encodes value for a COM_STMT_EXECUTE parameter,
// returning the wire type byte to declare for it (with the unsigned bit
// folded in, as protocol.EncodeStmtExecute expects).
func (reg *Registry) EncodeParam(w io.Writer, value any, ctx *protocol.Context) (wireType uint8, err error) {
	host := hostTypeOf(value)
	for _, c := range reg.codecs {
		if c.CanEncode(host, value) {
			typ, unsigned := c.WireType(value)
			if unsigned {
				typ |= 0x80
			}
			if err := c.Encode(w, value, Binary, ctx); err != nil {
				return 0, err
			}
			return typ, nil
		}
	}
	return 0, fmt.Errorf("codec: no codec can encode %T", value)
}

func hostTypeOf(value any) HostType {
	switch value.(type) {
	case int, int8, int16, int32, int64:
		return HostInt64
	case uint, uint8, uint16, uint32, uint64:
		return HostUint64
	case float32, float64:
		return HostFloat64
	case bool:
		return HostBool
	case []byte:
		return HostBytes
	case string:
		return HostString
	case Decimal:
		return HostBigDecimal
	default:
		return HostAny
	}
}
