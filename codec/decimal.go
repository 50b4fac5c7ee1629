package codec

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// Decimal is an exact decimal value, carried as the server's own digit
// string rather than lossily converted to float64. DECIMAL/OLDDECIMAL/
// NEWDECIMAL columns are always wire-encoded as text digits (prefixed with
// a length-encoded length even in the binary protocol), so this is the
// natural host representation.
type Decimal struct {
	Digits string
}

func (d Decimal) String() string { return d.Digits }

// Rat converts the decimal to an exact math/big.Rat.
func (d Decimal) Rat() (*big.Rat, bool) {
	return new(big.Rat).SetString(d.Digits)
}

// decimalCodec handles DECIMAL/OLDDECIMAL/NEWDECIMAL.
type decimalCodec struct{}

func (decimalCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	switch col.Type {
	case protocol.TypeDecimal, protocol.TypeNewDecimal:
		return host == HostBigDecimal || host == HostAny
	}
	return false
}

func (decimalCodec) CanEncode(host HostType, value any) bool {
	_, ok := value.(Decimal)
	return ok
}

func (decimalCodec) WireType(value any) (uint8, bool) {
	return protocol.TypeNewDecimal, false
}

func (decimalCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	return Decimal{Digits: strings.TrimSpace(string(raw))}, nil
}

func (decimalCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	s, err := buffer.ReadLenencString(r)
	if err != nil {
		return nil, fmt.Errorf("codec: decimal binary: %w", err)
	}
	return Decimal{Digits: s}, nil
}

func (decimalCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	dec, ok := value.(Decimal)
	if !ok {
		return fmt.Errorf("codec: decimal encode: unsupported type %T", value)
	}
	if format == Text {
		_, err := io.WriteString(w, dec.Digits)
		return err
	}
	return buffer.WriteLenencString(w, dec.Digits)
}
