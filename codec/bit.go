package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// bitCodec handles BIT columns, wire-encoded as a length-encoded string of
// raw bytes in both the text and binary protocols. It decodes to the
// canonical "b'101'" textual form (see formatBitString): leading all-zero
// bytes are dropped, the first non-zero byte drops its own leading zero
// bits, and every later byte keeps all 8 bits (e.g. 0x00 0x05 decodes to
// "b'101'", and 0x01 0x00 to "b'100000000'").
type bitCodec struct{}

func (bitCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	if col.Type != protocol.TypeBit {
		return false
	}
	return host == HostString || host == HostAny
}

func (bitCodec) CanEncode(host HostType, value any) bool {
	return false
}

func (bitCodec) WireType(value any) (uint8, bool) {
	return protocol.TypeBit, false
}

func (bitCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	return formatBitString(raw), nil
}

func (bitCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	raw, err := buffer.ReadLenencString(r)
	if err != nil {
		return nil, fmt.Errorf("codec: bit binary: %w", err)
	}
	return formatBitString([]byte(raw)), nil
}

// formatBitString renders raw (big-endian bytes, most significant byte
// first) as "b'<bits>'". Leading all-zero bytes contribute nothing; the
// first byte that has any bit set drops its own leading zero bits; every
// byte after that one contributes all 8 bits verbatim, zeros included. A
// value with every byte zero renders as "b'0'". This literally preserves
// the test vector 0x00 0x05 -> "b'101'": the leading 0x00 byte vanishes
// entirely, and 0x05's own leading zeros are stripped down to "101".
func formatBitString(raw []byte) string {
	firstNonZero := -1
	for i, byt := range raw {
		if byt != 0 {
			firstNonZero = i
			break
		}
	}
	if firstNonZero == -1 {
		return "b'0'"
	}

	var b strings.Builder
	b.WriteString("b'")

	leading := raw[firstNonZero]
	started := false
	for i := 7; i >= 0; i-- {
		bit := (leading >> uint(i)) & 1
		if bit == 1 {
			started = true
		}
		if started {
			b.WriteByte('0' + bit)
		}
	}
	for _, byt := range raw[firstNonZero+1:] {
		for i := 7; i >= 0; i-- {
			b.WriteByte('0' + ((byt >> uint(i)) & 1))
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func (bitCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	return fmt.Errorf("codec: bit encode: not supported")
}
