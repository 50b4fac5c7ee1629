package codec

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
)

// floatCodec handles FLOAT and DOUBLE: binary LE IEEE-754, text via decimal
// parse.
type floatCodec struct{}

func (floatCodec) CanDecode(col *protocol.ColumnDefinition, host HostType) bool {
	switch col.Type {
	case protocol.TypeFloat, protocol.TypeDouble:
		return host == HostFloat64 || host == HostAny
	}
	return false
}

func (floatCodec) CanEncode(host HostType, value any) bool {
	return host == HostFloat64
}

func (floatCodec) WireType(value any) (uint8, bool) {
	if _, ok := value.(float32); ok {
		return protocol.TypeFloat, false
	}
	return protocol.TypeDouble, false
}

func (floatCodec) DecodeText(raw []byte, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, fmt.Errorf("codec: float text %q: %w", raw, err)
	}
	return v, nil
}

func (floatCodec) DecodeBinary(r io.Reader, col *protocol.ColumnDefinition, ctx *protocol.Context) (any, error) {
	if col.Type == protocol.TypeFloat {
		bits, err := buffer.ReadNumber[uint32](r, 4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(bits)), nil
	}
	bits, err := buffer.ReadNumber[uint64](r, 8)
	if err != nil {
		return nil, err
	}
	return math.Float64frombits(bits), nil
}

func (floatCodec) Encode(w io.Writer, value any, format Format, ctx *protocol.Context) error {
	var f64 float64
	isFloat32 := false
	switch v := value.(type) {
	case float32:
		f64 = float64(v)
		isFloat32 = true
	case float64:
		f64 = v
	default:
		return fmt.Errorf("codec: float encode: unsupported type %T", value)
	}
	if format == Text {
		_, err := io.WriteString(w, strconv.FormatFloat(f64, 'g', -1, 64))
		return err
	}
	if isFloat32 {
		return buffer.WriteNumber(w, math.Float32bits(float32(f64)), 4)
	}
	return buffer.WriteNumber(w, math.Float64bits(f64), 8)
}
