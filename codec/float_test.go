package codec

import (
	"bytes"
	"math"
	"testing"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatDecodeText(t *testing.T) {
	c := floatCodec{}
	v, err := c.DecodeText([]byte("3.5"), col(protocol.TypeDouble, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestFloatDecodeBinaryFloat32(t *testing.T) {
	c := floatCodec{}
	var buf bytes.Buffer
	bits := math.Float32bits(1.5)
	buf.Write([]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
	v, err := c.DecodeBinary(&buf, col(protocol.TypeFloat, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestFloatDecodeBinaryDouble(t *testing.T) {
	c := floatCodec{}
	var buf bytes.Buffer
	bits := math.Float64bits(2.25)
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(bits >> (8 * uint(i))))
	}
	v, err := c.DecodeBinary(&buf, col(protocol.TypeDouble, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 2.25, v)
}

func TestFloatEncodeText(t *testing.T) {
	c := floatCodec{}
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, 3.5, Text, nil))
	assert.Equal(t, "3.5", buf.String())
}
