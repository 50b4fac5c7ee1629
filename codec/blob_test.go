package codec

import (
	"bytes"
	"testing"

	"github.com/kasuganosora/mariadb-proto/buffer"
	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobDecodeTextCopiesBytes(t *testing.T) {
	c := blobCodec{}
	raw := []byte{0x00, 0x01, 0xFF}
	v, err := c.DecodeText(raw, col(protocol.TypeBlob, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, raw, v)

	// mutating the source must not affect the returned copy
	raw[0] = 0xAA
	assert.Equal(t, byte(0x00), v.([]byte)[0])
}

func TestBlobDecodeBinaryLenenc(t *testing.T) {
	c := blobCodec{}
	var buf bytes.Buffer
	require.NoError(t, buffer.WriteLenencString(&buf, "hello"))
	v, err := c.DecodeBinary(&buf, col(protocol.TypeBlob, 0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)
}

func TestBlobCanDecodeOnlyBlobFamily(t *testing.T) {
	c := blobCodec{}
	assert.True(t, c.CanDecode(col(protocol.TypeBlob, 0, 0), HostBytes))
	assert.True(t, c.CanDecode(col(protocol.TypeGeometry, 0, 0), HostAny))
	assert.False(t, c.CanDecode(col(protocol.TypeLong, 0, 0), HostBytes))
}

func TestBlobEncodeTextEscapes(t *testing.T) {
	c := blobCodec{}
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, []byte("a'b"), Text, nil))
	assert.Equal(t, "'a\\'b'", buf.String())
}
