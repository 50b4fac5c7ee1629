package codec

import (
	"bytes"
	"testing"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryDecodesIntegerAsHostInt64(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.DecodeText([]byte("123"), col(protocol.TypeLong, 0, 11), HostInt64, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(123), v)
}

func TestDefaultRegistryHostAnyFallsThroughToNaturalType(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.DecodeText([]byte("3.14"), col(protocol.TypeDouble, 0, 0), HostAny, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.14, v)

	v, err = reg.DecodeText([]byte("blob"), col(protocol.TypeBlob, 0, 0), HostAny, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), v)
}

func TestDefaultRegistryHostStringOverridesForZerofillInt(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.DecodeText([]byte("7"), col(protocol.TypeLong, protocol.FlagZerofill, 4), HostString, nil)
	require.NoError(t, err)
	assert.Equal(t, "0007", v)
}

func TestDefaultRegistryNoCodecForUnsupportedHost(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.DecodeText([]byte("1"), col(protocol.TypeBlob, 0, 0), HostInt64, nil)
	assert.Error(t, err)
}

func TestRegistryEncodeDispatchesByGoType(t *testing.T) {
	reg := DefaultRegistry()
	var buf bytes.Buffer
	require.NoError(t, reg.Encode(&buf, int64(5), Text, nil))
	assert.Equal(t, "5", buf.String())
}

func TestRegistryEncodeParamReturnsWireTypeWithUnsignedBit(t *testing.T) {
	reg := DefaultRegistry()
	var buf bytes.Buffer
	typ, err := reg.EncodeParam(&buf, uint64(9), nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(protocol.TypeLongLong|0x80), typ)
}

func TestRegisterAppendsToResolutionOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stringCodec{})
	reg.Register(&integerCodec{})
	// stringCodec claims HostAny first since it's registered first, so an
	// integer column decoded as HostAny comes back as a string, not int64.
	v, err := reg.DecodeText([]byte("9"), col(protocol.TypeLong, 0, 0), HostAny, nil)
	require.NoError(t, err)
	assert.Equal(t, "9", v)
}
