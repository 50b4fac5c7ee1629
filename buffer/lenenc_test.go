package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLenencIntRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 250, 251, 65535, 65536, 16777215, 16777216, 1 << 40} {
		var buf bytes.Buffer
		require.NoError(t, WriteLenencInt(&buf, v))
		got, err := ReadLenencInt(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestLenencIntUsesShortestEncoding(t *testing.T) {
	tests := []struct {
		value    uint64
		wantLen  int
		wantByte byte
	}{
		{250, 1, 250},
		{251, 3, 0xfc},
		{65536, 4, 0xfd},
		{16777216, 9, 0xfe},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteLenencInt(&buf, tt.value))
		assert.Len(t, buf.Bytes(), tt.wantLen, "value %d", tt.value)
		assert.Equal(t, tt.wantByte, buf.Bytes()[0], "value %d", tt.value)
	}
}

func TestLenencIntNullMarker(t *testing.T) {
	_, err := ReadLenencInt(bytes.NewReader([]byte{0xfb}))
	assert.ErrorIs(t, err, ErrNullValue)
}

func TestLenencStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLenencString(&buf, "hello world"))
	s, err := ReadLenencString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", s)
}

func TestLenencStringEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLenencString(&buf, ""))
	s, err := ReadLenencString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestNullTerminatedStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNullTerminatedString(&buf, "root"))
	s, err := ReadNullTerminatedString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "root", s)
}

func TestNumberRoundTripLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNumber[uint32](&buf, 0x01020304, 4))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf.Bytes())

	v, err := ReadNumber[uint32](bytes.NewReader(buf.Bytes()), 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v)
}

func TestNumberThreeByteWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNumber[uint32](&buf, 0xABCDEF, 3))
	v, err := ReadNumber[uint32](bytes.NewReader(buf.Bytes()), 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCDEF), v)
}
