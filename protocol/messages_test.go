package protocol

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lenencStrBytes(s string) []byte {
	return append([]byte{byte(len(s))}, []byte(s)...)
}

func TestDecodeColumnDefinition(t *testing.T) {
	var buf []byte
	buf = append(buf, lenencStrBytes("def")...)
	buf = append(buf, lenencStrBytes("testdb")...)
	buf = append(buf, lenencStrBytes("t")...)
	buf = append(buf, lenencStrBytes("t")...)
	buf = append(buf, lenencStrBytes("id")...)
	buf = append(buf, lenencStrBytes("id")...)
	buf = append(buf, 0x0c)
	buf = append(buf, le16(33)...)
	buf = append(buf, le32(11)...)
	buf = append(buf, TypeLong)
	buf = append(buf, le16(uint16(FlagUnsigned|FlagNotNull))...)
	buf = append(buf, 0)
	buf = append(buf, 0, 0)

	col, err := DecodeColumnDefinition(buf)
	require.NoError(t, err)
	assert.Equal(t, "testdb", col.Schema)
	assert.Equal(t, "id", col.Name)
	assert.Equal(t, uint8(TypeLong), col.Type)
	assert.True(t, col.Unsigned())
	assert.True(t, col.NotNull())
	assert.False(t, col.Zerofill())
}

func TestDecodeOKWithProtocol41(t *testing.T) {
	buf := []byte{HeaderOK, 0x01, 0x00}
	buf = append(buf, le16(StatusMoreResultsExists)...)
	buf = append(buf, le16(0)...)

	ok, err := DecodeOK(buf, uint64(ClientProtocol41))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ok.AffectedRows)
	assert.True(t, ok.MoreResultsExists())
}

func TestDecodeOKRejectsNonOKHeader(t *testing.T) {
	_, err := DecodeOK([]byte{HeaderErr, 0, 0, 0, 0}, uint64(ClientProtocol41))
	assert.Error(t, err)
}

func TestDecodeErrWithSQLState(t *testing.T) {
	buf := []byte{HeaderErr}
	buf = append(buf, le16(1146)...)
	buf = append(buf, '#')
	buf = append(buf, []byte("42S02")...)
	buf = append(buf, []byte("Table 'testdb.missing' doesn't exist")...)

	msg, err := DecodeErr(buf, uint64(ClientProtocol41))
	require.NoError(t, err)
	assert.Equal(t, uint16(1146), msg.Code)
	assert.Equal(t, "42S02", msg.SQLState)
	assert.Contains(t, msg.Message, "missing")
}

func TestDecodeErrWithoutProtocol41HasNoSQLState(t *testing.T) {
	buf := []byte{HeaderErr}
	buf = append(buf, le16(1045)...)
	buf = append(buf, []byte("Access denied")...)

	msg, err := DecodeErr(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "", msg.SQLState)
	assert.Equal(t, "Access denied", msg.Message)
}

func TestIsEOFPacketDistinguishesFromShortRow(t *testing.T) {
	assert.True(t, IsEOFPacket([]byte{HeaderEOF, 0, 0, 0x02, 0x00}))
	assert.False(t, IsEOFPacket(append([]byte{HeaderEOF}, make([]byte, 20)...)))
	assert.False(t, IsEOFPacket(nil))
}

func TestDecodeTextRowNullValue(t *testing.T) {
	buf := append(lenencStrBytes("1"), 0xfb)
	row, err := DecodeTextRow(buf, 2)
	require.NoError(t, err)
	require.Len(t, row, 2)
	require.NotNil(t, row[0])
	assert.Equal(t, "1", *row[0])
	assert.Nil(t, row[1])
}

func TestDecodeBinaryRowSkipsNullColumns(t *testing.T) {
	columns := []*ColumnDefinition{
		{Name: "a", Type: TypeLong},
		{Name: "b", Type: TypeLong},
	}
	// header 0x00, bitmap covering columnCount+2 bits => 1 byte, column b
	// (index 1, bit position 3) marked NULL.
	payload := []byte{0x00, 1 << 3}
	payload = append(payload, le32(7)...) // column a's value

	decode := func(r io.Reader, col *ColumnDefinition) (any, error) {
		buf := make([]byte, 4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return int64(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24), nil
	}

	values, err := DecodeBinaryRow(payload, columns, decode)
	require.NoError(t, err)
	assert.Equal(t, int64(7), values[0])
	assert.Nil(t, values[1])
}
