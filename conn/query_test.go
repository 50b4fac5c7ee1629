package conn

import (
	"testing"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildColumnDef hand-encodes one column-definition packet payload matching
// protocol.DecodeColumnDefinition's expectations.
func buildColumnDef(name string, colType uint8, flags uint16) []byte {
	var buf []byte
	mustWriteLenencString(&buf, "def")
	mustWriteLenencString(&buf, "testdb")
	mustWriteLenencString(&buf, "t")
	mustWriteLenencString(&buf, "t")
	mustWriteLenencString(&buf, name)
	mustWriteLenencString(&buf, name)
	buf = append(buf, 0x0c) // fixed-length fields marker
	buf = append(buf, le16(33)...) // collation: utf8_general_ci
	buf = append(buf, le32(255)...)
	buf = append(buf, colType)
	buf = append(buf, le16(flags)...)
	buf = append(buf, 0) // decimals
	buf = append(buf, 0, 0) // filler
	return buf
}

func mustWriteLenencString(buf *[]byte, s string) {
	*buf = append(*buf, byte(len(s)))
	*buf = append(*buf, []byte(s)...)
}

func lenencStr(s string) []byte {
	return append([]byte{byte(len(s))}, []byte(s)...)
}

func TestQueryReadsTabularResultSet(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())

		fs.resetSeq()
		fs.readMessage() // COM_QUERY
		fs.write([]byte{0x02})
		fs.write(buildColumnDef("id", protocol.TypeLong, 0))
		fs.write(buildColumnDef("name", protocol.TypeVarString, 0))
		var row []byte
		row = append(row, lenencStr("1")...)
		row = append(row, lenencStr("alice")...)
		fs.write(row)
		// CLIENT_DEPRECATE_EOF negotiated: terminator is an OK packet.
		fs.writeOK(0x0002)
	})
	defer e.netConn.Close()

	p, err := e.Query("SELECT id, name FROM t")
	require.NoError(t, err)

	rows, more, err := p.Request(10)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0][0])
	assert.Equal(t, "alice", rows[0][1])
	assert.Equal(t, StateReady, e.state)
}

func TestQueryOKResultNoRows(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage()
		buf := []byte{protocol.HeaderOK, 0x01, 0x00}
		buf = append(buf, le16(0x0002)...)
		buf = append(buf, le16(0)...)
		fs.write(buf)
	})
	defer e.netConn.Close()

	p, err := e.Query("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	rows, more, err := p.Request(10)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Empty(t, rows)
	assert.Equal(t, StateReady, e.state)
}

func TestQueryServerErrorPropagates(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage()
		fs.writeErr(1146, "42S02", "Table 'testdb.missing' doesn't exist")
	})
	defer e.netConn.Close()

	_, err := e.Query("SELECT * FROM missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSyntax))
	assert.Equal(t, StateReady, e.state)
}

func TestQueryMultiResultSetChaining(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage() // COM_QUERY

		// First result set: one column, one row, status says more follows.
		fs.write([]byte{0x01})
		fs.write(buildColumnDef("n", protocol.TypeLong, 0))
		fs.write(lenencStr("1"))
		okBuf := []byte{protocol.HeaderOK, 0x00, 0x00}
		okBuf = append(okBuf, le16(protocol.StatusMoreResultsExists)...)
		okBuf = append(okBuf, le16(0)...)
		fs.write(okBuf)

		// Second (final) result set.
		fs.write([]byte{0x01})
		fs.write(buildColumnDef("n", protocol.TypeLong, 0))
		fs.write(lenencStr("2"))
		fs.writeOK(0x0002)
	})
	defer e.netConn.Close()

	p, err := e.Query("SELECT 1; SELECT 2")
	require.NoError(t, err)

	rows, more, err := p.Request(10)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0][0])

	assert.True(t, p.HasNextResult())
	ok, err := p.NextResult()
	require.NoError(t, err)
	assert.True(t, ok)

	rows, _, err = p.Request(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0][0])
}

func TestQueryRefusesLocalInfileByDefault(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage() // COM_QUERY

		buf := append([]byte{protocol.HeaderLocalInfile}, []byte("/etc/passwd")...)
		fs.write(buf)
		fs.readMessage() // client's empty decline packet
		fs.writeErr(1148, "42000", "LOAD DATA LOCAL INFILE refused")
	})
	defer e.netConn.Close()

	_, err := e.Query("LOAD DATA LOCAL INFILE '/etc/passwd' INTO TABLE t")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPermissionDenied))
}
