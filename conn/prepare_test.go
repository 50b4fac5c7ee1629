package conn

import (
	"testing"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/kasuganosora/mariadb-proto/stmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStmtPrepareOK(statementID uint32, numParams, numColumns uint16) []byte {
	buf := []byte{protocol.HeaderOK}
	buf = append(buf, le32(statementID)...)
	buf = append(buf, le16(numColumns)...)
	buf = append(buf, le16(numParams)...)
	buf = append(buf, 0) // filler
	buf = append(buf, le16(0)...) // warnings
	return buf
}

func TestPrepareCachesByExactSQLText(t *testing.T) {
	cfg := testConfig()
	prepareCount := 0
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())

		fs.resetSeq()
		fs.readMessage() // COM_STMT_PREPARE
		prepareCount++
		fs.write(buildStmtPrepareOK(1, 1, 1))
		fs.write(buildColumnDef("id", protocol.TypeLong, 0))   // param
		fs.write(buildColumnDef("n", protocol.TypeLong, 0))    // result
	})
	defer e.netConn.Close()

	h1, err := e.Prepare("SELECT n FROM t WHERE id = ?")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h1.Result().StatementID)

	h2, err := e.Prepare("SELECT n FROM t WHERE id = ?")
	require.NoError(t, err)
	assert.Same(t, h1.Result(), h2.Result())
	assert.Equal(t, 1, prepareCount, "second Prepare with identical SQL must hit the cache")
}

func TestExecuteReturnsBinaryResultSet(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())

		fs.resetSeq()
		fs.readMessage() // COM_STMT_PREPARE
		fs.write(buildStmtPrepareOK(7, 1, 1))
		fs.write(buildColumnDef("id", protocol.TypeLong, 0))
		fs.write(buildColumnDef("n", protocol.TypeLong, 0))

		fs.resetSeq()
		fs.readMessage() // COM_STMT_EXECUTE
		fs.write([]byte{0x01})
		fs.write(buildColumnDef("n", protocol.TypeLong, 0))
		// one binary row: header 0x00, null bitmap (1 byte, no nulls), then
		// the 4-byte LE int32 value 99.
		fs.write([]byte{0x00, 0x00, 99, 0, 0, 0})
		// CLIENT_DEPRECATE_EOF negotiated: the terminator is an OK packet
		// with the 0xfe header (affected 0, insert id 0, status 0x0002,
		// warnings 0).
		fs.write([]byte{protocol.HeaderEOF, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00})
	})
	defer e.netConn.Close()

	h, err := e.Prepare("SELECT n FROM t WHERE id = ?")
	require.NoError(t, err)

	binding := stmt.NewBinding(1)
	require.NoError(t, binding.Set(0, int64(5)))

	p, err := e.Execute(h, binding)
	require.NoError(t, err)

	rows, more, err := p.Request(10)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(99), rows[0][0])
}

func TestExecuteRejectsIncompleteBinding(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage()
		fs.write(buildStmtPrepareOK(1, 1, 0))
		fs.write(buildColumnDef("id", protocol.TypeLong, 0))
	})
	defer e.netConn.Close()

	h, err := e.Prepare("DELETE FROM t WHERE id = ?")
	require.NoError(t, err)

	binding := stmt.NewBinding(1)
	_, err = e.Execute(h, binding)
	assert.Error(t, err)
}

func TestPrepareServerErrorPropagates(t *testing.T) {
	cfg := testConfig()
	e := dialOverPipe(t, cfg, func(fs *fakeServer) {
		fullHandshakeAndLogin(fs, defaultHandshakeOpts())
		fs.resetSeq()
		fs.readMessage()
		fs.writeErr(1064, "42000", "syntax error near '?'")
	})
	defer e.netConn.Close()

	_, err := e.Prepare("SELEC n FROM t")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPermissionDenied))
}
