package conn

import (
	"net"
	"testing"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/stretchr/testify/require"
)

// fakeServer drives the server side of a net.Pipe connection using the same
// frame codec the client uses, so a test can script a minimal conversation
// (handshake, auth, one command) without a real network or a real server.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	seq  protocol.Sequencer
	fr   *protocol.FrameReader
	fw   *protocol.FrameWriter
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	fs := &fakeServer{t: t, conn: conn}
	fs.fr = protocol.NewFrameReader(conn, &fs.seq)
	fs.fw = protocol.NewFrameWriter(conn, &fs.seq)
	return fs
}

func (fs *fakeServer) resetSeq() { fs.seq.Reset(0) }

func (fs *fakeServer) readMessage() []byte {
	fs.t.Helper()
	payload, err := fs.fr.ReadMessage()
	require.NoError(fs.t, err)
	return payload
}

func (fs *fakeServer) write(payload []byte) {
	fs.t.Helper()
	require.NoError(fs.t, fs.fw.WriteMessage(payload))
}

// handshakeOpts configures the initial handshake packet fakeServer sends.
type handshakeOpts struct {
	serverVersion  string
	capabilities   uint32
	mariaDBExtCaps uint32
	authPlugin     string
	threadID       uint32
}

func defaultHandshakeOpts() handshakeOpts {
	return handshakeOpts{
		serverVersion: "5.5.5-10.5.1-MariaDB",
		capabilities: uint32(baseClientCapabilities),
		mariaDBExtCaps: uint32(baseMariaDBCapabilities),
		authPlugin:    "mysql_native_password",
		threadID:      42,
	}
}

// writeHandshakeV10 hand-builds a handshake-v10 packet payload matching
// protocol.DecodeHandshakeV10's expectations, with a 20-byte auth seed
// (8-byte part1 + 12-byte part2, NUL-terminated on the wire).
func (fs *fakeServer) writeHandshakeV10(opts handshakeOpts) []byte {
	seed := make([]byte, 20)
	for i := range seed {
		seed[i] = byte(i + 1)
	}

	var buf []byte
	buf = append(buf, 0x0a)
	buf = append(buf, []byte(opts.serverVersion)...)
	buf = append(buf, 0)
	buf = append(buf, le32(opts.threadID)...)
	buf = append(buf, seed[:8]...)
	buf = append(buf, 0) // filler
	buf = append(buf, le16(uint16(opts.capabilities))...)
	buf = append(buf, 0x2d) // character set (utf8mb4_general_ci-ish placeholder)
	buf = append(buf, le16(0x0002)...) // status flags: autocommit
	buf = append(buf, le16(uint16(opts.capabilities>>16))...)
	buf = append(buf, byte(21)) // auth data length: 8 + 12 + 1 NUL
	buf = append(buf, make([]byte, 6)...)
	buf = append(buf, le32(opts.mariaDBExtCaps)...)
	buf = append(buf, seed[8:]...)
	buf = append(buf, 0) // NUL terminator on part2
	buf = append(buf, []byte(opts.authPlugin)...)
	buf = append(buf, 0)

	fs.resetSeq()
	fs.write(buf)
	return seed
}

// writeOK writes a minimal OK packet (no Info, no session state).
func (fs *fakeServer) writeOK(statusFlags uint16) {
	buf := []byte{protocol.HeaderOK, 0x00, 0x00}
	buf = append(buf, le16(statusFlags)...)
	buf = append(buf, le16(0)...)
	fs.write(buf)
}

// writeErr writes a minimal ERR packet.
func (fs *fakeServer) writeErr(code uint16, sqlState, message string) {
	buf := []byte{protocol.HeaderErr}
	buf = append(buf, le16(code)...)
	buf = append(buf, '#')
	buf = append(buf, []byte(sqlState)...)
	buf = append(buf, []byte(message)...)
	fs.write(buf)
}

// handleSimpleCommand reads one pipelined command (from execSimple) and
// replies with OK; used for the postLoginSetup SET NAMES/autocommit pair.
func (fs *fakeServer) handleSimpleCommand() {
	fs.resetSeq()
	fs.readMessage()
	fs.writeOK(0x0002)
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// dialOverPipe runs Dial-equivalent setup (newEngine) over an in-memory
// net.Pipe, with the server half driven by serverScript in a background
// goroutine. Returns the connected Engine.
func dialOverPipe(t *testing.T, cfg *Config, serverScript func(fs *fakeServer)) *Engine {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, serverConn)
		serverScript(fs)
	}()

	e, err := newEngine(clientConn, cfg, DefaultLogger(), false)
	require.NoError(t, err)
	t.Cleanup(func() {
		<-done
	})
	return e
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Username = "root"
	cfg.Password = "secret"
	cfg.SessionVariables = map[string]string{}
	return cfg
}

func fullHandshakeAndLogin(fs *fakeServer, opts handshakeOpts) {
	fs.writeHandshakeV10(opts)
	fs.readMessage() // HandshakeResponse41
	fs.writeOK(0x0002)
	fs.handleSimpleCommand() // SET NAMES
	fs.handleSimpleCommand() // SET autocommit
}
