package conn

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/kasuganosora/mariadb-proto/auth"
	"github.com/kasuganosora/mariadb-proto/codec"
	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/kasuganosora/mariadb-proto/stmt"
)

// baseClientCapabilities is the capability set this client always asks
// for, intersected against whatever the server actually advertises.
const baseClientCapabilities = protocol.ClientLongPassword |
	protocol.ClientProtocol41 |
	protocol.ClientSecureConnection |
	protocol.ClientPluginAuth |
	protocol.ClientPluginAuthLenencClientData |
	protocol.ClientTransactions |
	protocol.ClientMultiStatements |
	protocol.ClientMultiResults |
	protocol.ClientPSMultiResults |
	protocol.ClientSessionTrack |
	protocol.ClientDeprecateEOF |
	protocol.ClientCapabilityExtension

const baseMariaDBCapabilities = protocol.MariaClientComMulti |
	protocol.MariaClientExtendedMetadata

// LocalInfileHandler is invoked when the server requests
// LOAD DATA LOCAL INFILE, with the filename it asked for. The returned
// reader's bytes are streamed back as the file contents; returning an
// error refuses the request (the safe default).
type LocalInfileHandler func(filename string) (io.Reader, error)

func refuseLocalInfile(filename string) (io.Reader, error) {
	return nil, fmt.Errorf("conn: LOAD DATA LOCAL INFILE refused (allowLocalInfile is false): %s", filename)
}

// MetadataView is the read-only surface spec section 1 calls out as one
// of the three interfaces the protocol engine exposes to its external
// collaborators (the connection/statement API, pooling, and transaction
// layers this repo doesn't implement).
type MetadataView interface {
	ServerVersion() protocol.ServerVersion
	Capabilities() uint64
	ThreadID() uint32
	Collation() uint8
}

// Engine owns one MariaDB/MySQL connection end to end: the handshake and
// authentication dance, the prepared-statement cache, and command
// dispatch. It is the client-role mirror of the teacher's
// server.Server connection loop (server/handler), inverted to originate
// connections instead of accepting them.
type Engine struct {
	netConn net.Conn
	cfg     *Config
	logger  Logger

	ctx *protocol.Context
	fr  *protocol.FrameReader
	fw  *protocol.FrameWriter

	state State

	codecs    *codec.Registry
	authRegs  *auth.Registry
	prepareCache *stmt.Cache

	secureChannel bool
	localInfile   LocalInfileHandler

	lastOK   *protocol.OKMessage
	authSeed []byte
}

// Dial opens a connection per cfg (TCP host:port, or a Unix socket when
// cfg.Socket is set) and drives it through handshake, authentication, and
// post-login setup.
func Dial(cfg *Config, logger Logger) (*Engine, error) {
	if logger == nil {
		logger = DefaultLogger()
	}
	network, address := "tcp", cfg.Address()
	secure := false
	if cfg.Socket != "" {
		network, address = "unix", cfg.Socket
		secure = true // a local Unix socket satisfies caching_sha2's full-auth requirement
	}
	netConn, err := net.DialTimeout(network, address, cfg.ConnectTimeout)
	if err != nil {
		return nil, NewTransientResourceError("dial failed", err)
	}
	return newEngine(netConn, cfg, logger, secure)
}

func newEngine(netConn net.Conn, cfg *Config, logger Logger, secure bool) (*Engine, error) {
	ctx := protocol.NewContext()
	e := &Engine{
		netConn:       netConn,
		cfg:           cfg,
		logger:        logger,
		ctx:           ctx,
		fr:            protocol.NewFrameReader(netConn, ctx.Seq),
		fw:            protocol.NewFrameWriter(netConn, ctx.Seq),
		state:         StateConnecting,
		codecs:        codec.DefaultRegistry(),
		authRegs:      auth.DefaultRegistry(),
		secureChannel: secure,
		localInfile:   refuseLocalInfile,
	}
	e.prepareCache = stmt.NewCache(cfg.PrepareCacheSize, e.closeStatement)

	if err := e.handshake(); err != nil {
		e.netConn.Close()
		return nil, err
	}
	if err := e.postLoginSetup(); err != nil {
		e.netConn.Close()
		return nil, err
	}
	return e, nil
}

// SetLocalInfileHandler overrides the default (refusing) LOAD DATA LOCAL
// INFILE handler.
func (e *Engine) SetLocalInfileHandler(h LocalInfileHandler) {
	if h == nil {
		h = refuseLocalInfile
	}
	e.localInfile = h
}

func (e *Engine) ServerVersion() protocol.ServerVersion { return e.ctx.ServerVersion }
func (e *Engine) Capabilities() uint64                  { return e.ctx.Capabilities }
func (e *Engine) ThreadID() uint32                      { return e.ctx.ThreadID }
func (e *Engine) Collation() uint8                      { return e.ctx.ClientCollation }

func (e *Engine) transition(to State) error {
	if err := Transition(e.state, to); err != nil {
		return err
	}
	e.state = to
	return nil
}

// handshake implements spec section 4.5's transition table: read initial
// handshake, negotiate capabilities, optionally upgrade to TLS, send
// HandshakeResponse, then loop through the auth plugin dispatch until OK
// or ERR.
func (e *Engine) handshake() error {
	payload, err := e.fr.ReadMessage()
	if err != nil {
		return NewParsingError(err)
	}
	hs, err := protocol.DecodeHandshakeV10(payload)
	if err != nil {
		return NewParsingError(err)
	}
	if err := e.transition(StateHandshakeReceived); err != nil {
		return err
	}

	e.ctx.ServerVersion = hs.ServerVersion
	e.ctx.SupportReturning = hs.ServerVersion.SupportsReturning()
	e.ctx.ThreadID = hs.ThreadID

	clientCaps := uint32(baseClientCapabilities)
	if e.cfg.AllowLocalInfile {
		clientCaps |= protocol.ClientLocalFiles
	}
	if e.cfg.Database != "" {
		clientCaps |= protocol.ClientConnectWithDB
	}
	wantTLS := e.cfg.SSLMode != SSLDisable
	if wantTLS {
		clientCaps |= protocol.ClientSSL
	}
	negotiated := clientCaps & hs.Capabilities()

	var negotiatedExt uint32
	if hs.ServerVersion.IsMariaDB && negotiated&protocol.ClientCapabilityExtension != 0 {
		negotiatedExt = uint32(baseMariaDBCapabilities) & hs.MariaDBExtendedCapabilities
	}

	e.ctx.Capabilities = uint64(negotiated) | uint64(negotiatedExt)<<32
	e.ctx.ClientCollation = hs.CharacterSet
	e.ctx.ResultsCollation = hs.CharacterSet
	if e.cfg.Collation != "" {
		e.ctx.ClientCollation = protocol.GetCharsetID(e.cfg.Collation)
	}

	if wantTLS && negotiated&protocol.ClientSSL != 0 {
		if err := e.upgradeTLS(negotiated, negotiatedExt); err != nil {
			return err
		}
	} else if wantTLS {
		return NewNonTransientResourceError("SSL requested but server does not support ClientSSL")
	}

	plugin, ok := e.authRegs.Get(hs.AuthPluginName)
	if !ok {
		return NewNonTransientResourceError(fmt.Sprintf("unknown auth plugin %q", hs.AuthPluginName))
	}
	e.authSeed = hs.Seed()
	authResponse, err := plugin.Start(e.cfg.Password, e.authSeed)
	if err != nil {
		return NewNonTransientResourceError(err.Error())
	}

	respPayload, err := protocol.EncodeHandshakeResponse(protocol.HandshakeResponseParams{
		ClientCapabilities:          negotiated,
		MariaDBExtendedCapabilities: negotiatedExt,
		MaxPacketSize:               protocol.MaxPayload,
		CharacterSet:                e.ctx.ClientCollation,
		Username:                    e.cfg.Username,
		AuthResponse:                authResponse,
		Database:                    e.cfg.Database,
		AuthPluginName:              plugin.Name(),
	})
	if err != nil {
		return NewParsingError(err)
	}
	if err := e.transition(StateAuthenticating); err != nil {
		return err
	}
	if err := e.fw.WriteMessage(respPayload); err != nil {
		return NewTransientResourceError("write handshake response", err)
	}

	return e.authLoop(plugin, e.authSeed)
}

func (e *Engine) upgradeTLS(caps, extCaps uint32) error {
	sslReq := protocol.SSLRequest(caps, extCaps, protocol.MaxPayload, e.ctx.ClientCollation)
	if err := e.fw.WriteMessage(sslReq); err != nil {
		return NewTransientResourceError("write SSL request", err)
	}
	tlsConn := tls.Client(e.netConn, &tls.Config{
		ServerName:         e.cfg.Host,
		InsecureSkipVerify: e.cfg.SSLMode == SSLTrust,
	})
	if err := tlsConn.Handshake(); err != nil {
		return NewNonTransientResourceError("TLS handshake failed: " + err.Error())
	}
	e.netConn = tlsConn
	e.fr = protocol.NewFrameReader(tlsConn, e.ctx.Seq)
	e.fw = protocol.NewFrameWriter(tlsConn, e.ctx.Seq)
	e.secureChannel = true
	return nil
}

// authLoop drives AuthMoreData/AuthSwitchRequest exchanges until the
// server sends OK (success) or ERR (failure).
func (e *Engine) authLoop(plugin auth.Plugin, seed []byte) error {
	for {
		payload, err := e.fr.ReadMessage()
		if err != nil {
			return NewParsingError(err)
		}
		if len(payload) == 0 {
			return NewParsingError(fmt.Errorf("empty auth packet"))
		}
		switch payload[0] {
		case protocol.HeaderErr:
			msg, err := protocol.DecodeErr(payload, e.ctx.Capabilities)
			if err != nil {
				return NewParsingError(err)
			}
			e.state = StateClosed
			return NewServerError(msg.Code, msg.SQLState, msg.Message, "")
		case protocol.HeaderOK:
			ok, err := protocol.DecodeOK(payload, e.ctx.Capabilities)
			if err != nil {
				return NewParsingError(err)
			}
			e.applyOK(ok)
			return e.transition(StateReady)
		case protocol.HeaderAuthMoreData:
			resp, done, err := plugin.Continue(e.cfg.Password, seed, payload[1:], e.secureChannel)
			if err != nil {
				return NewNonTransientResourceError(err.Error())
			}
			if resp != nil {
				if err := e.fw.WriteMessage(protocol.EncodeAuthMoreRaw(resp)); err != nil {
					return NewTransientResourceError("write auth response", err)
				}
			}
			_ = done // server still sends the terminal OK/ERR itself
		case protocol.HeaderAuthSwitch:
			name, newSeed, err := decodeAuthSwitchRequest(payload)
			if err != nil {
				return NewParsingError(err)
			}
			next, ok := e.authRegs.Get(name)
			if !ok {
				return NewNonTransientResourceError(fmt.Sprintf("unknown auth plugin %q", name))
			}
			if err := e.transition(StateAuthSwitch); err != nil {
				return err
			}
			resp, err := next.Start(e.cfg.Password, newSeed)
			if err != nil {
				return NewNonTransientResourceError(err.Error())
			}
			if err := e.fw.WriteMessage(protocol.EncodeAuthMoreRaw(resp)); err != nil {
				return NewTransientResourceError("write auth switch response", err)
			}
			plugin, seed = next, newSeed
			if err := e.transition(StateAuthenticating); err != nil {
				return err
			}
		default:
			return NewProtocolStateError(fmt.Sprintf("unexpected byte 0x%02x during authentication", payload[0]))
		}
	}
}

func decodeAuthSwitchRequest(payload []byte) (name string, seed []byte, err error) {
	// header(1) + null-terminated plugin name + remaining seed bytes.
	i := 1
	start := i
	for i < len(payload) && payload[i] != 0 {
		i++
	}
	if i >= len(payload) {
		return "", nil, fmt.Errorf("protocol: malformed AuthSwitchRequest")
	}
	name = string(payload[start:i])
	seed = payload[i+1:]
	if n := len(seed); n > 0 && seed[n-1] == 0 {
		seed = seed[:n-1]
	}
	return name, seed, nil
}

func (e *Engine) applyOK(ok *protocol.OKMessage) {
	e.lastOK = ok
	e.ctx.StatusFlags = ok.StatusFlags
}

// postLoginSetup issues the SET NAMES / autocommit / session variable /
// USE database commands spec section 4.5 step 5 requires before the
// connection is handed to a caller. The commands are not pipelined: each
// is sent only after the reply to the previous one has been read.
func (e *Engine) postLoginSetup() error {
	charset := e.cfg.Collation
	if charset == "" {
		charset = "utf8mb4_general_ci"
	}
	if _, err := e.execSimple(fmt.Sprintf("SET NAMES %s", charset)); err != nil {
		return err
	}
	autocommitValue := "0"
	if e.cfg.Autocommit {
		autocommitValue = "1"
	}
	if _, err := e.execSimple(fmt.Sprintf("SET autocommit=%s", autocommitValue)); err != nil {
		return err
	}
	for k, v := range e.cfg.SessionVariables {
		if _, err := e.execSimple(fmt.Sprintf("SET %s=%s", k, v)); err != nil {
			return err
		}
	}
	if e.cfg.Database != "" && e.ctx.Capabilities&uint64(protocol.ClientConnectWithDB) == 0 {
		if _, err := e.execSimple(fmt.Sprintf("USE %s", e.cfg.Database)); err != nil {
			return err
		}
	}
	return nil
}

// execSimple runs a statement expected to return a bare OK packet (no
// result set), used for the post-login SET/USE pipeline.
func (e *Engine) execSimple(sql string) (*protocol.OKMessage, error) {
	if err := e.transition(StateCommandInFlight); err != nil {
		return nil, err
	}
	defer func() { e.state = StateReady }()

	e.ctx.Seq.Reset(0)
	if err := e.fw.WriteMessage(protocol.EncodeQuery(sql)); err != nil {
		return nil, NewTransientResourceError("write query", err)
	}
	payload, err := e.fr.ReadMessage()
	if err != nil {
		return nil, NewParsingError(err)
	}
	if len(payload) > 0 && payload[0] == protocol.HeaderErr {
		msg, err := protocol.DecodeErr(payload, e.ctx.Capabilities)
		if err != nil {
			return nil, NewParsingError(err)
		}
		return nil, NewServerError(msg.Code, msg.SQLState, msg.Message, sql)
	}
	ok, err := protocol.DecodeOK(payload, e.ctx.Capabilities)
	if err != nil {
		return nil, NewParsingError(err)
	}
	e.applyOK(ok)
	return ok, nil
}

// Ping issues COM_PING and waits for the server's OK.
func (e *Engine) Ping() error {
	if err := e.transition(StateCommandInFlight); err != nil {
		return err
	}
	defer func() { e.state = StateReady }()

	e.ctx.Seq.Reset(0)
	if err := e.fw.WriteMessage(protocol.EncodePing()); err != nil {
		return NewTransientResourceError("write ping", err)
	}
	payload, err := e.fr.ReadMessage()
	if err != nil {
		return NewParsingError(err)
	}
	ok, err := protocol.DecodeOK(payload, e.ctx.Capabilities)
	if err != nil {
		return NewParsingError(err)
	}
	e.applyOK(ok)
	return nil
}

// Close sends COM_QUIT and closes the underlying connection.
func (e *Engine) Close() error {
	if e.state == StateClosed {
		return nil
	}
	e.ctx.Seq.Reset(0)
	_ = e.fw.WriteMessage(protocol.EncodeQuit())
	e.state = StateClosed
	return e.netConn.Close()
}

// ResetConnection re-runs the post-login setup over COM_RESET_CONNECTION,
// clearing session state (transactions, temp tables, prepared
// statements) while keeping the TCP connection and authentication.
func (e *Engine) ResetConnection() error {
	if err := e.transition(StateCommandInFlight); err != nil {
		return err
	}
	e.ctx.Seq.Reset(0)
	if err := e.fw.WriteMessage(protocol.EncodeResetConnection()); err != nil {
		e.state = StateReady
		return NewTransientResourceError("write reset connection", err)
	}
	payload, err := e.fr.ReadMessage()
	if err != nil {
		e.state = StateReady
		return NewParsingError(err)
	}
	if len(payload) > 0 && payload[0] == protocol.HeaderErr {
		msg, _ := protocol.DecodeErr(payload, e.ctx.Capabilities)
		e.state = StateReady
		if msg != nil {
			return NewServerError(msg.Code, msg.SQLState, msg.Message, "")
		}
		return NewProtocolStateError("reset connection failed")
	}
	ok, err := protocol.DecodeOK(payload, e.ctx.Capabilities)
	if err != nil {
		e.state = StateReady
		return NewParsingError(err)
	}
	e.applyOK(ok)
	e.state = StateReady
	return e.postLoginSetup()
}

// ChangeUserParams reauthenticates an existing connection as a different
// user, per spec's SUPPLEMENTED FEATURES (original source's
// ChangeUserFlow), without a fresh TCP/TLS handshake.
type ChangeUserParams struct {
	Username string
	Password string
	Database string
}

// ChangeUser re-runs the auth dispatch over COM_CHANGE_USER.
func (e *Engine) ChangeUser(p ChangeUserParams) error {
	plugin, ok := e.authRegs.Get("mysql_native_password")
	if !ok {
		return NewNonTransientResourceError("no default auth plugin registered")
	}
	// COM_CHANGE_USER optimistically re-authenticates against the seed
	// from the connection's original handshake; the server falls back to
	// an AuthSwitchRequest with a fresh seed if that guess is wrong,
	// which authLoop already handles.
	authResponse, err := plugin.Start(p.Password, e.authSeed)
	if err != nil {
		return NewNonTransientResourceError(err.Error())
	}

	if err := e.transition(StateCommandInFlight); err != nil {
		return err
	}
	e.ctx.Seq.Reset(0)
	payload := protocol.EncodeChangeUser(protocol.ChangeUserParams{
		Username:       p.Username,
		AuthResponse:   authResponse,
		Database:       p.Database,
		CharacterSet:   e.ctx.ClientCollation,
		AuthPluginName: plugin.Name(),
		Capabilities:   uint32(e.ctx.Capabilities),
	})
	if err := e.fw.WriteMessage(payload); err != nil {
		e.state = StateReady
		return NewTransientResourceError("write change user", err)
	}
	e.cfg.Username, e.cfg.Password, e.cfg.Database = p.Username, p.Password, p.Database
	// authLoop's AuthSwitchRequest branch moves AUTHENTICATING -> AUTH_SWITCH.
	e.state = StateAuthenticating
	return e.authLoop(plugin, e.authSeed)
}

func (e *Engine) closeStatement(result *stmt.ServerPrepareResult) {
	if e.state == StateClosed {
		return
	}
	_ = e.fw.WriteMessage(protocol.EncodeStmtClose(result.StatementID))
}

// MetadataView implementation check.
var _ MetadataView = (*Engine)(nil)
