package protocol

import (
	"bytes"

	"github.com/kasuganosora/mariadb-proto/buffer"
)

// EncodeQuit builds a COM_QUIT payload.
func EncodeQuit() []byte { return []byte{ComQuit} }

// EncodeInitDB builds a COM_INIT_DB payload.
func EncodeInitDB(schema string) []byte {
	return append([]byte{ComInitDB}, schema...)
}

// EncodeQuery builds a COM_QUERY payload for a plain-text SQL statement.
func EncodeQuery(sql string) []byte {
	return append([]byte{ComQuery}, sql...)
}

// EncodePing builds a COM_PING payload.
func EncodePing() []byte { return []byte{ComPing} }

// EncodeStmtPrepare builds a COM_STMT_PREPARE payload.
func EncodeStmtPrepare(sql string) []byte {
	return append([]byte{ComStmtPrepare}, sql...)
}

// EncodeStmtClose builds a COM_STMT_CLOSE payload. The server sends no
// response to this command.
func EncodeStmtClose(stmtID uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ComStmtClose)
	buffer.WriteNumber(&buf, stmtID, 4)
	return buf.Bytes()
}

// EncodeStmtReset builds a COM_STMT_RESET payload: clears buffered
// parameters/long-data and resets the cursor without deallocating the
// statement.
func EncodeStmtReset(stmtID uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ComStmtReset)
	buffer.WriteNumber(&buf, stmtID, 4)
	return buf.Bytes()
}

// EncodeStmtFetch builds a COM_STMT_FETCH payload requesting up to numRows
// additional rows from an open cursor.
func EncodeStmtFetch(stmtID uint32, numRows uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ComStmtFetch)
	buffer.WriteNumber(&buf, stmtID, 4)
	buffer.WriteNumber(&buf, numRows, 4)
	return buf.Bytes()
}

// EncodeResetConnection builds a COM_RESET_CONNECTION payload: resets
// session state (transaction, temp tables, prepared statements, session
// variables) while keeping the TCP connection and authentication.
func EncodeResetConnection() []byte { return []byte{ComResetConnection} }

// ChangeUserParams is the input to EncodeChangeUser.
type ChangeUserParams struct {
	Username       string
	AuthResponse   []byte
	Database       string
	CharacterSet   uint8
	AuthPluginName string
	Capabilities   uint32
	ConnectAttributes map[string]string
}

// EncodeChangeUser builds a COM_CHANGE_USER payload, re-authenticating the
// connection as a different user without a fresh TCP/TLS handshake.
func EncodeChangeUser(p ChangeUserParams) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ComChangeUser)
	buffer.WriteNullTerminatedString(&buf, p.Username)
	buf.WriteByte(byte(len(p.AuthResponse)))
	buf.Write(p.AuthResponse)
	buffer.WriteNullTerminatedString(&buf, p.Database)
	buffer.WriteNumber(&buf, p.CharacterSet, 2)
	if p.Capabilities&ClientPluginAuth != 0 {
		buffer.WriteNullTerminatedString(&buf, p.AuthPluginName)
	}
	if p.Capabilities&ClientConnectAttrs != 0 {
		var attrBuf bytes.Buffer
		for k, v := range p.ConnectAttributes {
			buffer.WriteLenencString(&attrBuf, k)
			buffer.WriteLenencString(&attrBuf, v)
		}
		buffer.WriteLenencInt(&buf, uint64(attrBuf.Len()))
		buf.Write(attrBuf.Bytes())
	}
	return buf.Bytes()
}

// EncodeAuthMoreRaw wraps a raw authentication-continuation payload (no
// leading command byte): auth plugin responses sent after the initial
// HandshakeResponse go out as bare packets, not COM_* commands.
func EncodeAuthMoreRaw(data []byte) []byte {
	return append([]byte(nil), data...)
}

// StmtExecuteParam is one bound parameter for COM_STMT_EXECUTE: its wire
// type byte (optionally OR'd with 0x80 by the caller to mark unsigned), and
// its already binary-encoded value (nil for SQL NULL).
type StmtExecuteParam struct {
	Type  uint8
	Value []byte // nil means NULL; no bytes are emitted for it
}

// EncodeStmtExecute builds a COM_STMT_EXECUTE payload. flags is the cursor
// type byte (0x00 = CURSOR_TYPE_NO_CURSOR in the common case).
func EncodeStmtExecute(stmtID uint32, flags uint8, params []StmtExecuteParam) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ComStmtExecute)
	buffer.WriteNumber(&buf, stmtID, 4)
	buf.WriteByte(flags)
	buffer.WriteNumber(&buf, uint32(1), 4) // iteration count, always 1

	if len(params) == 0 {
		return buf.Bytes()
	}

	bitmapLen := (len(params) + 7) / 8
	bitmap := make([]byte, bitmapLen)
	for i, p := range params {
		if p.Value == nil {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	buf.Write(bitmap)
	buf.WriteByte(1) // new-params-bind-flag: always resend types
	for _, p := range params {
		buffer.WriteNumber(&buf, p.Type, 2)
	}
	for _, p := range params {
		if p.Value != nil {
			buf.Write(p.Value)
		}
	}
	return buf.Bytes()
}
