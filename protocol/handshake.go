package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kasuganosora/mariadb-proto/buffer"
)

// HandshakeV10 is the decoded initial handshake packet the server sends
// immediately after the TCP connection is established.
type HandshakeV10 struct {
	ProtocolVersion uint8
	ServerVersion   ServerVersion
	ThreadID        uint32
	authDataPart1   [8]byte
	CapabilitiesLow uint16
	CharacterSet    uint8
	StatusFlags     uint16
	CapabilitiesHigh uint16
	MariaDBExtendedCapabilities uint32
	authDataPart2   []byte
	AuthPluginName  string
}

// Capabilities returns the 32-bit standard capability mask the server
// advertised (low 16 | high 16 << 16).
func (h *HandshakeV10) Capabilities() uint32 {
	return uint32(h.CapabilitiesLow) | uint32(h.CapabilitiesHigh)<<16
}

// Seed returns the full authentication seed: the 8-byte first part plus the
// variable-length second part, with any trailing NUL terminator trimmed.
func (h *HandshakeV10) Seed() []byte {
	seed := append([]byte{}, h.authDataPart1[:]...)
	part2 := h.authDataPart2
	if n := len(part2); n > 0 && part2[n-1] == 0 {
		part2 = part2[:n-1]
	}
	return append(seed, part2...)
}

// DecodeHandshakeV10 decodes the server's initial handshake packet.
func DecodeHandshakeV10(payload []byte) (*HandshakeV10, error) {
	r := bytes.NewReader(payload)
	h := &HandshakeV10{}

	protoVersion, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, fmt.Errorf("protocol: handshake protocol version: %w", err)
	}
	h.ProtocolVersion = protoVersion
	if h.ProtocolVersion != 0x0a {
		return nil, fmt.Errorf("protocol: unsupported handshake protocol version %d", h.ProtocolVersion)
	}

	rawVersion, err := buffer.ReadNullTerminatedString(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: handshake server version: %w", err)
	}
	h.ServerVersion = ParseServerVersion(rawVersion)

	if h.ThreadID, err = buffer.ReadNumber[uint32](r, 4); err != nil {
		return nil, fmt.Errorf("protocol: handshake thread id: %w", err)
	}
	if _, err := io.ReadFull(r, h.authDataPart1[:]); err != nil {
		return nil, fmt.Errorf("protocol: handshake auth data part 1: %w", err)
	}
	// filler byte (0x00)
	if _, err := buffer.ReadNumber[uint8](r, 1); err != nil {
		return nil, fmt.Errorf("protocol: handshake filler: %w", err)
	}
	if h.CapabilitiesLow, err = buffer.ReadNumber[uint16](r, 2); err != nil {
		return nil, fmt.Errorf("protocol: handshake capability flags (low): %w", err)
	}
	if h.CharacterSet, err = buffer.ReadNumber[uint8](r, 1); err != nil {
		return nil, fmt.Errorf("protocol: handshake character set: %w", err)
	}
	if h.StatusFlags, err = buffer.ReadNumber[uint16](r, 2); err != nil {
		return nil, fmt.Errorf("protocol: handshake status flags: %w", err)
	}
	if h.CapabilitiesHigh, err = buffer.ReadNumber[uint16](r, 2); err != nil {
		return nil, fmt.Errorf("protocol: handshake capability flags (high): %w", err)
	}
	authDataLen, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, fmt.Errorf("protocol: handshake auth data length: %w", err)
	}
	// 6 reserved zero bytes, then 4 bytes MariaDB extended server
	// capabilities (0 on vanilla MySQL servers).
	var reserved [6]byte
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return nil, fmt.Errorf("protocol: handshake reserved bytes: %w", err)
	}
	if h.MariaDBExtendedCapabilities, err = buffer.ReadNumber[uint32](r, 4); err != nil {
		return nil, fmt.Errorf("protocol: handshake mariadb extended capabilities: %w", err)
	}

	part2Len := int(authDataLen) - 8
	if part2Len < 13 {
		part2Len = 13
	}
	h.authDataPart2 = make([]byte, part2Len)
	if _, err := io.ReadFull(r, h.authDataPart2); err != nil {
		return nil, fmt.Errorf("protocol: handshake auth data part 2: %w", err)
	}

	if h.Capabilities()&uint32(ClientPluginAuth) != 0 {
		name, err := buffer.ReadNullTerminatedString(r)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("protocol: handshake auth plugin name: %w", err)
		}
		h.AuthPluginName = name
	}
	return h, nil
}

// HandshakeResponseParams is the input to EncodeHandshakeResponse.
type HandshakeResponseParams struct {
	ClientCapabilities          uint32
	MariaDBExtendedCapabilities uint32
	MaxPacketSize               uint32
	CharacterSet                uint8
	Username                    string
	AuthResponse                []byte
	Database                    string
	AuthPluginName              string
	ConnectAttributes           map[string]string
}

// EncodeHandshakeResponse builds the client's HandshakeResponse41 packet
// payload.
func EncodeHandshakeResponse(p HandshakeResponseParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := buffer.WriteNumber(&buf, p.ClientCapabilities, 4); err != nil {
		return nil, err
	}
	if err := buffer.WriteNumber(&buf, p.MaxPacketSize, 4); err != nil {
		return nil, err
	}
	buf.WriteByte(p.CharacterSet)
	// 19 reserved bytes, then the 4-byte MariaDB extended capabilities.
	buf.Write(make([]byte, 19))
	if err := buffer.WriteNumber(&buf, p.MariaDBExtendedCapabilities, 4); err != nil {
		return nil, err
	}
	if err := buffer.WriteNullTerminatedString(&buf, p.Username); err != nil {
		return nil, err
	}

	switch {
	case p.ClientCapabilities&ClientPluginAuthLenencClientData != 0:
		if err := buffer.WriteLenencInt(&buf, uint64(len(p.AuthResponse))); err != nil {
			return nil, err
		}
		buf.Write(p.AuthResponse)
	case p.ClientCapabilities&ClientSecureConnection != 0:
		buf.WriteByte(byte(len(p.AuthResponse)))
		buf.Write(p.AuthResponse)
	default:
		buf.Write(p.AuthResponse)
		buf.WriteByte(0)
	}

	if p.ClientCapabilities&ClientConnectWithDB != 0 {
		if err := buffer.WriteNullTerminatedString(&buf, p.Database); err != nil {
			return nil, err
		}
	}
	if p.ClientCapabilities&ClientPluginAuth != 0 {
		if err := buffer.WriteNullTerminatedString(&buf, p.AuthPluginName); err != nil {
			return nil, err
		}
	}
	if p.ClientCapabilities&ClientConnectAttrs != 0 {
		var attrBuf bytes.Buffer
		for k, v := range p.ConnectAttributes {
			if err := buffer.WriteLenencString(&attrBuf, k); err != nil {
				return nil, err
			}
			if err := buffer.WriteLenencString(&attrBuf, v); err != nil {
				return nil, err
			}
		}
		if err := buffer.WriteLenencInt(&buf, uint64(attrBuf.Len())); err != nil {
			return nil, err
		}
		buf.Write(attrBuf.Bytes())
	}
	return buf.Bytes(), nil
}

// SSLRequest builds the abbreviated SSLRequest packet payload sent before
// TLS negotiation begins, when the server advertises ClientSSL and TLS was
// requested.
func SSLRequest(clientCapabilities, mariaDBCapabilities uint32, maxPacketSize uint32, characterSet uint8) []byte {
	var buf bytes.Buffer
	buffer.WriteNumber(&buf, clientCapabilities, 4)
	buffer.WriteNumber(&buf, maxPacketSize, 4)
	buf.WriteByte(characterSet)
	buf.Write(make([]byte, 19))
	buffer.WriteNumber(&buf, mariaDBCapabilities, 4)
	return buf.Bytes()
}
