package protocol

import "github.com/google/uuid"

// Context is the per-connection state visible to codecs and message
// builders: server identity, negotiated capabilities, collations, and the
// packet sequencer. It is created once per connection by the state machine
// and mutated only between command boundaries — never concurrently with a
// command in flight (see spec 3, "Context").
type Context struct {
	TraceID uuid.UUID

	ServerVersion ServerVersion
	SupportReturning bool

	// Capabilities is the full 64-bit negotiated capability mask: the low
	// 32 bits are the standard MySQL capabilities, the high 32 are the
	// MariaDB-extended capabilities, present only when both ends negotiate
	// ClientCapabilityExtension.
	Capabilities uint64

	ThreadID uint32

	ClientCollation  uint8
	ResultsCollation uint8

	StatusFlags uint16

	Seq *Sequencer
}

// NewContext creates a fresh per-connection Context. TraceID is generated
// once, for correlating log lines across the connection's lifetime.
func NewContext() *Context {
	return &Context{
		TraceID: uuid.New(),
		Seq:     &Sequencer{},
	}
}

// HasCapability reports whether bit is set in the negotiated capability
// mask. Bit values from the low-32 ClientXxx constants and the high-32
// MariaClientXxx constants (pre-shifted by the caller) are both accepted.
func (c *Context) HasCapability(bit uint64) bool {
	return c.Capabilities&bit != 0
}

// HasStatus reports whether flag is set in the most recently observed
// server status flags (from the last OK/EOF packet).
func (c *Context) HasStatus(flag uint16) bool {
	return c.StatusFlags&flag != 0
}

// NoBackslashEscapes reports whether the server's sql_mode currently
// disables backslash escaping of string literals.
func (c *Context) NoBackslashEscapes() bool {
	return c.HasStatus(StatusNoBackslashEscapes)
}

// DeprecateEOF reports whether EOF packets have been replaced with OK
// packets for this connection (CLIENT_DEPRECATE_EOF negotiated).
func (c *Context) DeprecateEOF() bool {
	return c.HasCapability(ClientDeprecateEOF)
}
