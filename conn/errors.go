package conn

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the connection and the in-flight
// statement should react, per spec section 7. Grounded on the teacher's
// pkg/utils/error.go MapErrorCode, which performs the same
// SQLSTATE/message classification in the server-to-client direction;
// this is the inverse, client-side classification of server-signalled
// errors.
type Kind int

const (
	// KindParsing is malformed wire bytes or an illegal value; always
	// closes the connection.
	KindParsing Kind = iota
	// KindProtocolState is an unexpected message for the current phase;
	// fatal to the connection.
	KindProtocolState
	// KindSyntax is a server-signalled SQLSTATE class 42 error; the
	// statement fails but the connection remains usable.
	KindSyntax
	// KindDataIntegrity covers SQLSTATE classes 23 and 22.
	KindDataIntegrity
	// KindPermissionDenied covers SQLSTATE classes 28 and 42000.
	KindPermissionDenied
	// KindRollback is a SQLSTATE class 40 rollback/serialization failure;
	// transient, connection remains usable.
	KindRollback
	// KindTransientResource covers timeouts, max_connections, broken
	// pipe; the connection is typically closed.
	KindTransientResource
	// KindNonTransientResource covers unknown auth plugin, SSL required
	// but unsupported, and similar setup failures.
	KindNonTransientResource
	// KindServerError is the fallback for an unmapped SQLSTATE: a
	// generic server-side exception carrying the native code and state.
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindParsing:
		return "parsing"
	case KindProtocolState:
		return "protocol_state"
	case KindSyntax:
		return "syntax"
	case KindDataIntegrity:
		return "data_integrity"
	case KindPermissionDenied:
		return "permission_denied"
	case KindRollback:
		return "rollback"
	case KindTransientResource:
		return "transient_resource"
	case KindNonTransientResource:
		return "non_transient_resource"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Error is the taxonomy-tagged error this module returns for anything
// server- or protocol-signalled. Code and SQLState are zero/empty for
// locally-originated errors (framing, protocol state).
type Error struct {
	Kind     Kind
	Message  string
	Code     uint16
	SQLState string
	SQL      string
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.SQLState != "":
		if e.SQL != "" {
			return fmt.Sprintf("conn: [%s] %s (SQLSTATE %s) for statement %q", e.Kind, e.Message, e.SQLState, e.SQL)
		}
		return fmt.Sprintf("conn: [%s] %s (SQLSTATE %s)", e.Kind, e.Message, e.SQLState)
	case e.Cause != nil:
		return fmt.Sprintf("conn: [%s] %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("conn: [%s] %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// ClassifySQLState maps a server-reported SQLSTATE to an error Kind. The
// literal "42000" value is classified as permission-denied ahead of the
// general class-42 syntax bucket, per spec section 7's explicit split
// between "class 42" (syntax) and "28, 42000" (permission denied).
func ClassifySQLState(sqlState string) Kind {
	if sqlState == "42000" {
		return KindPermissionDenied
	}
	if len(sqlState) < 2 {
		return KindServerError
	}
	switch sqlState[:2] {
	case "42":
		return KindSyntax
	case "23", "22":
		return KindDataIntegrity
	case "28":
		return KindPermissionDenied
	case "40":
		return KindRollback
	default:
		return KindServerError
	}
}

// NewServerError builds a classified Error from a server ERR packet's
// fields, attaching the offending SQL text for diagnostics.
func NewServerError(code uint16, sqlState, message, sql string) *Error {
	return &Error{
		Kind:     ClassifySQLState(sqlState),
		Message:  message,
		Code:     code,
		SQLState: sqlState,
		SQL:      sql,
	}
}

// NewParsingError wraps a framing/decode failure; always fatal to the
// connection.
func NewParsingError(cause error) *Error {
	return &Error{Kind: KindParsing, Message: "malformed wire data", Cause: cause}
}

// NewProtocolStateError reports an out-of-sequence server message.
func NewProtocolStateError(message string) *Error {
	return &Error{Kind: KindProtocolState, Message: message}
}

// NewTransientResourceError wraps a timeout or connectivity failure.
func NewTransientResourceError(message string, cause error) *Error {
	return &Error{Kind: KindTransientResource, Message: message, Cause: cause}
}

// NewNonTransientResourceError reports a setup-time failure such as an
// unknown auth plugin or an unsupported SSL requirement.
func NewNonTransientResourceError(message string) *Error {
	return &Error{Kind: KindNonTransientResource, Message: message}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
