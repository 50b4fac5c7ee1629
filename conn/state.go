package conn

import "fmt"

// State is a node in the connection lifecycle state machine from spec
// section 4.5.
type State int

const (
	StateConnecting State = iota
	StateHandshakeReceived
	StateAuthenticating
	StateAuthSwitch
	StateReady
	StateCommandInFlight
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateHandshakeReceived:
		return "HANDSHAKE_RECEIVED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthSwitch:
		return "AUTH_SWITCH"
	case StateReady:
		return "READY"
	case StateCommandInFlight:
		return "COMMAND_IN_FLIGHT"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// validTransitions enumerates the state machine's edges:
// CONNECTING -> HANDSHAKE_RECEIVED -> AUTHENTICATING -> (AUTH_SWITCH)* ->
// READY -> COMMAND_IN_FLIGHT -> READY | CLOSED, with CLOSED reachable
// from every non-terminal state on a fatal error.
var validTransitions = map[State]map[State]bool{
	StateConnecting: {
		StateHandshakeReceived: true,
		StateClosed:            true,
	},
	StateHandshakeReceived: {
		StateAuthenticating: true,
		StateClosed:         true,
	},
	StateAuthenticating: {
		StateAuthSwitch: true,
		StateReady:      true,
		StateClosed:     true,
	},
	StateAuthSwitch: {
		StateAuthenticating: true,
		StateReady:          true,
		StateClosed:         true,
	},
	StateReady: {
		StateCommandInFlight: true,
		StateClosed:          true,
	},
	StateCommandInFlight: {
		StateReady:  true,
		StateClosed: true,
	},
}

// Transition moves from to next, rejecting any edge not in
// validTransitions; CLOSED is absorbing.
func Transition(from, to State) error {
	if from == StateClosed {
		return fmt.Errorf("conn: connection already closed")
	}
	if !validTransitions[from][to] {
		return fmt.Errorf("conn: illegal state transition %s -> %s", from, to)
	}
	return nil
}
