package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineHappyPath(t *testing.T) {
	path := []State{
		StateConnecting,
		StateHandshakeReceived,
		StateAuthenticating,
		StateReady,
		StateCommandInFlight,
		StateReady,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, Transition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestStateMachineAuthSwitchLoop(t *testing.T) {
	assert.NoError(t, Transition(StateAuthenticating, StateAuthSwitch))
	assert.NoError(t, Transition(StateAuthSwitch, StateAuthenticating))
	assert.NoError(t, Transition(StateAuthSwitch, StateReady))
}

func TestStateMachineRejectsIllegalEdges(t *testing.T) {
	assert.Error(t, Transition(StateConnecting, StateReady))
	assert.Error(t, Transition(StateReady, StateAuthenticating))
	assert.Error(t, Transition(StateCommandInFlight, StateAuthSwitch))
}

func TestStateMachineClosedIsAbsorbing(t *testing.T) {
	for _, s := range []State{
		StateConnecting, StateHandshakeReceived, StateAuthenticating,
		StateAuthSwitch, StateReady, StateCommandInFlight,
	} {
		assert.NoError(t, Transition(s, StateClosed), "from %s", s)
	}
	assert.Error(t, Transition(StateClosed, StateReady))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "READY", StateReady.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
}
