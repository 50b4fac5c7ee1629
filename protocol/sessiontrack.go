package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kasuganosora/mariadb-proto/buffer"
)

// Session-state-change sub-packet types, from the SESSION_TRACK_* family
// carried in an OK packet's session-state-info block when
// CLIENT_SESSION_TRACK is negotiated and StatusSessionStateChanged is set.
const (
	SessionTrackSystemVariables           = 0x00
	SessionTrackSchema                    = 0x01
	SessionTrackStateChange               = 0x02
	SessionTrackGTIDs                     = 0x03
	SessionTrackTransactionCharacteristics = 0x04
	SessionTrackTransactionState          = 0x05
)

// SessionStateChange is one decoded sub-block of an OK packet's
// session-state-info. For SessionTrackSystemVariables, Name/Value hold the
// variable name and its new value; for the other kinds, Value holds the
// single payload string (schema name, "1"/"0" autocommit flag, GTID list,
// etc).
type SessionStateChange struct {
	Kind  uint8
	Name  string
	Value string
}

// decodeSessionStateChanges parses the session-state-info blob (already
// lenenc-unwrapped from the OK packet) into its sub-blocks. Each sub-block
// is: 1-byte kind, lenenc length, then that many bytes of kind-specific
// payload.
func decodeSessionStateChanges(blob string) ([]SessionStateChange, error) {
	r := bytes.NewReader([]byte(blob))
	var changes []SessionStateChange
	for r.Len() > 0 {
		kind, err := buffer.ReadNumber[uint8](r, 1)
		if err != nil {
			return nil, fmt.Errorf("protocol: session state kind: %w", err)
		}
		length, err := buffer.ReadLenencInt(r)
		if err != nil {
			return nil, fmt.Errorf("protocol: session state block length: %w", err)
		}
		block := make([]byte, length)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("protocol: session state block: %w", err)
		}
		change, err := decodeSessionStateBlock(kind, block)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func decodeSessionStateBlock(kind uint8, block []byte) (SessionStateChange, error) {
	change := SessionStateChange{Kind: kind}
	switch kind {
	case SessionTrackSystemVariables:
		br := bytes.NewReader(block)
		name, err := buffer.ReadLenencString(br)
		if err != nil {
			return change, fmt.Errorf("protocol: session state variable name: %w", err)
		}
		value, err := buffer.ReadLenencString(br)
		if err != nil {
			return change, fmt.Errorf("protocol: session state variable value: %w", err)
		}
		change.Name = name
		change.Value = value
	default:
		// Schema/state-change/GTIDs/transaction-characteristics/
		// transaction-state all carry a single lenenc string.
		br := bytes.NewReader(block)
		value, err := buffer.ReadLenencString(br)
		if err != nil {
			return change, fmt.Errorf("protocol: session state value: %w", err)
		}
		change.Value = value
	}
	return change, nil
}
