package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerTakeWrapsModulo256(t *testing.T) {
	var seq Sequencer
	seq.Reset(254)
	assert.Equal(t, uint8(254), seq.Take())
	assert.Equal(t, uint8(255), seq.Take())
	assert.Equal(t, uint8(0), seq.Take())
}

func TestWriteMessageThenReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	var seq Sequencer
	fw := NewFrameWriter(&buf, &seq)
	require.NoError(t, fw.WriteMessage([]byte("select 1")))

	seq.Reset(0)
	fr := NewFrameReader(&buf, &seq)
	payload, err := fr.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("select 1"), payload)
}

func TestReadPacketRejectsSequenceMismatch(t *testing.T) {
	var buf bytes.Buffer
	var writeSeq Sequencer
	writeSeq.Reset(5)
	fw := NewFrameWriter(&buf, &writeSeq)
	require.NoError(t, fw.WriteMessage([]byte("x")))

	var readSeq Sequencer // expects 0, packet carries 5
	fr := NewFrameReader(&buf, &readSeq)
	_, err := fr.ReadMessage()
	require.Error(t, err)
	var mismatch *ErrSequenceMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint8(0), mismatch.Want)
	assert.Equal(t, uint8(5), mismatch.Got)
}

func TestWriteMessageChunksAtMaxPayloadAndAppendsZeroLengthTerminator(t *testing.T) {
	var buf bytes.Buffer
	var seq Sequencer
	fw := NewFrameWriter(&buf, &seq)

	payload := make([]byte, 2*MaxPayload)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, fw.WriteMessage(payload))

	seq.Reset(0)
	fr := NewFrameReader(&buf, &seq)
	_, seqID, err := fr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), seqID)
	_, seqID, err = fr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), seqID)
	last, seqID, err := fr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), seqID)
	assert.Empty(t, last)
}

func TestWriteMessageShorterThanMaxPayloadIsSinglePacket(t *testing.T) {
	var buf bytes.Buffer
	var seq Sequencer
	fw := NewFrameWriter(&buf, &seq)
	require.NoError(t, fw.WriteMessage([]byte("ok")))
	assert.Equal(t, uint8(1), seq.Peek())
}
