package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// MaxPayload is the largest payload a single physical packet can carry
// (16 MiB - 1); a logical message larger than this is split across
// continuation packets, each but the last exactly MaxPayload bytes.
const MaxPayload = MaxPacketPayloadBytes

// Sequencer is the per-connection monotonic packet sequence-id counter,
// mod 256. It resets to 0 at the start of every command boundary: a new
// COM_* request, or the start of a server-initiated phase such as the
// handshake/auth exchange.
type Sequencer struct {
	next uint8
}

// Reset sets the sequencer back to the given starting id (0 in all normal
// cases; the handshake handler may also reset to continue after SSL
// negotiation).
func (s *Sequencer) Reset(start uint8) { s.next = start }

// Peek returns the id that will be used by the next packet without
// consuming it.
func (s *Sequencer) Peek() uint8 { return s.next }

// Take returns the next sequence id and advances the counter, wrapping mod
// 256.
func (s *Sequencer) Take() uint8 {
	id := s.next
	s.next++
	return id
}

// ErrSequenceMismatch is a fatal protocol error: the server sent a packet
// whose sequence id didn't match what the client expected. Per spec 4.1,
// this closes the connection.
type ErrSequenceMismatch struct {
	Want, Got uint8
}

func (e *ErrSequenceMismatch) Error() string {
	return fmt.Sprintf("protocol: sequence id mismatch: want %d, got %d", e.Want, e.Got)
}

// FrameReader reads logical (possibly multi-packet) messages off a duplex
// byte stream, verifying and advancing a Sequencer as it goes.
type FrameReader struct {
	r   *bufio.Reader
	seq *Sequencer
}

// NewFrameReader wraps r (a TCP or TLS duplex stream) for frame-level
// reads, using seq to track and verify sequence ids.
func NewFrameReader(r io.Reader, seq *Sequencer) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 16*1024), seq: seq}
}

// ReadPacket reads exactly one physical packet: a 3-byte LE length, a
// 1-byte sequence id, and that many payload bytes. It does not reassemble
// continuations; use ReadMessage for that.
func (f *FrameReader) ReadPacket() (payload []byte, seqID uint8, err error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		return nil, 0, err
	}
	length := uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16
	seqID = header[3]

	want := f.seq.Peek()
	if seqID != want {
		return nil, 0, &ErrSequenceMismatch{Want: want, Got: seqID}
	}
	f.seq.Take()

	payload = make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, 0, err
	}
	return payload, seqID, nil
}

// ReadMessage reads a complete logical message, transparently reassembling
// continuation packets: a packet whose length equals MaxPayload is followed
// by another packet belonging to the same message; reassembly ends at the
// first packet shorter than MaxPayload (including a zero-length terminator
// packet when the message's total length is an exact multiple of
// MaxPayload).
func (f *FrameReader) ReadMessage() ([]byte, error) {
	var assembled []byte
	for {
		payload, _, err := f.ReadPacket()
		if err != nil {
			return nil, err
		}
		assembled = append(assembled, payload...)
		if len(payload) < MaxPayload {
			return assembled, nil
		}
	}
}

// FrameWriter writes logical messages as one or more physical packets,
// chunking payloads longer than MaxPayload and advancing a Sequencer.
type FrameWriter struct {
	w   io.Writer
	seq *Sequencer
}

// NewFrameWriter wraps w for frame-level writes, using seq to assign
// sequence ids.
func NewFrameWriter(w io.Writer, seq *Sequencer) *FrameWriter {
	return &FrameWriter{w: w, seq: seq}
}

// WriteMessage writes payload as one or more packets: payloads shorter than
// MaxPayload go out as a single packet; longer payloads are chunked into
// MaxPayload-sized pieces, each consuming the next sequence id, with a
// trailing zero-length packet appended when len(payload) is an exact
// multiple of MaxPayload (so the reader can tell the message is complete
// rather than awaiting a further continuation).
func (f *FrameWriter) WriteMessage(payload []byte) error {
	if len(payload) < MaxPayload {
		return f.writePacket(payload)
	}
	offset := 0
	for offset < len(payload) {
		end := offset + MaxPayload
		if end > len(payload) {
			end = len(payload)
		}
		if err := f.writePacket(payload[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	if len(payload)%MaxPayload == 0 {
		if err := f.writePacket(nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *FrameWriter) writePacket(payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("protocol: packet payload %d exceeds max %d", len(payload), MaxPayload)
	}
	seqID := f.seq.Take()
	header := [4]byte{
		byte(len(payload)),
		byte(len(payload) >> 8),
		byte(len(payload) >> 16),
		seqID,
	}
	if _, err := f.w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := f.w.Write(payload)
	return err
}
