package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kasuganosora/mariadb-proto/buffer"
)

// ColumnDefinition describes one result-set column, decoded from a
// column-definition (41-protocol) packet.
type ColumnDefinition struct {
	Catalog      string
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	CollationID  uint16
	DisplayWidth uint32
	Type         uint8
	Flags        uint16
	Decimals     uint8
}

func (c *ColumnDefinition) Unsigned() bool  { return c.Flags&FlagUnsigned != 0 }
func (c *ColumnDefinition) Zerofill() bool  { return c.Flags&FlagZerofill != 0 }
func (c *ColumnDefinition) Binary() bool    { return c.Flags&FlagBinary != 0 }
func (c *ColumnDefinition) NotNull() bool   { return c.Flags&FlagNotNull != 0 }

// DecodeColumnDefinition reads one column-definition packet payload.
func DecodeColumnDefinition(payload []byte) (*ColumnDefinition, error) {
	r := bytes.NewReader(payload)
	col := &ColumnDefinition{}
	var err error
	if col.Catalog, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column catalog: %w", err)
	}
	if col.Schema, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column schema: %w", err)
	}
	if col.Table, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column table: %w", err)
	}
	if col.OrgTable, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column org_table: %w", err)
	}
	if col.Name, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column name: %w", err)
	}
	if col.OrgName, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: column org_name: %w", err)
	}
	// length-of-fixed-length-fields, always 0x0c, then the fixed block.
	if _, err = buffer.ReadLenencInt(r); err != nil {
		return nil, fmt.Errorf("protocol: column fixed-length marker: %w", err)
	}
	collation, err := buffer.ReadNumber[uint16](r, 2)
	if err != nil {
		return nil, fmt.Errorf("protocol: column collation: %w", err)
	}
	col.CollationID = collation
	if col.DisplayWidth, err = buffer.ReadNumber[uint32](r, 4); err != nil {
		return nil, fmt.Errorf("protocol: column length: %w", err)
	}
	typeByte, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, fmt.Errorf("protocol: column type: %w", err)
	}
	col.Type = typeByte
	if col.Flags, err = buffer.ReadNumber[uint16](r, 2); err != nil {
		return nil, fmt.Errorf("protocol: column flags: %w", err)
	}
	if col.Decimals, err = buffer.ReadNumber[uint8](r, 1); err != nil {
		return nil, fmt.Errorf("protocol: column decimals: %w", err)
	}
	// 2 filler bytes.
	var filler [2]byte
	if _, err := io.ReadFull(r, filler[:]); err != nil {
		return nil, fmt.Errorf("protocol: column filler: %w", err)
	}
	// A COM_FIELD_LIST response carries a lenenc default value here; a
	// regular result-set column-definition packet does not. Consume it
	// only if bytes remain.
	if r.Len() > 0 {
		if _, err := buffer.ReadLenencString(r); err != nil {
			return nil, fmt.Errorf("protocol: column default value: %w", err)
		}
	}
	return col, nil
}

// OKMessage is a decoded OK packet (header 0x00, or 0xfe when it takes the
// place of the EOF packet that ends a result set under
// CLIENT_DEPRECATE_EOF).
type OKMessage struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  uint16
	Warnings     uint16
	Info         string
	SessionState []SessionStateChange
	Ending       bool
}

func (o *OKMessage) MoreResultsExists() bool {
	return o.StatusFlags&StatusMoreResultsExists != 0
}

// DecodeOK decodes an OK packet payload. capabilities must include
// ClientProtocol41 in the low bits for the status/warnings fields to be
// present, matching real server behavior (every server this client targets
// negotiates 4.1).
func DecodeOK(payload []byte, capabilities uint64) (*OKMessage, error) {
	r := bytes.NewReader(payload)
	header, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	if header != HeaderOK && header != HeaderEOF {
		return nil, fmt.Errorf("protocol: not an OK packet: header 0x%02x", header)
	}
	msg := &OKMessage{Ending: true}
	if msg.AffectedRows, err = buffer.ReadLenencInt(r); err != nil {
		return nil, fmt.Errorf("protocol: OK affected_rows: %w", err)
	}
	if msg.LastInsertID, err = buffer.ReadLenencInt(r); err != nil {
		return nil, fmt.Errorf("protocol: OK last_insert_id: %w", err)
	}
	if capabilities&uint64(ClientProtocol41) != 0 {
		if msg.StatusFlags, err = buffer.ReadNumber[uint16](r, 2); err != nil {
			return nil, fmt.Errorf("protocol: OK status flags: %w", err)
		}
		if msg.Warnings, err = buffer.ReadNumber[uint16](r, 2); err != nil {
			return nil, fmt.Errorf("protocol: OK warnings: %w", err)
		}
	} else if capabilities&uint64(ClientTransactions) != 0 {
		if msg.StatusFlags, err = buffer.ReadNumber[uint16](r, 2); err != nil {
			return nil, fmt.Errorf("protocol: OK status flags: %w", err)
		}
	}
	if r.Len() == 0 {
		return msg, nil
	}
	if msg.Info, err = buffer.ReadLenencString(r); err != nil {
		return nil, fmt.Errorf("protocol: OK info: %w", err)
	}
	if msg.StatusFlags&StatusSessionStateChanged != 0 && r.Len() > 0 {
		stateBlob, err := buffer.ReadLenencString(r)
		if err != nil {
			return nil, fmt.Errorf("protocol: OK session state info: %w", err)
		}
		if msg.SessionState, err = decodeSessionStateChanges(stateBlob); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// ErrMessage is a decoded ERR packet.
type ErrMessage struct {
	Code     uint16
	SQLState string
	Message  string
}

func (e *ErrMessage) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", e.Code, e.SQLState, e.Message)
}

// DecodeErr decodes an ERR packet payload.
func DecodeErr(payload []byte, capabilities uint64) (*ErrMessage, error) {
	r := bytes.NewReader(payload)
	header, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	if header != HeaderErr {
		return nil, fmt.Errorf("protocol: not an ERR packet: header 0x%02x", header)
	}
	msg := &ErrMessage{}
	if msg.Code, err = buffer.ReadNumber[uint16](r, 2); err != nil {
		return nil, fmt.Errorf("protocol: ERR code: %w", err)
	}
	if capabilities&uint64(ClientProtocol41) != 0 {
		marker := make([]byte, 1)
		if _, err := io.ReadFull(r, marker); err != nil {
			return nil, fmt.Errorf("protocol: ERR sqlstate marker: %w", err)
		}
		if marker[0] == '#' {
			state := make([]byte, 5)
			if _, err := io.ReadFull(r, state); err != nil {
				return nil, fmt.Errorf("protocol: ERR sqlstate: %w", err)
			}
			msg.SQLState = string(state)
		} else {
			// No marker: push the byte back by re-reading from one byte
			// earlier. bytes.Reader supports UnreadByte only for the last
			// ReadByte, so just remember this byte and re-splice.
			rest, _ := io.ReadAll(r)
			r = bytes.NewReader(append(marker, rest...))
		}
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: ERR message: %w", err)
	}
	msg.Message = string(rest)
	return msg, nil
}

// EOFMessage is a decoded legacy EOF packet.
type EOFMessage struct {
	Warnings    uint16
	StatusFlags uint16
	Ending      bool
}

func (e *EOFMessage) MoreResultsExists() bool {
	return e.StatusFlags&StatusMoreResultsExists != 0
}

// IsEOFPacket reports whether payload looks like a legacy EOF packet: header
// byte 0xfe and total length under 9 bytes (a binary/text row whose first
// length-encoded byte happens to be 0xfe is always longer than that).
func IsEOFPacket(payload []byte) bool {
	return len(payload) > 0 && payload[0] == HeaderEOF && len(payload) < 9
}

// DecodeEOF decodes a legacy EOF packet payload.
func DecodeEOF(payload []byte, capabilities uint64) (*EOFMessage, error) {
	r := bytes.NewReader(payload)
	header, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	if header != HeaderEOF {
		return nil, fmt.Errorf("protocol: not an EOF packet: header 0x%02x", header)
	}
	msg := &EOFMessage{Ending: true}
	if capabilities&uint64(ClientProtocol41) != 0 {
		if msg.Warnings, err = buffer.ReadNumber[uint16](r, 2); err != nil {
			return nil, fmt.Errorf("protocol: EOF warnings: %w", err)
		}
		if msg.StatusFlags, err = buffer.ReadNumber[uint16](r, 2); err != nil {
			return nil, fmt.Errorf("protocol: EOF status flags: %w", err)
		}
	}
	return msg, nil
}

// LocalInfileMessage is a decoded LOCAL_INFILE request (header 0xfb),
// carrying the filename the server wants the client to stream back.
type LocalInfileMessage struct {
	Filename string
}

// DecodeLocalInfile decodes a LOCAL_INFILE request payload.
func DecodeLocalInfile(payload []byte) (*LocalInfileMessage, error) {
	r := bytes.NewReader(payload)
	header, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	if header != HeaderLocalInfile {
		return nil, fmt.Errorf("protocol: not a LOCAL_INFILE packet: header 0x%02x", header)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &LocalInfileMessage{Filename: string(rest)}, nil
}

// BinaryValueDecoder decodes one non-NULL column value from r for the given
// column definition. Implementations (see package codec) must consume
// exactly the bytes belonging to that value, since binary-protocol rows are
// a flat sequential encoding with no per-value length prefix for fixed-width
// types.
type BinaryValueDecoder func(r io.Reader, col *ColumnDefinition) (any, error)

// DecodeBinaryRow decodes one binary-protocol row: a leading 0x00 byte, a
// NULL bitmap of ceil((columnCount+2)/8) bytes offset by 2 bits, then each
// non-null column's value in turn via decode.
func DecodeBinaryRow(payload []byte, columns []*ColumnDefinition, decode BinaryValueDecoder) ([]any, error) {
	r := bytes.NewReader(payload)
	header, err := buffer.ReadNumber[uint8](r, 1)
	if err != nil {
		return nil, err
	}
	if header != 0x00 {
		return nil, fmt.Errorf("protocol: binary row missing 0x00 header, got 0x%02x", header)
	}
	columnCount := len(columns)
	bitmapLen := (columnCount + 7 + 2) / 8
	bitmap := make([]byte, bitmapLen)
	if _, err := io.ReadFull(r, bitmap); err != nil {
		return nil, fmt.Errorf("protocol: binary row null bitmap: %w", err)
	}

	values := make([]any, columnCount)
	for i, col := range columns {
		bitPos := i + 2
		if bitmap[bitPos/8]&(1<<uint(bitPos%8)) != 0 {
			values[i] = nil
			continue
		}
		v, err := decode(r, col)
		if err != nil {
			return nil, fmt.Errorf("protocol: binary row column %d (%s): %w", i, col.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// DecodeColumnCount reads the leading lenenc integer of a result-set header
// packet: the number of columns that follow.
func DecodeColumnCount(payload []byte) (uint64, error) {
	return buffer.ReadLenencInt(bytes.NewReader(payload))
}

// DecodeTextRow decodes one text-protocol row: columnCount length-encoded
// strings, a nil entry marking SQL NULL (0xfb lenenc prefix).
func DecodeTextRow(payload []byte, columnCount int) ([]*string, error) {
	r := bytes.NewReader(payload)
	row := make([]*string, columnCount)
	for i := 0; i < columnCount; i++ {
		s, err := buffer.ReadLenencString(r)
		if err != nil {
			if err == buffer.ErrNullValue {
				row[i] = nil
				continue
			}
			return nil, fmt.Errorf("protocol: text row column %d: %w", i, err)
		}
		row[i] = &s
	}
	return row, nil
}
