package conn

import (
	"bytes"
	"fmt"

	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/kasuganosora/mariadb-proto/stmt"
	"github.com/kasuganosora/mariadb-proto/stream"
)

// Prepare issues COM_STMT_PREPARE for sql, or returns a cached handle for
// an identical, exact-text match (spec section 4.6's prepared-statement
// cache).
func (e *Engine) Prepare(sql string) (*stmt.Handle, error) {
	if h, ok := e.prepareCache.Get(sql); ok {
		return h, nil
	}
	if err := e.transition(StateCommandInFlight); err != nil {
		return nil, err
	}
	defer func() {
		if e.state == StateCommandInFlight {
			e.state = StateReady
		}
	}()

	e.ctx.Seq.Reset(0)
	if err := e.fw.WriteMessage(protocol.EncodeStmtPrepare(sql)); err != nil {
		return nil, NewTransientResourceError("write stmt prepare", err)
	}
	payload, err := e.fr.ReadMessage()
	if err != nil {
		return nil, NewParsingError(err)
	}
	if len(payload) > 0 && payload[0] == protocol.HeaderErr {
		msg, decErr := protocol.DecodeErr(payload, e.ctx.Capabilities)
		if decErr != nil {
			return nil, NewParsingError(decErr)
		}
		return nil, NewServerError(msg.Code, msg.SQLState, msg.Message, sql)
	}

	result, err := e.decodeStmtPrepareOK(payload, sql)
	if err != nil {
		return nil, err
	}
	return e.prepareCache.Insert(result), nil
}

// decodeStmtPrepareOK parses the COM_STMT_PREPARE_OK response: a fixed
// header followed by the parameter and result column-definition blocks,
// each terminated by an EOF packet unless CLIENT_DEPRECATE_EOF was
// negotiated.
func (e *Engine) decodeStmtPrepareOK(header []byte, sql string) (*stmt.ServerPrepareResult, error) {
	r := bytes.NewReader(header)
	var status uint8
	if err := readByte(r, &status); err != nil || status != protocol.HeaderOK {
		return nil, NewParsingError(fmt.Errorf("protocol: malformed COM_STMT_PREPARE_OK header"))
	}
	statementID, numColumns, numParams, warnings, err := parsePrepareOKFixedFields(r)
	if err != nil {
		return nil, NewParsingError(err)
	}
	_ = warnings

	params, err := e.readColumnBlock(int(numParams))
	if err != nil {
		return nil, err
	}
	columns, err := e.readColumnBlock(int(numColumns))
	if err != nil {
		return nil, err
	}
	return &stmt.ServerPrepareResult{
		StatementID:      statementID,
		SQL:              sql,
		ParameterColumns: params,
		ResultColumns:    columns,
	}, nil
}

func (e *Engine) readColumnBlock(count int) ([]*protocol.ColumnDefinition, error) {
	if count == 0 {
		return nil, nil
	}
	cols := make([]*protocol.ColumnDefinition, count)
	for i := range cols {
		payload, err := e.fr.ReadMessage()
		if err != nil {
			return nil, NewParsingError(err)
		}
		col, err := protocol.DecodeColumnDefinition(payload)
		if err != nil {
			return nil, NewParsingError(err)
		}
		cols[i] = col
	}
	if !e.ctx.DeprecateEOF() {
		if _, err := e.fr.ReadMessage(); err != nil {
			return nil, NewParsingError(err)
		}
	}
	return cols, nil
}

// Execute runs a prepared statement's bound parameters over
// COM_STMT_EXECUTE and returns its result pipeline.
func (e *Engine) Execute(h *stmt.Handle, binding *stmt.Binding) (*stream.Pipeline, error) {
	if err := binding.Validate(); err != nil {
		return nil, NewNonTransientResourceError(err.Error())
	}
	result := h.Result()

	params, err := e.encodeParams(binding.Values())
	if err != nil {
		return nil, NewNonTransientResourceError(err.Error())
	}

	if err := e.transition(StateCommandInFlight); err != nil {
		return nil, err
	}
	e.ctx.Seq.Reset(0)
	payload := protocol.EncodeStmtExecute(result.StatementID, 0x00, params)
	if err := e.fw.WriteMessage(payload); err != nil {
		e.state = StateReady
		return nil, NewTransientResourceError("write stmt execute", err)
	}
	return e.readBinaryResultSet(result)
}

func (e *Engine) encodeParams(values []any) ([]protocol.StmtExecuteParam, error) {
	params := make([]protocol.StmtExecuteParam, len(values))
	for i, v := range values {
		if v == nil {
			params[i] = protocol.StmtExecuteParam{Type: protocol.TypeNull, Value: nil}
			continue
		}
		var buf bytes.Buffer
		wireType, err := e.codecs.EncodeParam(&buf, v, e.ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		params[i] = protocol.StmtExecuteParam{Type: wireType, Value: buf.Bytes()}
	}
	return params, nil
}

// readBinaryResultSet mirrors readTabularResultSet for the binary
// protocol: COM_STMT_EXECUTE either returns an OK (no result set) or a
// column-count header followed by column definitions and binary rows.
func (e *Engine) readBinaryResultSet(result *stmt.ServerPrepareResult) (*stream.Pipeline, error) {
	payload, err := e.fr.ReadMessage()
	if err != nil {
		e.state = StateReady
		return nil, NewParsingError(err)
	}
	if len(payload) == 0 {
		e.state = StateReady
		return nil, NewProtocolStateError("empty result-set header")
	}
	if payload[0] == protocol.HeaderErr {
		msg, decErr := protocol.DecodeErr(payload, e.ctx.Capabilities)
		e.state = StateReady
		if decErr != nil {
			return nil, NewParsingError(decErr)
		}
		return nil, NewServerError(msg.Code, msg.SQLState, msg.Message, result.SQL)
	}
	if payload[0] == protocol.HeaderOK {
		ok, decErr := protocol.DecodeOK(payload, e.ctx.Capabilities)
		if decErr != nil {
			e.state = StateReady
			return nil, NewParsingError(decErr)
		}
		e.applyOK(ok)
		return e.pipelineFromOK(ok, result.SQL), nil
	}

	columnCount, err := protocol.DecodeColumnCount(payload)
	if err != nil {
		e.state = StateReady
		return nil, NewParsingError(err)
	}
	columns := make([]*protocol.ColumnDefinition, columnCount)
	for i := range columns {
		p, err := e.fr.ReadMessage()
		if err != nil {
			e.state = StateReady
			return nil, NewParsingError(err)
		}
		col, err := protocol.DecodeColumnDefinition(p)
		if err != nil {
			e.state = StateReady
			return nil, NewParsingError(err)
		}
		columns[i] = col
	}
	if !e.ctx.DeprecateEOF() {
		if _, err := e.fr.ReadMessage(); err != nil {
			e.state = StateReady
			return nil, NewParsingError(err)
		}
	}

	decode := e.codecs.BinaryValueDecoder(e.ctx)
	ended := false
	pull := func() (stream.Row, bool, error) {
		if ended {
			return nil, false, nil
		}
		payload, err := e.fr.ReadMessage()
		if err != nil {
			return nil, false, err
		}
		if len(payload) > 0 && payload[0] == protocol.HeaderErr {
			ended = true
			msg, decErr := protocol.DecodeErr(payload, e.ctx.Capabilities)
			if decErr != nil {
				return nil, false, decErr
			}
			return nil, false, NewServerError(msg.Code, msg.SQLState, msg.Message, result.SQL)
		}
		// Binary rows always start with 0x00, so only a 0xfe-headed packet
		// ends the result set: a legacy EOF, or the OK packet that takes its
		// place under CLIENT_DEPRECATE_EOF.
		if len(payload) > 0 && payload[0] == protocol.HeaderEOF && (protocol.IsEOFPacket(payload) || e.ctx.DeprecateEOF()) {
			ended = true
			if e.ctx.DeprecateEOF() {
				ok, decErr := protocol.DecodeOK(payload, e.ctx.Capabilities)
				if decErr != nil {
					return nil, false, decErr
				}
				e.applyOK(ok)
			} else {
				eof, decErr := protocol.DecodeEOF(payload, e.ctx.Capabilities)
				if decErr != nil {
					return nil, false, decErr
				}
				e.ctx.StatusFlags = eof.StatusFlags
			}
			if !e.ctx.HasStatus(protocol.StatusMoreResultsExists) {
				e.state = StateReady
			}
			return nil, false, nil
		}
		values, decErr := protocol.DecodeBinaryRow(payload, columns, decode)
		if decErr != nil {
			return nil, false, decErr
		}
		return stream.Row(values), true, nil
	}

	next := func() (stream.PullFunc, bool, error) {
		if !e.ctx.HasStatus(protocol.StatusMoreResultsExists) {
			e.state = StateReady
			return nil, false, nil
		}
		p, err := e.readBinaryResultSet(result)
		if err != nil {
			return nil, false, err
		}
		return p.TakePull(), true, nil
	}
	return stream.NewPipeline(pull, next), nil
}

func readByte(r *bytes.Reader, out *uint8) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	*out = b
	return nil
}

func parsePrepareOKFixedFields(r *bytes.Reader) (statementID uint32, numColumns, numParams uint16, warnings uint16, err error) {
	var idBuf [4]byte
	if _, err = readFull(r, idBuf[:]); err != nil {
		return
	}
	statementID = uint32(idBuf[0]) | uint32(idBuf[1])<<8 | uint32(idBuf[2])<<16 | uint32(idBuf[3])<<24

	var u16 [2]byte
	if _, err = readFull(r, u16[:]); err != nil {
		return
	}
	numColumns = uint16(u16[0]) | uint16(u16[1])<<8

	if _, err = readFull(r, u16[:]); err != nil {
		return
	}
	numParams = uint16(u16[0]) | uint16(u16[1])<<8

	if _, err = r.ReadByte(); err != nil { // filler
		return
	}

	if _, err = readFull(r, u16[:]); err != nil {
		return
	}
	warnings = uint16(u16[0]) | uint16(u16[1])<<8
	return
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		b, err := r.ReadByte()
		if err != nil {
			return n, err
		}
		buf[n] = b
		n++
	}
	return n, nil
}
