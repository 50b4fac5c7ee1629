package conn

import (
	"github.com/kasuganosora/mariadb-proto/codec"
	"github.com/kasuganosora/mariadb-proto/protocol"
	"github.com/kasuganosora/mariadb-proto/stream"
)

// Query issues sql as COM_QUERY and returns a demand-driven pipeline over
// its result set (or sets, when the statement is a multi-statement batch
// or a stored-procedure call).
func (e *Engine) Query(sql string) (*stream.Pipeline, error) {
	if err := e.transition(StateCommandInFlight); err != nil {
		return nil, err
	}
	e.ctx.Seq.Reset(0)
	if err := e.fw.WriteMessage(protocol.EncodeQuery(sql)); err != nil {
		e.state = StateReady
		return nil, NewTransientResourceError("write query", err)
	}
	return e.readResultSet(sql)
}

// readResultSet reads one result-set header (OK, ERR, or a column-count
// lenenc integer) and builds the Pipeline for it, wiring nextResult to
// chain into whatever result set follows when CLIENT_MULTI_RESULTS/
// CLIENT_MULTI_STATEMENTS indicates there is one.
func (e *Engine) readResultSet(sql string) (*stream.Pipeline, error) {
	payload, err := e.fr.ReadMessage()
	if err != nil {
		e.state = StateReady
		return nil, NewParsingError(err)
	}
	if len(payload) == 0 {
		e.state = StateReady
		return nil, NewProtocolStateError("empty result-set header")
	}

	switch payload[0] {
	case protocol.HeaderErr:
		msg, err := protocol.DecodeErr(payload, e.ctx.Capabilities)
		e.state = StateReady
		if err != nil {
			return nil, NewParsingError(err)
		}
		return nil, NewServerError(msg.Code, msg.SQLState, msg.Message, sql)
	case protocol.HeaderOK:
		ok, err := protocol.DecodeOK(payload, e.ctx.Capabilities)
		if err != nil {
			e.state = StateReady
			return nil, NewParsingError(err)
		}
		e.applyOK(ok)
		return e.pipelineFromOK(ok, sql), nil
	case protocol.HeaderLocalInfile:
		return e.handleLocalInfile(payload, sql)
	default:
		return e.readTabularResultSet(payload, sql)
	}
}

// pipelineFromOK builds a pipeline for a command that produced no rows
// (INSERT/UPDATE/DDL/...), chaining into the next result set when the
// server signalled more are coming.
func (e *Engine) pipelineFromOK(ok *protocol.OKMessage, sql string) *stream.Pipeline {
	pull := func() (stream.Row, bool, error) { return nil, false, nil }
	var next stream.NextResultFunc
	if ok.MoreResultsExists() {
		next = func() (stream.PullFunc, bool, error) {
			p, err := e.readResultSet(sql)
			if err != nil {
				return nil, false, err
			}
			return p.TakePull(), true, nil
		}
	} else {
		e.state = StateReady
	}
	return stream.NewPipeline(pull, next)
}

func (e *Engine) handleLocalInfile(payload []byte, sql string) (*stream.Pipeline, error) {
	req, err := protocol.DecodeLocalInfile(payload)
	if err != nil {
		e.state = StateReady
		return nil, NewParsingError(err)
	}
	reader, handlerErr := e.localInfile(req.Filename)
	if handlerErr != nil {
		// An empty packet tells the server the client is declining; it
		// then responds with its own ERR, which we still need to drain.
		if err := e.fw.WriteMessage(nil); err != nil {
			e.state = StateReady
			return nil, NewTransientResourceError("write local infile decline", err)
		}
	} else {
		buf := make([]byte, protocol.MaxPayload)
		for {
			n, readErr := reader.Read(buf)
			if n > 0 {
				if err := e.fw.WriteMessage(buf[:n]); err != nil {
					e.state = StateReady
					return nil, NewTransientResourceError("write local infile chunk", err)
				}
			}
			if readErr != nil {
				break
			}
		}
		if err := e.fw.WriteMessage(nil); err != nil {
			e.state = StateReady
			return nil, NewTransientResourceError("write local infile terminator", err)
		}
	}
	return e.readResultSet(sql)
}

// readTabularResultSet reads the column-definition block and builds a
// pipeline that pulls text-protocol rows on demand.
func (e *Engine) readTabularResultSet(header []byte, sql string) (*stream.Pipeline, error) {
	columnCount, err := protocol.DecodeColumnCount(header)
	if err != nil {
		e.state = StateReady
		return nil, NewParsingError(err)
	}
	columns := make([]*protocol.ColumnDefinition, columnCount)
	for i := range columns {
		payload, err := e.fr.ReadMessage()
		if err != nil {
			e.state = StateReady
			return nil, NewParsingError(err)
		}
		col, err := protocol.DecodeColumnDefinition(payload)
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

	ended := false
	pull := func() (stream.Row, bool, error) {
		if ended {
			return nil, false, nil
		}
		payload, err := e.fr.ReadMessage()
		if err != nil {
			return nil, false, err
		}
		if len(payload) > 0 && (payload[0] == protocol.HeaderErr ||
			(protocol.IsEOFPacket(payload) || (e.ctx.DeprecateEOF() && payload[0] == protocol.HeaderOK))) {
			ended = true
			if payload[0] == protocol.HeaderErr {
				msg, decErr := protocol.DecodeErr(payload, e.ctx.Capabilities)
				if decErr != nil {
					return nil, false, decErr
				}
				return nil, false, NewServerError(msg.Code, msg.SQLState, msg.Message, sql)
			}
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
		raw, decErr := protocol.DecodeTextRow(payload, int(columnCount))
		if decErr != nil {
			return nil, false, decErr
		}
		row := make(stream.Row, len(raw))
		for i, field := range raw {
			if field == nil {
				row[i] = nil
				continue
			}
			v, decErr := e.codecs.DecodeText([]byte(*field), columns[i], codec.HostAny, e.ctx)
			if decErr != nil {
				return nil, false, decErr
			}
			row[i] = v
		}
		return row, true, nil
	}

	// Checked lazily, inside the closure, rather than snapshotted here: at
	// this point the current result set's own terminator (which is what
	// actually carries the authoritative MoreResultsExists flag) hasn't
	// been read yet.
	next := func() (stream.PullFunc, bool, error) {
		if !e.ctx.HasStatus(protocol.StatusMoreResultsExists) {
			e.state = StateReady
			return nil, false, nil
		}
		p, err := e.readResultSet(sql)
		if err != nil {
			return nil, false, err
		}
		return p.TakePull(), true, nil
	}
	return stream.NewPipeline(pull, next), nil
}
