// Package stream implements the demand-driven row pipeline spec section
// 9 calls for in place of the source driver's reactive Flux/Mono types:
// request(n) pulls up to n rows, cancel drains the current result set to
// its wire terminator so the connection stays frame-aligned, and
// multi-result-set chaining is a sequence of window cuts rather than a
// single terminator.
//
// The connection model (spec section 5) is cooperative and single-owner
// per connection with exactly one command in flight at a time, so this is
// built as a synchronous pull rather than a goroutine/channel pipeline:
// Request blocks the caller's own goroutine while it reads from the wire,
// which is exactly the behavior a single-owner connection wants.
package stream

import "fmt"

// Row is one assembled, codec-decoded result row.
type Row []any

// PullFunc reads the next row of the current result set from the wire.
// ok is false once the terminator (EOF/OK) has been consumed.
type PullFunc func() (row Row, ok bool, err error)

// NextResultFunc advances to the next result set in a
// CLIENT_MULTI_STATEMENTS/CLIENT_MULTI_RESULTS chain. ok is false when
// the command produced no further result sets.
type NextResultFunc func() (next PullFunc, ok bool, err error)

// Pipeline is one command's row stream, possibly chained across several
// result sets.
type Pipeline struct {
	pull       PullFunc
	nextResult NextResultFunc
	buffered   []Row
	ended      bool
	cancelled  bool
}

// NewPipeline wraps pull (and, for multi-result commands, nextResult)
// into a demand-driven Pipeline.
func NewPipeline(pull PullFunc, nextResult NextResultFunc) *Pipeline {
	return &Pipeline{pull: pull, nextResult: nextResult}
}

// Request delivers up to n rows of the current result set, buffering any
// extra rows pulled off the wire for the next call. more reports whether
// further rows remain (either buffered or still to be pulled).
func (p *Pipeline) Request(n int) (rows []Row, more bool, err error) {
	if p.cancelled {
		return nil, false, fmt.Errorf("stream: pipeline was cancelled")
	}
	for len(p.buffered) < n && !p.ended {
		row, ok, err := p.pull()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			p.ended = true
			break
		}
		p.buffered = append(p.buffered, row)
	}
	take := n
	if take > len(p.buffered) {
		take = len(p.buffered)
	}
	rows = p.buffered[:take]
	p.buffered = p.buffered[take:]
	return rows, len(p.buffered) > 0 || !p.ended, nil
}

// Cancel is idempotent; it drains the current result set to its wire
// terminator (discarding rows) so the connection remains frame-aligned,
// then releases the buffer and marks all subsequent rows as discarded.
func (p *Pipeline) Cancel() error {
	if p.cancelled {
		return nil
	}
	p.cancelled = true
	for !p.ended {
		_, ok, err := p.pull()
		if err != nil {
			return err
		}
		if !ok {
			p.ended = true
		}
	}
	p.buffered = nil
	return nil
}

// TakePull returns the pipeline's current row-pull function, for a caller
// (the connection engine) chaining a freshly built Pipeline's rows into an
// outer, already-in-progress Pipeline's result-set sequence.
func (p *Pipeline) TakePull() PullFunc { return p.pull }

// HasNextResult reports whether this pipeline has a chaining function at
// all (CLIENT_MULTI_STATEMENTS/CLIENT_MULTI_RESULTS support was wired in
// for this command). For a command whose result kind is only known once
// its own terminator is read (a tabular result set), that function may
// still report no further result set once invoked — NextResult's own
// return value, not this method, is the authoritative answer; treat a
// true here as "worth calling NextResult to find out", not a guarantee.
func (p *Pipeline) HasNextResult() bool {
	return !p.cancelled && p.nextResult != nil
}

// NextResult advances the pipeline to the next result set, returning
// false once the chain is exhausted.
func (p *Pipeline) NextResult() (bool, error) {
	if p.cancelled || p.nextResult == nil {
		return false, nil
	}
	if !p.ended {
		// Draining to the current terminator keeps the wire aligned
		// before cutting to the next window.
		for !p.ended {
			_, ok, err := p.pull()
			if err != nil {
				return false, err
			}
			if !ok {
				p.ended = true
			}
		}
	}
	next, ok, err := p.nextResult()
	if err != nil || !ok {
		p.nextResult = nil
		return false, err
	}
	p.pull = next
	p.ended = false
	p.buffered = nil
	return true, nil
}
