// Package stmt implements the prepared-statement cache and parameter
// binding used by the binary protocol execute path.
package stmt

import (
	"fmt"

	"github.com/kasuganosora/mariadb-proto/protocol"
)

// ServerPrepareResult is the outcome of a successful COM_STMT_PREPARE:
// the server-assigned statement id and the parameter/result column
// metadata it reported.
type ServerPrepareResult struct {
	StatementID   uint32
	SQL           string
	ParameterColumns []*protocol.ColumnDefinition
	ResultColumns    []*protocol.ColumnDefinition
}

// Binding is a dense, parameter-index-keyed set of values to bind into a
// COM_STMT_EXECUTE. Every parameter position must be set before Validate
// succeeds; a prepared statement with N parameters always binds exactly N
// values (nil stands for SQL NULL).
type Binding struct {
	values []any
	set    []bool
}

// NewBinding allocates a binding for a statement with paramCount
// parameters.
func NewBinding(paramCount int) *Binding {
	return &Binding{
		values: make([]any, paramCount),
		set:    make([]bool, paramCount),
	}
}

// Set binds value at the given zero-based parameter index.
func (b *Binding) Set(index int, value any) error {
	if index < 0 || index >= len(b.values) {
		return fmt.Errorf("stmt: parameter index %d out of range [0,%d)", index, len(b.values))
	}
	b.values[index] = value
	b.set[index] = true
	return nil
}

// Validate ensures every parameter position has been bound.
func (b *Binding) Validate() error {
	for i, ok := range b.set {
		if !ok {
			return fmt.Errorf("stmt: parameter %d was never bound", i)
		}
	}
	return nil
}

// Values returns the dense parameter values in position order.
func (b *Binding) Values() []any {
	return b.values
}
