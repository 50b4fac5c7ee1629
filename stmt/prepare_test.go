package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingValidateRequiresEveryIndex(t *testing.T) {
	b := NewBinding(3)
	require.NoError(t, b.Set(0, 1))
	require.NoError(t, b.Set(2, "three"))
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter 1")

	require.NoError(t, b.Set(1, nil))
	assert.NoError(t, b.Validate())
	assert.Equal(t, []any{1, nil, "three"}, b.Values())
}

func TestBindingSetOutOfRange(t *testing.T) {
	b := NewBinding(1)
	assert.Error(t, b.Set(-1, 1))
	assert.Error(t, b.Set(1, 1))
}

func TestBindingZeroParams(t *testing.T) {
	b := NewBinding(0)
	assert.NoError(t, b.Validate())
}
