package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLiteralBackslashMode(t *testing.T) {
	got := EscapeLiteral("it's a \\test\n", false)
	assert.Equal(t, `'it\'s a \\test\n'`, got)
}

func TestEscapeLiteralNoBackslashMode(t *testing.T) {
	got := EscapeLiteral("it's a \\test", true)
	assert.Equal(t, `'it''s a \test'`, got)
}

func TestEscapeLiteralControlCharacters(t *testing.T) {
	got := EscapeLiteral("a\x00b\x1ac\rd", false)
	assert.Equal(t, `'a\0b\Zc\rd'`, got)
}

func TestZeroPadPositive(t *testing.T) {
	assert.Equal(t, "00042", ZeroPad("42", 5))
}

func TestZeroPadNegative(t *testing.T) {
	assert.Equal(t, "-0042", ZeroPad("-42", 5))
}

func TestZeroPadNoOpWhenAlreadyWideEnough(t *testing.T) {
	assert.Equal(t, "123456", ZeroPad("123456", 3))
}
