package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NativePasswordPlugin{}))

	p, ok := reg.Get("mysql_native_password")
	require.True(t, ok)
	assert.Equal(t, "mysql_native_password", p.Name())

	_, ok = reg.Get("unknown_plugin")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NativePasswordPlugin{}))
	assert.Error(t, reg.Register(NativePasswordPlugin{}))
}

func TestRegistryRejectsNil(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
}

func TestDefaultRegistryHasAllFourPlugins(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range []string{
		"mysql_native_password",
		"mysql_clear_password",
		"caching_sha2_password",
		"client_ed25519",
	} {
		_, ok := reg.Get(name)
		assert.True(t, ok, "expected plugin %q to be registered", name)
	}
}
