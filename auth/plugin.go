// Package auth implements the client-side authentication plugins exchanged
// during the MariaDB/MySQL handshake: mysql_native_password,
// mysql_clear_password, caching_sha2_password, and client_ed25519.
package auth

import (
	"fmt"
	"sync"
)

// Plugin is the contract an authentication plugin implements: given the password and the server's seed, produce the
// initial auth response carried in HandshakeResponse41; given further
// server AuthMoreData (or a fresh seed from an AuthSwitchRequest),
// produce the next client message. A plugin is terminal once Continue
// reports done, or once the server sends OK.
type Plugin interface {
	// Name is the plugin name as advertised by the server
	// (e.g. "mysql_native_password").
	Name() string
	// Start computes the auth response bytes for the initial
	// HandshakeResponse, given the server's challenge seed.
	Start(password string, seed []byte) ([]byte, error)
	// Continue processes one round of AuthMoreData from the server and
	// returns the next client message. secureChannel reports whether the
	// underlying connection is TLS or a Unix domain socket, which some
	// plugins require before sending a password in the clear.
	Continue(password string, seed []byte, serverData []byte, secureChannel bool) (response []byte, done bool, err error)
}

// Registry is a concurrency-safe name-to-plugin dispatch table, mirroring
// the registration pattern the teacher uses for its command-handler
// registry.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry builds an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under its own Name(), erroring on a duplicate.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("auth: cannot register nil plugin")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.Name()]; exists {
		return fmt.Errorf("auth: plugin %q already registered", p.Name())
	}
	r.plugins[p.Name()] = p
	return nil
}

// Get looks up a plugin by the name the server advertised.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// DefaultRegistry returns a registry pre-loaded with the four supported
// plugins.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Plugin{
		NativePasswordPlugin{},
		ClearPasswordPlugin{},
		CachingSha2PasswordPlugin{},
		Ed25519Plugin{},
	} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}
