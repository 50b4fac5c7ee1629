// Package conn implements the connection state machine that drives a
// single MariaDB/MySQL client connection: handshake, authentication,
// command dispatch, and the post-login setup pipeline.
package conn

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SSLMode selects the TLS negotiation policy for a connection.
type SSLMode string

const (
	SSLDisable    SSLMode = "DISABLE"
	SSLTrust      SSLMode = "TRUST"
	SSLVerifyCA   SSLMode = "VERIFY_CA"
	SSLVerifyFull SSLMode = "VERIFY_FULL"
	SSLTunnel     SSLMode = "TUNNEL"
)

// Config is the connection options table from spec section 6, laid out as
// a JSON-tagged struct tree with a DefaultConfig constructor, the same
// shape the teacher uses for its own application configuration
// (pkg/config.Config).
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// Socket, when non-empty, selects a Unix domain socket and is
	// mutually exclusive with Host/Port.
	Socket string `json:"socket"`

	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`

	SSLMode SSLMode `json:"ssl_mode"`

	AllowLocalInfile bool `json:"allow_local_infile"`
	// PrepareCacheSize is the LRU capacity for the prepared-statement
	// cache; 0 disables caching.
	PrepareCacheSize int `json:"prepare_cache_size"`

	ConnectTimeout time.Duration `json:"connect_timeout"`
	SocketTimeout  time.Duration `json:"socket_timeout"`

	Collation        string            `json:"collation"`
	SessionVariables map[string]string `json:"session_variables"`
	Autocommit       bool              `json:"autocommit"`

	TCPKeepAlive     bool `json:"tcp_keep_alive"`
	TCPAbortiveClose bool `json:"tcp_abortive_close"`
}

// DefaultConfig returns a Config with the same conservative defaults the
// teacher's own DefaultConfig uses: sane timeouts, caching on, TLS off.
func DefaultConfig() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             3306,
		SSLMode:          SSLDisable,
		AllowLocalInfile: false,
		PrepareCacheSize: 250,
		ConnectTimeout:   10 * time.Second,
		SocketTimeout:    30 * time.Second,
		Collation:        "utf8mb4_general_ci",
		SessionVariables: map[string]string{},
		Autocommit:       true,
		TCPKeepAlive:     true,
		TCPAbortiveClose: false,
	}
}

// LoadConfig reads a JSON config file, falling back to DefaultConfig
// values for anything it doesn't set.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conn: read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("conn: parse config file: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Socket == "" {
		if cfg.Port < 1 || cfg.Port > 65535 {
			return fmt.Errorf("conn: invalid port: %d", cfg.Port)
		}
		if cfg.Host == "" {
			return fmt.Errorf("conn: host is required when socket is not set")
		}
	}
	if cfg.PrepareCacheSize < 0 {
		return fmt.Errorf("conn: prepare cache size cannot be negative")
	}
	switch cfg.SSLMode {
	case SSLDisable, SSLTrust, SSLVerifyCA, SSLVerifyFull, SSLTunnel:
	default:
		return fmt.Errorf("conn: unknown ssl mode: %q", cfg.SSLMode)
	}
	return nil
}

// Address returns the TCP dial target, or empty if this config targets a
// Unix socket.
func (c *Config) Address() string {
	if c.Socket != "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
