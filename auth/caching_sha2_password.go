package auth

import (
	"crypto/sha256"
	"fmt"
)

const (
	cachingSha2FastAuthSuccess = 0x03
	cachingSha2FullAuthRequest = 0x04
)

// CachingSha2PasswordPlugin implements caching_sha2_password. The first
// exchange is a SHA-256 analogue of mysql_native_password's XOR scramble;
// the server then reports via AuthMoreData whether the scramble matched a
// cached hash (fast path) or a full password exchange is required, which
// is only permitted over an encrypted or local channel.
type CachingSha2PasswordPlugin struct{}

func (CachingSha2PasswordPlugin) Name() string { return "caching_sha2_password" }

func (CachingSha2PasswordPlugin) Start(password string, seed []byte) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	return cachingSha2Hash(password, seed), nil
}

func cachingSha2Hash(password string, seed []byte) []byte {
	hash1 := sha256.Sum256([]byte(password))
	hash2 := sha256.Sum256(hash1[:])

	combined := make([]byte, 0, len(seed)+len(hash2))
	combined = append(combined, seed...)
	combined = append(combined, hash2[:]...)
	hash3 := sha256.Sum256(combined)

	out := make([]byte, sha256.Size)
	for i := range out {
		out[i] = hash1[i] ^ hash3[i]
	}
	return out
}

func (CachingSha2PasswordPlugin) Continue(password string, seed []byte, serverData []byte, secureChannel bool) ([]byte, bool, error) {
	if len(serverData) != 1 {
		return nil, false, fmt.Errorf("auth: caching_sha2_password: unexpected AuthMoreData length %d", len(serverData))
	}
	switch serverData[0] {
	case cachingSha2FastAuthSuccess:
		return nil, true, nil
	case cachingSha2FullAuthRequest:
		if !secureChannel {
			return nil, false, fmt.Errorf("auth: caching_sha2_password: full authentication requires TLS or a Unix socket")
		}
		out := make([]byte, len(password)+1)
		copy(out, password)
		out[len(password)] = 0x00
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("auth: caching_sha2_password: unknown AuthMoreData tag 0x%02x", serverData[0])
	}
}
