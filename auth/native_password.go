package auth

import (
	"crypto/sha1"
)

// NativePasswordPlugin implements mysql_native_password: a one-shot
// challenge/response with no further exchange. Grounded on the server
// side's own SHA1(password) / SHA1(SHA1(password)) / XOR construction
// (see pkg/utils/crypto.go's GeneratePasswordHash), inverted here to
// compute the client's response instead of verifying one.
type NativePasswordPlugin struct{}

func (NativePasswordPlugin) Name() string { return "mysql_native_password" }

// Start computes SHA1(password) XOR SHA1(seed || SHA1(SHA1(password))),
// a 20-byte payload. An empty password yields an empty response.
func (NativePasswordPlugin) Start(password string, seed []byte) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	return nativePasswordHash(password, seed), nil
}

func nativePasswordHash(password string, seed []byte) []byte {
	hash1 := sha1.Sum([]byte(password))
	hash2 := sha1.Sum(hash1[:])

	combined := make([]byte, 0, len(seed)+len(hash2))
	combined = append(combined, seed...)
	combined = append(combined, hash2[:]...)
	hash3 := sha1.Sum(combined)

	out := make([]byte, sha1.Size)
	for i := range out {
		out[i] = hash1[i] ^ hash3[i]
	}
	return out
}

// Continue is never called: mysql_native_password completes in a single
// round, terminal on the server's next OK packet.
func (NativePasswordPlugin) Continue(password string, seed []byte, serverData []byte, secureChannel bool) ([]byte, bool, error) {
	return nil, true, nil
}
