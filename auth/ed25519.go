package auth

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// Ed25519Plugin implements client_ed25519: an RFC 8032 Ed25519 signature
// over the server's seed, using a signing key derived from
// SHA-512(password) with the standard prefix-hash construction. Kept as
// scalar/point arithmetic over filippo.io/edwards25519 rather than
// stdlib crypto/ed25519, since the MariaDB key derivation (SHA-512 of the
// raw password, not a random 32-byte seed) doesn't fit crypto/ed25519's
// NewKeyFromSeed contract.
type Ed25519Plugin struct{}

func (Ed25519Plugin) Name() string { return "client_ed25519" }

func (Ed25519Plugin) Start(password string, seed []byte) ([]byte, error) {
	return signEd25519(password, seed)
}

func (Ed25519Plugin) Continue(password string, seed []byte, serverData []byte, secureChannel bool) ([]byte, bool, error) {
	return nil, true, nil
}

func signEd25519(password string, message []byte) ([]byte, error) {
	digest := sha512.Sum512([]byte(password))
	var clamped [32]byte
	copy(clamped[:], digest[:32])
	prefix := digest[32:]

	s, err := edwards25519.NewScalar().SetBytesWithClamping(clamped[:])
	if err != nil {
		return nil, fmt.Errorf("auth: client_ed25519: derive scalar: %w", err)
	}
	A := new(edwards25519.Point).ScalarBaseMult(s)

	rHash := sha512.New()
	rHash.Write(prefix)
	rHash.Write(message)
	r, err := edwards25519.NewScalar().SetUniformBytes(rHash.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("auth: client_ed25519: derive r: %w", err)
	}
	R := new(edwards25519.Point).ScalarBaseMult(r)

	kHash := sha512.New()
	kHash.Write(R.Bytes())
	kHash.Write(A.Bytes())
	kHash.Write(message)
	k, err := edwards25519.NewScalar().SetUniformBytes(kHash.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("auth: client_ed25519: derive k: %w", err)
	}

	S := edwards25519.NewScalar().MultiplyAdd(k, s, r)

	sig := make([]byte, 0, 64)
	sig = append(sig, R.Bytes()...)
	sig = append(sig, S.Bytes()...)
	return sig, nil
}
