// Package cryptoutil wraps the Ed25519 sign/verify and SHA-256 primitives
// the consensus core treats as an external collaborator, assumed available
// rather than implemented inside the core. It exists so the core
// package never imports crypto/ed25519 directly for anything beyond the
// fixed-size key/signature types and KeyPair.Sign in core/types.go,
// mirroring the reference node's practice of isolating key handling in one
// small package rather than scattering crypto/ed25519 calls across the
// consensus code.
package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// KeyPair is a raw Ed25519 identity, generated or loaded from a seed.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Generate creates a fresh random Ed25519 key pair.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// FromSeed reconstructs a key pair deterministically from a 32-byte seed,
// used by genesis tooling and tests that need stable, reproducible keys.
func FromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{PublicKey: priv.Public().(ed25519.PublicKey), PrivateKey: priv}, nil
}

// Sign signs msg with the key pair's private key.
func (kp KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, msg)
}

// Verify checks an Ed25519 signature over msg against pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
