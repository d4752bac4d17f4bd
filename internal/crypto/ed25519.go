// Package crypto implements the Ed25519 signing primitives (key
// generation, signing, verification), a public-key-derived address
// hash, and a SHA-256 transaction-hash helper. The executor does not
// call into this package: it takes the PublicKey type only, and derives
// its id-scoping hash with executor.Transaction.Hash.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
)

// PrivateKey is an Ed25519 private key (64 bytes).
type PrivateKey = ed25519.PrivateKey

// PublicKey is an Ed25519 public key (32 bytes).
type PublicKey = ed25519.PublicKey

// GenerateKeypair creates a new Ed25519 key pair.
func GenerateKeypair() (PublicKey, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	return pub, priv, nil
}

// Sign signs a message with an Ed25519 private key.
func Sign(privKey PrivateKey, message []byte) []byte {
	return ed25519.Sign(privKey, message)
}

// Verify checks an Ed25519 signature against a public key and message.
func Verify(pubKey PublicKey, message, signature []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey, message, signature)
}

// AddressFromPubKey derives a deterministic, addressing-scoped hash
// from a public key (enginectl's keys commands print it as the key's
// address).
func AddressFromPubKey(pubKey PublicKey) addressing.Hash {
	return addressing.Sum256(pubKey)
}

// PubKeyTo32 converts a PublicKey to a [32]byte array.
func PubKeyTo32(pubKey PublicKey) [32]byte {
	var out [32]byte
	copy(out[:], pubKey)
	return out
}

// SigTo64 converts a signature slice to a [64]byte array.
func SigTo64(sig []byte) [64]byte {
	var out [64]byte
	copy(out[:], sig)
	return out
}
