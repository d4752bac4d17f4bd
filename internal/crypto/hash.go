package crypto

import (
	"crypto/sha256"

	"github.com/radixcore/engine/internal/addressing"
)

// HashSHA256 computes the SHA-256 hash of data.
func HashSHA256(data []byte) addressing.Hash {
	return sha256.Sum256(data)
}

// TxHash computes a deterministic transaction hash: sha256 of the
// transaction header bytes
// followed by the encoded manifest instructions and signer public
// keys, in that order, so that two transactions with the same intent
// produce the same hash regardless of how they were assembled.
func TxHash(headerBytes []byte, manifestBytes []byte, signerPubKeys []PublicKey) addressing.Hash {
	h := sha256.New()
	h.Write(headerBytes)
	h.Write(manifestBytes)
	for _, pk := range signerPubKeys {
		h.Write(pk)
	}
	var out addressing.Hash
	copy(out[:], h.Sum(nil))
	return out
}
