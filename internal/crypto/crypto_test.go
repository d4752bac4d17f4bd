package crypto_test

import (
	"bytes"
	"testing"

	"github.com/radixcore/engine/internal/crypto"
)

func TestGenerateKeypairAndSignVerify(t *testing.T) {
	pub, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	msg := []byte("hello radix")
	sig := crypto.Sign(priv, msg)

	if !crypto.Verify(pub, msg, sig) {
		t.Fatal("Verify failed for valid signature")
	}
}

func TestVerifyRejectsInvalidSignature(t *testing.T) {
	pub, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	msg := []byte("hello radix")
	sig := crypto.Sign(priv, msg)

	badSig := make([]byte, len(sig))
	copy(badSig, sig)
	badSig[0] ^= 0xff

	if crypto.Verify(pub, msg, badSig) {
		t.Fatal("Verify should reject corrupted signature")
	}

	if crypto.Verify(pub, []byte("wrong message"), sig) {
		t.Fatal("Verify should reject wrong message")
	}

	pub2, _, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if crypto.Verify(pub2, msg, sig) {
		t.Fatal("Verify should reject wrong public key")
	}
}

func TestVerifyRejectsInvalidInputs(t *testing.T) {
	if crypto.Verify(nil, []byte("msg"), make([]byte, 64)) {
		t.Fatal("should reject nil public key")
	}
	if crypto.Verify(make([]byte, 32), []byte("msg"), nil) {
		t.Fatal("should reject nil signature")
	}
	if crypto.Verify(make([]byte, 32), []byte("msg"), make([]byte, 63)) {
		t.Fatal("should reject short signature")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	pub, _, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	addr := crypto.AddressFromPubKey(pub)
	if addr.IsZero() {
		t.Fatal("address should not be zero")
	}

	addr2 := crypto.AddressFromPubKey(pub)
	if addr != addr2 {
		t.Fatal("same public key should produce same address")
	}
}

func TestHashSHA256Deterministic(t *testing.T) {
	data := []byte("deterministic hashing test")
	h1 := crypto.HashSHA256(data)
	h2 := crypto.HashSHA256(data)
	if h1 != h2 {
		t.Fatal("SHA-256 should be deterministic")
	}
	if h1.IsZero() {
		t.Fatal("SHA-256 of non-empty data should not be zero")
	}
}

func TestHashSHA256EmptyInput(t *testing.T) {
	h := crypto.HashSHA256([]byte{})
	if h.IsZero() {
		t.Fatal("SHA-256 of empty data should not be zero hash")
	}
}

func TestTxHashDeterministic(t *testing.T) {
	pub, _, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	h1 := crypto.TxHash([]byte("header"), []byte("manifest"), []crypto.PublicKey{pub})
	h2 := crypto.TxHash([]byte("header"), []byte("manifest"), []crypto.PublicKey{pub})
	if h1 != h2 {
		t.Fatal("TxHash should be deterministic")
	}
}

func TestTxHashVariesWithInputs(t *testing.T) {
	h1 := crypto.TxHash([]byte("header1"), []byte("manifest"), nil)
	h2 := crypto.TxHash([]byte("header2"), []byte("manifest"), nil)
	if h1 == h2 {
		t.Fatal("TxHash should vary with header bytes")
	}
}

func TestPubKeyTo32AndSigTo64(t *testing.T) {
	pub, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	pk32 := crypto.PubKeyTo32(pub)
	if !bytes.Equal(pk32[:], pub) {
		t.Fatal("PubKeyTo32 mismatch")
	}

	sig := crypto.Sign(priv, []byte("test"))
	sig64 := crypto.SigTo64(sig)
	if !bytes.Equal(sig64[:], sig) {
		t.Fatal("SigTo64 mismatch")
	}
}
