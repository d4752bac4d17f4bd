package scryptovalue

import (
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/sbor"
)

func TestExtractsNodeIds(t *testing.T) {
	raw := sbor.Struct(
		MarshalBucket(addressing.BucketId(1)),
		MarshalProof(addressing.ProofId(2)),
	)
	v, err := FromSBOR(raw)
	if err != nil {
		t.Fatalf("FromSBOR: %v", err)
	}
	if len(v.BucketIDs) != 1 || v.BucketIDs[0] != 1 {
		t.Errorf("expected bucket id 1, got %v", v.BucketIDs)
	}
	if len(v.ProofIDs) != 1 || v.ProofIDs[0] != 2 {
		t.Errorf("expected proof id 2, got %v", v.ProofIDs)
	}
}

func TestRejectsDuplicateBucketIds(t *testing.T) {
	raw := sbor.Struct(
		MarshalBucket(addressing.BucketId(1)),
		MarshalBucket(addressing.BucketId(1)),
	)
	_, err := FromSBOR(raw)
	if err == nil {
		t.Fatalf("expected duplicate bucket id error")
	}
	dup, ok := err.(*DuplicateIdError)
	if !ok || dup.Kind != "Bucket" {
		t.Fatalf("expected DuplicateIdError(Bucket), got %v", err)
	}
}

func TestVaultIdRoundTrip(t *testing.T) {
	seed := addressing.Sum256([]byte("tx"))
	vid := addressing.VaultId{TxHash: seed, Counter: 3}
	raw := sbor.Struct(MarshalVaultId(vid))
	v, err := FromSBOR(raw)
	if err != nil {
		t.Fatalf("FromSBOR: %v", err)
	}
	if len(v.VaultIDs) != 1 || v.VaultIDs[0] != vid {
		t.Errorf("expected vault id %v, got %v", vid, v.VaultIDs)
	}
}

func TestFromBytesDecodesWireFormat(t *testing.T) {
	raw := sbor.Struct(MarshalBucket(addressing.BucketId(9)))
	encoded := sbor.Encode(raw)
	v, err := FromBytes(encoded)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if len(v.BucketIDs) != 1 || v.BucketIDs[0] != 9 {
		t.Errorf("expected bucket id 9, got %v", v.BucketIDs)
	}
}
