package addressing

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	seed := Sum256([]byte("tx-1"))
	a1 := NewComponentAddress(seed, 0)
	a2 := NewComponentAddress(seed, 0)
	if a1.Address != a2.Address {
		t.Fatalf("expected deterministic derivation, got %s vs %s", a1, a2)
	}
	a3 := NewComponentAddress(seed, 1)
	if a1.Address == a3.Address {
		t.Fatalf("expected distinct addresses for distinct counters")
	}
}

func TestEntityTypeDiscriminator(t *testing.T) {
	seed := Sum256([]byte("tx-2"))
	pkg := NewPackageAddress(seed, 0)
	if pkg.EntityType() != EntityTypePackage {
		t.Errorf("expected package entity type, got %s", pkg.EntityType())
	}
	res := NewResourceAddress(seed, 0)
	if res.EntityType() != EntityTypeResourceManager {
		t.Errorf("expected resource entity type, got %s", res.EntityType())
	}
}

func TestHashRoundTrip(t *testing.T) {
	h := Sum256([]byte("hello"))
	hex := h.String()
	got, err := HashFromHex(hex)
	if err != nil {
		t.Fatalf("HashFromHex: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch")
	}
}

func TestAddressFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := AddressFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short byte slice")
	}
}
