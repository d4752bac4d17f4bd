package substate

import (
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

func TestMemStoreGetPutRoot(t *testing.T) {
	store := NewMemStore()
	seed := addressing.Sum256([]byte("tx"))
	addr := addressing.NewComponentAddress(seed, 0)
	id := ComponentInfoId(addr)

	if _, err := store.Get(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ov := OutputValue{Version: 1, Substate: Substate{Kind: SubstateKindSystem, SystemEpoch: 7}}
	if err := store.Put(id, ov); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Substate.SystemEpoch != 7 {
		t.Errorf("expected epoch 7, got %d", got.Substate.SystemEpoch)
	}

	if store.IsRoot(id) {
		t.Errorf("expected not root before SetRoot")
	}
	store.SetRoot(id)
	if !store.IsRoot(id) {
		t.Errorf("expected root after SetRoot")
	}
}

func TestMemStoreScanKV(t *testing.T) {
	store := NewMemStore()
	seed := addressing.Sum256([]byte("tx"))
	kv := addressing.KeyValueStoreId{TxHash: seed, Counter: 1}

	for i, key := range []string{"a", "b"} {
		id := KeyValueStoreEntryId(kv, []byte(key))
		ov := OutputValue{Version: Version(i), Substate: Substate{
			Kind:                   SubstateKindKeyValueStoreEntryWrapper,
			Present:                true,
			KeyValueStoreEntryData: []byte{byte(i)},
		}}
		if err := store.Put(id, ov); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	entries, err := store.ScanKV(kv)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestSubstateCodecRoundTrip(t *testing.T) {
	amount, _ := bnum.ParseDecimal("100")
	s := Substate{
		Kind: SubstateKindVault,
		VaultLiquid: &ContainerData{Resource: addressing.XRDResourceAddress, Amount: amount},
	}
	enc, err := encodeSubstate(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeSubstate(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.VaultLiquid.Amount.Cmp(amount) != 0 {
		t.Errorf("round trip mismatch: got %s", got.VaultLiquid.Amount.String())
	}
	if got.VaultLocked != nil {
		t.Errorf("expected no locked view")
	}
}
