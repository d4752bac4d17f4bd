// Package scryptovalue implements the guest-facing value wrapper: a
// decoded sbor.Value plus the sets of transient and global ids it
// references, computed by a single walk. The kernel uses these sets to
// compute the move-set and visible-set of every invocation.
package scryptovalue

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/sbor"
)

// Custom sub-tags used by values that carry a node id. These are
// engine-local sbor.Custom.Kind numbers distinct from bnum's.
const (
	CustomKindBucket           byte = 10
	CustomKindProof            byte = 11
	CustomKindVaultId          byte = 12
	CustomKindKeyValueStoreId  byte = 13
	CustomKindOwnedComponent   byte = 14
	CustomKindRefComponent     byte = 15
	CustomKindResourceAddress byte = 16
)

// Value is a decoded guest value annotated with every node id it
// references, deduplicated and checked for internal duplicates during
// the walk (a value that mentions the same Bucket/Proof/Vault/KV id
// twice is malformed and rejected).
type Value struct {
	Raw sbor.Value

	BucketIDs       []addressing.BucketId
	ProofIDs        []addressing.ProofId
	VaultIDs        []addressing.VaultId
	KVStoreIDs      []addressing.KeyValueStoreId
	OwnedComponents []addressing.ComponentAddress
	RefComponents   []addressing.ComponentAddress
}

// DuplicateIdError reports that the same node id appeared more than
// once while decoding a single value, mirroring the source checker's
// "DuplicateIds" custom decode error.
type DuplicateIdError struct {
	Kind string
}

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("scryptovalue: duplicate %s id in value", e.Kind)
}

// FromBytes decodes raw SBOR bytes into an annotated Value, rejecting
// duplicate node-id references anywhere in the tree.
func FromBytes(raw []byte) (Value, error) {
	v, err := sbor.Decode(raw)
	if err != nil {
		return Value{}, fmt.Errorf("scryptovalue: decode: %w", err)
	}
	return FromSBOR(v)
}

// FromSBOR wraps an already-decoded sbor.Value.
func FromSBOR(v sbor.Value) (Value, error) {
	w := &walker{
		bucketSeen:    map[addressing.BucketId]struct{}{},
		proofSeen:     map[addressing.ProofId]struct{}{},
		vaultSeen:     map[string]struct{}{},
		kvSeen:        map[string]struct{}{},
		componentSeen: map[addressing.Address]struct{}{},
	}
	if err := w.walk(v); err != nil {
		return Value{}, err
	}
	return Value{
		Raw:             v,
		BucketIDs:       w.buckets,
		ProofIDs:        w.proofs,
		VaultIDs:        w.vaults,
		KVStoreIDs:      w.kvStores,
		OwnedComponents: w.ownedComponents,
		RefComponents:   w.refComponents,
	}, nil
}

type walker struct {
	buckets         []addressing.BucketId
	proofs          []addressing.ProofId
	vaults          []addressing.VaultId
	kvStores        []addressing.KeyValueStoreId
	ownedComponents []addressing.ComponentAddress
	refComponents   []addressing.ComponentAddress

	bucketSeen    map[addressing.BucketId]struct{}
	proofSeen     map[addressing.ProofId]struct{}
	vaultSeen     map[string]struct{}
	kvSeen        map[string]struct{}
	componentSeen map[addressing.Address]struct{}
}

func (w *walker) walk(v sbor.Value) error {
	switch v.Type {
	case sbor.TypeList, sbor.TypeSet:
		for _, item := range v.Items {
			if err := w.walk(item); err != nil {
				return err
			}
		}
	case sbor.TypeMap:
		for _, e := range v.Entries {
			if err := w.walk(e.Key); err != nil {
				return err
			}
			if err := w.walk(e.Value); err != nil {
				return err
			}
		}
	case sbor.TypeStruct, sbor.TypeEnum:
		for _, f := range v.Fields {
			if err := w.walk(f); err != nil {
				return err
			}
		}
	case sbor.TypeCustom:
		return w.walkCustom(v.Custom)
	}
	return nil
}

func (w *walker) walkCustom(c sbor.Custom) error {
	switch c.Kind {
	case CustomKindBucket:
		id := addressing.BucketId(beUint32(c.Body))
		if _, dup := w.bucketSeen[id]; dup {
			return &DuplicateIdError{Kind: "Bucket"}
		}
		w.bucketSeen[id] = struct{}{}
		w.buckets = append(w.buckets, id)
	case CustomKindProof:
		id := addressing.ProofId(beUint32(c.Body))
		if _, dup := w.proofSeen[id]; dup {
			return &DuplicateIdError{Kind: "Proof"}
		}
		w.proofSeen[id] = struct{}{}
		w.proofs = append(w.proofs, id)
	case CustomKindVaultId:
		id, err := decodeVaultId(c.Body)
		if err != nil {
			return err
		}
		key := id.String()
		if _, dup := w.vaultSeen[key]; dup {
			return &DuplicateIdError{Kind: "Vault"}
		}
		w.vaultSeen[key] = struct{}{}
		w.vaults = append(w.vaults, id)
	case CustomKindKeyValueStoreId:
		id, err := decodeKVId(c.Body)
		if err != nil {
			return err
		}
		key := id.String()
		if _, dup := w.kvSeen[key]; dup {
			return &DuplicateIdError{Kind: "KeyValueStore"}
		}
		w.kvSeen[key] = struct{}{}
		w.kvStores = append(w.kvStores, id)
	case CustomKindOwnedComponent:
		addr, err := addressing.AddressFromBytes(c.Body)
		if err != nil {
			return fmt.Errorf("scryptovalue: owned component: %w", err)
		}
		if _, dup := w.componentSeen[addr]; dup {
			return &DuplicateIdError{Kind: "Component"}
		}
		w.componentSeen[addr] = struct{}{}
		w.ownedComponents = append(w.ownedComponents, addressing.ComponentAddress{Address: addr})
	case CustomKindRefComponent:
		addr, err := addressing.AddressFromBytes(c.Body)
		if err != nil {
			return fmt.Errorf("scryptovalue: ref component: %w", err)
		}
		w.refComponents = append(w.refComponents, addressing.ComponentAddress{Address: addr})
	}
	return nil
}

func decodeVaultId(b []byte) (addressing.VaultId, error) {
	if len(b) != addressing.HashSize+4 {
		return addressing.VaultId{}, fmt.Errorf("scryptovalue: malformed vault id")
	}
	h, _ := addressing.HashFromBytes(b[:addressing.HashSize])
	return addressing.VaultId{TxHash: h, Counter: beUint32(b[addressing.HashSize:])}, nil
}

func decodeKVId(b []byte) (addressing.KeyValueStoreId, error) {
	if len(b) != addressing.HashSize+4 {
		return addressing.KeyValueStoreId{}, fmt.Errorf("scryptovalue: malformed kv store id")
	}
	h, _ := addressing.HashFromBytes(b[:addressing.HashSize])
	return addressing.KeyValueStoreId{TxHash: h, Counter: beUint32(b[addressing.HashSize:])}, nil
}

func beUint32(b []byte) uint32 {
	var u uint32
	for _, c := range b {
		u = u<<8 | uint32(c)
	}
	return u
}

// MarshalBucket, MarshalProof, MarshalVaultId, MarshalKeyValueStoreId,
// MarshalOwnedComponent, and MarshalRefComponent build the sbor.Value
// encoding of a node-id reference, for use by native s-node handlers
// and tests constructing guest-shaped arguments/returns.

func MarshalBucket(id addressing.BucketId) sbor.Value {
	return sbor.CustomValue(CustomKindBucket, beBytes(uint32(id)))
}

func MarshalProof(id addressing.ProofId) sbor.Value {
	return sbor.CustomValue(CustomKindProof, beBytes(uint32(id)))
}

func MarshalVaultId(id addressing.VaultId) sbor.Value {
	body := append(append([]byte{}, id.TxHash[:]...), beBytes(id.Counter)...)
	return sbor.CustomValue(CustomKindVaultId, body)
}

func MarshalKeyValueStoreId(id addressing.KeyValueStoreId) sbor.Value {
	body := append(append([]byte{}, id.TxHash[:]...), beBytes(id.Counter)...)
	return sbor.CustomValue(CustomKindKeyValueStoreId, body)
}

func MarshalOwnedComponent(addr addressing.ComponentAddress) sbor.Value {
	return sbor.CustomValue(CustomKindOwnedComponent, append([]byte{}, addr.Bytes()...))
}

func MarshalRefComponent(addr addressing.ComponentAddress) sbor.Value {
	return sbor.CustomValue(CustomKindRefComponent, append([]byte{}, addr.Bytes()...))
}

func beBytes(u uint32) []byte {
	return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}

// NodeIds returns every id this value references, for move-set
// computation by the kernel.
func (v Value) NodeIds() (buckets []addressing.BucketId, proofs []addressing.ProofId) {
	return v.BucketIDs, v.ProofIDs
}

// StoredNodeIds returns the persistable node ids this value references
// (vaults and key-value stores), for globalization and
// StoredNodeRemoved checks.
func (v Value) StoredNodeIds() (vaults []addressing.VaultId, kvStores []addressing.KeyValueStoreId) {
	return v.VaultIDs, v.KVStoreIDs
}
