// Package substate implements the versioned key-value layer the
// kernel reads and writes: typed SubstateId keys, a tagged Substate
// value union, an OutputValue wrapper carrying a monotonic version,
// and the Store abstraction with two implementations (an in-memory
// MemStore and a cockroachdb/pebble-backed PebbleStore).
package substate

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// SubstateIdKind discriminates the variant of a SubstateId.
type SubstateIdKind byte

const (
	KindComponentInfo SubstateIdKind = iota
	KindComponentState
	KindPackage
	KindResourceManager
	KindNonFungibleSpace
	KindNonFungible
	KindKeyValueStoreSpace
	KindKeyValueStoreEntry
	KindVault
	KindSystem
)

// SubstateId is the key space of the store.
type SubstateId struct {
	Kind SubstateIdKind

	Package          addressing.PackageAddress
	Component        addressing.ComponentAddress
	Resource         addressing.ResourceAddress
	Vault            addressing.VaultId
	KVStore          addressing.KeyValueStoreId
	NonFungibleID    addressing.NonFungibleId
	KVStoreEntryKey  []byte
}

func ComponentInfoId(addr addressing.ComponentAddress) SubstateId {
	return SubstateId{Kind: KindComponentInfo, Component: addr}
}

func ComponentStateId(addr addressing.ComponentAddress) SubstateId {
	return SubstateId{Kind: KindComponentState, Component: addr}
}

func PackageId(addr addressing.PackageAddress) SubstateId {
	return SubstateId{Kind: KindPackage, Package: addr}
}

func ResourceManagerId(addr addressing.ResourceAddress) SubstateId {
	return SubstateId{Kind: KindResourceManager, Resource: addr}
}

func NonFungibleSpaceId(addr addressing.ResourceAddress) SubstateId {
	return SubstateId{Kind: KindNonFungibleSpace, Resource: addr}
}

func NonFungibleEntryId(addr addressing.ResourceAddress, id addressing.NonFungibleId) SubstateId {
	return SubstateId{Kind: KindNonFungible, Resource: addr, NonFungibleID: id}
}

func KeyValueStoreSpaceId(id addressing.KeyValueStoreId) SubstateId {
	return SubstateId{Kind: KindKeyValueStoreSpace, KVStore: id}
}

func KeyValueStoreEntryId(id addressing.KeyValueStoreId, key []byte) SubstateId {
	return SubstateId{Kind: KindKeyValueStoreEntry, KVStore: id, KVStoreEntryKey: key}
}

func VaultId(id addressing.VaultId) SubstateId {
	return SubstateId{Kind: KindVault, Vault: id}
}

func SystemId() SubstateId {
	return SubstateId{Kind: KindSystem}
}

// Key returns the canonical, unordered byte key for this id, unique
// per distinct SubstateId value. Kernel-side write buffering and
// borrow tracking key their maps on it too, so one definition of
// identity serves the whole engine.
func (id SubstateId) Key() []byte { return id.key() }

// key is the encoding used for Store lookups; range scans use a
// separately derived ordered key (see kvOrderedKey) since this key
// does not preserve lexical order across kinds.
func (id SubstateId) key() []byte {
	var buf []byte
	buf = append(buf, byte(id.Kind))
	switch id.Kind {
	case KindComponentInfo, KindComponentState:
		buf = append(buf, id.Component.Bytes()...)
	case KindPackage:
		buf = append(buf, id.Package.Bytes()...)
	case KindResourceManager, KindNonFungibleSpace:
		buf = append(buf, id.Resource.Bytes()...)
	case KindNonFungible:
		buf = append(buf, id.Resource.Bytes()...)
		buf = append(buf, id.NonFungibleID...)
	case KindKeyValueStoreSpace:
		buf = append(buf, id.KVStore.TxHash[:]...)
		buf = appendU32(buf, id.KVStore.Counter)
	case KindKeyValueStoreEntry:
		buf = append(buf, id.KVStore.TxHash[:]...)
		buf = appendU32(buf, id.KVStore.Counter)
		buf = append(buf, id.KVStoreEntryKey...)
	case KindVault:
		buf = append(buf, id.Vault.TxHash[:]...)
		buf = appendU32(buf, id.Vault.Counter)
	case KindSystem:
	}
	return buf
}

func appendU32(buf []byte, u uint32) []byte {
	return append(buf, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// kvEntryPrefix returns the fixed-length key prefix shared by every
// KeyValueStoreEntry substate under kv, used by Store implementations
// to range-scan one key-value space.
func kvEntryPrefix(kv addressing.KeyValueStoreId) []byte {
	buf := []byte{byte(KindKeyValueStoreEntry)}
	buf = append(buf, kv.TxHash[:]...)
	buf = appendU32(buf, kv.Counter)
	return buf
}

// SubstateKind discriminates the variant of a Substate value.
type SubstateKind byte

const (
	SubstateKindSystem SubstateKind = iota
	SubstateKindResourceManager
	SubstateKindComponent
	SubstateKindPackage
	SubstateKindVault
	SubstateKindNonFungibleWrapper
	SubstateKindKeyValueStoreEntryWrapper
)

// Substate is a tagged union over every concrete value the store can
// hold. Only one field group is populated per Kind; callers check Kind
// and read the matching pointer fields directly (there are no typed
// accessor methods).
type Substate struct {
	Kind SubstateKind

	SystemEpoch uint64

	ResourceManager *ResourceManagerData
	Component       *ComponentData
	Package         *PackageData

	// Vault carries the liquid balance and, while a Proof references
	// it, an additional locked shadow. The codec encodes VaultLocked
	// whenever it is non-nil; the kernel writes only VaultLiquid.
	VaultLiquid *ContainerData
	VaultLocked *ContainerData

	// NonFungibleWrapper and KeyValueStoreEntryWrapper are Option-shaped:
	// Present=false represents an empty slot (a tombstone / never-written
	// entry) distinct from "key not found" in the store.
	Present                bool
	NonFungibleData        []byte
	KeyValueStoreEntryData []byte
}

// ResourceManagerData is the persisted state of a ResourceManager.
type ResourceManagerData struct {
	Granularity  int
	TotalSupply  bnum.Decimal
	Metadata     map[string]string
	AccessRules  AccessRulesData
	NonFungible  bool
}

// AccessRulesData names the access-rule method table for a resource or
// component; the concrete rule tree type is defined by the resource
// package and referenced here only by its encoded form to avoid an
// import cycle (substate is a leaf of resource, not the reverse).
type AccessRulesData struct {
	Rules map[string][]byte // method name -> encoded resource.AccessRule
}

// ComponentData is the persisted state of a Component.
type ComponentData struct {
	Package     addressing.PackageAddress
	Blueprint   string
	StateBytes  []byte
	AccessRules AccessRulesData
}

// PackageData is the persisted state of a Package.
type PackageData struct {
	Code          []byte
	BlueprintABIs map[string][]byte
}

// ContainerData is the persisted shape of a resource container
// (fungible amount or non-fungible id set), independent of the
// resource package's in-memory Container type to avoid an import cycle.
type ContainerData struct {
	Resource addressing.ResourceAddress
	Amount   bnum.Decimal
	Ids      []addressing.NonFungibleId
}

// Version is a monotonically increasing per-key counter used to detect
// concurrent-write races when a substate-store implementation needs it
// (the in-process executor does not, but PebbleStore exposes it for
// tooling).
type Version uint64

// OutputValue bundles a Substate with its store version.
type OutputValue struct {
	Substate Substate
	Version  Version
}

// ErrNotFound is returned by Get for a key with no entry.
var ErrNotFound = fmt.Errorf("substate: not found")

// Store is the versioned key-value layer the kernel reads and writes.
// Deterministic iteration order is not guaranteed: ScanKV returns the
// entries of one KeyValueStoreId as a map keyed by raw entry key, so
// callers see them in no particular order.
type Store interface {
	Get(id SubstateId) (OutputValue, error)
	Put(id SubstateId, value OutputValue) error
	IsRoot(id SubstateId) bool
	SetRoot(id SubstateId)
	ScanKV(kv addressing.KeyValueStoreId) (map[string]Substate, error)
}
