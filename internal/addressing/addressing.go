// Package addressing implements the engine's address and scoped-id
// types: global PackageAddress/ComponentAddress/ResourceAddress (27
// bytes: an entity-type discriminator plus a 26-byte hash-derived
// body), the frame-scoped VaultId/KeyValueStoreId pair (transaction
// hash plus counter), and the transient BucketId/ProofId counters.
package addressing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a Hash in bytes (SHA-256).
const HashSize = 32

// Hash is a 32-byte SHA-256 hash.
type Hash [HashSize]byte

// ZeroHash is the zero-value hash.
var ZeroHash Hash

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) IsZero() bool   { return h == ZeroHash }
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// HashFromBytes creates a Hash from a byte slice, returning an error if
// the slice is not exactly 32 bytes.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return ZeroHash, fmt.Errorf("addressing: invalid hash length: got %d, want %d", len(b), HashSize)
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HashFromHex decodes a hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash, fmt.Errorf("addressing: invalid hex: %w", err)
	}
	return HashFromBytes(b)
}

// Sum256 computes the SHA-256 hash of data.
func Sum256(data []byte) Hash { return sha256.Sum256(data) }

// EntityType discriminates the kind of entity a global Address names.
type EntityType byte

const (
	EntityTypeUnspecified EntityType = iota
	EntityTypePackage
	EntityTypeComponent
	EntityTypeResourceManager
	EntityTypeSystem
)

func (t EntityType) String() string {
	switch t {
	case EntityTypePackage:
		return "package"
	case EntityTypeComponent:
		return "component"
	case EntityTypeResourceManager:
		return "resource"
	case EntityTypeSystem:
		return "system"
	default:
		return "unspecified"
	}
}

// AddressSize is the length of a global Address: 1 discriminator byte
// plus a 26-byte hash-derived body.
const AddressSize = 27

// Address is a global, 27-byte entity address: PackageAddress,
// ComponentAddress, and ResourceAddress are all this shape, tagged
// distinctly only by EntityType and by the Go type wrapping them.
type Address [AddressSize]byte

func (a Address) EntityType() EntityType { return EntityType(a[0]) }
func (a Address) Bytes() []byte          { return a[:] }
func (a Address) IsZero() bool           { return a == Address{} }
func (a Address) String() string         { return hex.EncodeToString(a[:]) }

// Derive builds an Address of the given entity type whose body is the
// first 26 bytes of sha256(seed || counter), a deterministic
// construction analogous to how the source derives new addresses from
// a transaction hash and an intent-local counter.
func Derive(t EntityType, seed Hash, counter uint32) Address {
	var buf [HashSize + 4]byte
	copy(buf[:HashSize], seed[:])
	binary.LittleEndian.PutUint32(buf[HashSize:], counter)
	digest := sha256.Sum256(buf[:])
	var a Address
	a[0] = byte(t)
	copy(a[1:], digest[:AddressSize-1])
	return a
}

// AddressFromBytes parses a 27-byte Address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("addressing: invalid address length: got %d, want %d", len(b), AddressSize)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// PackageAddress, ComponentAddress, and ResourceAddress are distinct Go
// types over the same underlying Address shape so the compiler
// prevents accidentally mixing address kinds.
type (
	PackageAddress  struct{ Address }
	ComponentAddress struct{ Address }
	ResourceAddress struct{ Address }
)

func NewPackageAddress(seed Hash, counter uint32) PackageAddress {
	return PackageAddress{Derive(EntityTypePackage, seed, counter)}
}

func NewComponentAddress(seed Hash, counter uint32) ComponentAddress {
	return ComponentAddress{Derive(EntityTypeComponent, seed, counter)}
}

func NewResourceAddress(seed Hash, counter uint32) ResourceAddress {
	return ResourceAddress{Derive(EntityTypeResourceManager, seed, counter)}
}

// XRDResourceAddress is the network's fee-paying resource. It is
// derived from the zero hash at counter 0 so every implementation (and
// every genesis store) agrees on its address without needing a shared
// configuration file.
var XRDResourceAddress = NewResourceAddress(ZeroHash, 0)

// SignerBadgeResourceAddress is the well-known resource address the
// transaction executor mints ephemeral, non-transferable proofs
// against when it seeds a transaction's root AuthZone from the
// transaction's signer public keys: an AccessRule can
// Require(SignerBadgeResourceAddress) to mean "signed by one of this
// transaction's notarized keys" without the badge ever being a real,
// mintable resource a user could acquire outside of signing.
var SignerBadgeResourceAddress = NewResourceAddress(ZeroHash, 1)

// VaultId and KeyValueStoreId are call-frame-scoped identifiers, unique
// within the transaction that created them: the creating transaction's
// hash plus a monotonically increasing counter.
type VaultId struct {
	TxHash  Hash
	Counter uint32
}

func (v VaultId) String() string {
	return fmt.Sprintf("%s:%d", v.TxHash.String(), v.Counter)
}

type KeyValueStoreId struct {
	TxHash  Hash
	Counter uint32
}

func (k KeyValueStoreId) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash.String(), k.Counter)
}

// BucketId and ProofId are transient, call-frame-local counters: valid
// only within the call frame that created them.
type BucketId uint32
type ProofId uint32

// NonFungibleId is an opaque, caller-chosen non-fungible identifier.
type NonFungibleId []byte

func (id NonFungibleId) String() string { return hex.EncodeToString(id) }
