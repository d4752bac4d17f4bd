// Package renode implements the live, in-memory object graph the
// kernel operates on: RENode, a tagged union over every kind of
// runtime object (Bucket, Proof, Vault, KeyValueStore, Component,
// Worktop, Package, Resource, NonFungibles, System), and REValue, the
// per-frame arena that tracks ownership by map membership rather than
// by pointer identity (so cyclic references between a Component and
// its owned KeyValueStore, which may in turn reference a Vault owned
// elsewhere, never need a cycle-breaking pass).
package renode

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/resource"
)

// Kind discriminates the variant of a RENode.
type Kind byte

const (
	KindBucket Kind = iota
	KindProof
	KindVault
	KindKeyValueStore
	KindComponent
	KindWorktop
	KindPackage
	KindResource
	KindNonFungibles
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindBucket:
		return "Bucket"
	case KindProof:
		return "Proof"
	case KindVault:
		return "Vault"
	case KindKeyValueStore:
		return "KeyValueStore"
	case KindComponent:
		return "Component"
	case KindWorktop:
		return "Worktop"
	case KindPackage:
		return "Package"
	case KindResource:
		return "Resource"
	case KindNonFungibles:
		return "NonFungibles"
	case KindSystem:
		return "System"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// ComponentNode is the in-memory form of a Component: owned state plus
// its declared access rules, pending globalization.
type ComponentNode struct {
	Package     addressing.PackageAddress
	Blueprint   string
	StateBytes  []byte
	AccessRules map[string][]byte
	Globalized  bool
	Address     addressing.ComponentAddress
}

// KeyValueStoreNode is the in-memory form of a key-value store: a
// staged set of entries not yet flushed to the substate store.
type KeyValueStoreNode struct {
	Entries map[string][]byte
}

// PackageNode is the in-memory form of a just-published package,
// pending the executor's commit of its Package substate.
type PackageNode struct {
	Code          []byte
	BlueprintABIs map[string][]byte
}

// ResourceNode is the in-memory form of a newly created
// ResourceManager, pending commit.
type ResourceNode struct {
	Address     addressing.ResourceAddress
	Granularity int
	NonFungible bool
}

// NonFungiblesNode is the in-memory form of a resource's non-fungible
// space, pending commit.
type NonFungiblesNode struct {
	Entries map[string][]byte
}

// SystemNode is the in-memory form of the System substate.
type SystemNode struct {
	Epoch uint64
}

// RENode is a tagged union over every runtime object kind. Exactly one
// field is populated, matching Kind.
type RENode struct {
	Kind Kind

	Bucket        *resource.Bucket
	Proof         *resource.Proof
	Vault         *resource.Vault
	KeyValueStore *KeyValueStoreNode
	Component     *ComponentNode
	Worktop       *resource.Worktop
	Package       *PackageNode
	Resource      *ResourceNode
	NonFungibles  *NonFungiblesNode
	System        *SystemNode
}

func NewBucketNode(b *resource.Bucket) RENode { return RENode{Kind: KindBucket, Bucket: b} }
func NewProofNode(p *resource.Proof) RENode   { return RENode{Kind: KindProof, Proof: p} }
func NewVaultNode(v *resource.Vault) RENode   { return RENode{Kind: KindVault, Vault: v} }
func NewKeyValueStoreNode() RENode {
	return RENode{Kind: KindKeyValueStore, KeyValueStore: &KeyValueStoreNode{Entries: map[string][]byte{}}}
}
func NewComponentNode(c *ComponentNode) RENode { return RENode{Kind: KindComponent, Component: c} }
func NewWorktopNode(w *resource.Worktop) RENode { return RENode{Kind: KindWorktop, Worktop: w} }
func NewPackageNode(p *PackageNode) RENode      { return RENode{Kind: KindPackage, Package: p} }
func NewResourceNode(r *ResourceNode) RENode    { return RENode{Kind: KindResource, Resource: r} }
func NewSystemNode(s *SystemNode) RENode        { return RENode{Kind: KindSystem, System: s} }

// ErrCantMoveLockedBucket is returned by VerifyCanMove for a Bucket
// currently backing one or more Proofs.
var ErrCantMoveLockedBucket = errors.New("renode: cannot move a locked bucket")

// ErrCantMoveRestrictedProof is returned by VerifyCanMove for a Proof
// marked restricted (created under a rule that forbids moving it out
// of the frame that produced it).
var ErrCantMoveRestrictedProof = errors.New("renode: cannot move a restricted proof")

// VerifyCanMove checks the move-time invariants for a node being
// transferred from one frame's arena to another's.
func (n RENode) VerifyCanMove() error {
	switch n.Kind {
	case KindBucket:
		if n.Bucket != nil && n.Bucket.IsLocked() {
			return ErrCantMoveLockedBucket
		}
	case KindProof:
		if n.Proof != nil && n.Proof.Restricted {
			return ErrCantMoveRestrictedProof
		}
	}
	return nil
}

// ErrValueNotAllowed is returned by VerifyCanPersist for a node kind
// that can never be written into the substate store directly (only
// KeyValueStore, Component, and Vault are persistable; every other
// kind is either transient or globally addressed through its own
// dedicated commit path).
var ErrValueNotAllowed = errors.New("renode: value not allowed to persist")

// VerifyCanPersist checks whether n may be written into a component's
// or key-value store's owned-node set at globalization/commit time.
func (n RENode) VerifyCanPersist() error {
	switch n.Kind {
	case KindKeyValueStore, KindComponent, KindVault:
		return nil
	default:
		return fmt.Errorf("renode: %s: %w", n.Kind, ErrValueNotAllowed)
	}
}

// DropFailureError reports that a node left owned at frame-return time
// could not be dropped silently.
type DropFailureError struct {
	Kind Kind
}

func (e *DropFailureError) Error() string {
	return fmt.Sprintf("renode: drop failure: %s", e.Kind)
}

// TryDrop attempts to silently discard a node still owned by a frame
// when it returns. Only a Proof (releasing its container lock), an
// empty unlocked Bucket, or an empty Worktop may be dropped this way;
// every other kind fails with DropFailureError, since silently
// discarding a non-empty Bucket, Vault, Component, or KeyValueStore
// would violate resource conservation or drop committed state.
func (n RENode) TryDrop() error {
	switch n.Kind {
	case KindBucket:
		if n.Bucket != nil && (!n.Bucket.IsEmpty() || n.Bucket.IsLocked()) {
			return &DropFailureError{Kind: n.Kind}
		}
		return nil
	case KindProof:
		if n.Proof != nil {
			n.Proof.Release()
		}
		return nil
	case KindWorktop:
		if n.Worktop != nil && !n.Worktop.IsEmpty() {
			return &DropFailureError{Kind: n.Kind}
		}
		return nil
	default:
		return &DropFailureError{Kind: n.Kind}
	}
}

// ValueId names one entry of a REValue arena: a node's identity within
// its owning frame, or its globally scoped id if it has one.
type ValueId struct {
	Kind Kind

	Bucket    addressing.BucketId
	Proof     addressing.ProofId
	Vault     addressing.VaultId
	KVStore   addressing.KeyValueStoreId
	Component addressing.ComponentAddress
}

func (id ValueId) key() string {
	switch id.Kind {
	case KindBucket:
		return fmt.Sprintf("B:%d", id.Bucket)
	case KindProof:
		return fmt.Sprintf("P:%d", id.Proof)
	case KindVault:
		return fmt.Sprintf("V:%s", id.Vault)
	case KindKeyValueStore:
		return fmt.Sprintf("K:%s", id.KVStore)
	case KindComponent:
		return fmt.Sprintf("C:%s", id.Component)
	default:
		return fmt.Sprintf("?:%s", id.Kind)
	}
}

// REValue is a frame-scoped arena of RENodes: a single root object
// (the value being constructed or moved) plus every node it
// transitively owns, indexed by ValueId. Ownership is membership in
// this map, not pointer identity, so the same Vault reachable from two
// different paths inside one REValue is still a single map entry.
type REValue struct {
	Root     RENode
	NonRoot  map[string]RENode
	ids      map[string]ValueId
}

// NewREValue wraps root with an empty non-root set.
func NewREValue(root RENode) *REValue {
	return &REValue{Root: root, NonRoot: map[string]RENode{}, ids: map[string]ValueId{}}
}

// Insert adds a non-root node to the arena.
func (r *REValue) Insert(id ValueId, n RENode) {
	k := id.key()
	r.NonRoot[k] = n
	r.ids[k] = id
}

// Get looks up a non-root node by id.
func (r *REValue) Get(id ValueId) (RENode, bool) {
	n, ok := r.NonRoot[id.key()]
	return n, ok
}

// Remove deletes a non-root node from the arena, returning it.
func (r *REValue) Remove(id ValueId) (RENode, bool) {
	k := id.key()
	n, ok := r.NonRoot[k]
	if ok {
		delete(r.NonRoot, k)
		delete(r.ids, k)
	}
	return n, ok
}

// Ids returns every non-root id currently present, for persistence and
// drop-checking passes.
func (r *REValue) Ids() []ValueId {
	ids := make([]ValueId, 0, len(r.ids))
	for _, id := range r.ids {
		ids = append(ids, id)
	}
	return ids
}
