package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/substate"
)

// ownedEntry pairs a renode.ValueId with the RENode it names, so a
// Frame's arena can answer both "is this id owned here" and "what kind
// of node is it" without a second lookup.
type ownedEntry struct {
	id   renode.ValueId
	node renode.RENode
}

// Frame is one call frame of the kernel's nested interpreter: who is
// running (Actor), how deep (Depth), the per-frame object arena
// (Owned, keyed by ValueId membership rather than pointer identity so
// a Component and a KeyValueStore it owns can both reference the same
// Vault id without a cycle-breaking pass), the frame's auth proof
// stack, and — root frame only — the transaction's Worktop.
type Frame struct {
	Actor  Actor
	Depth  int
	Parent *Frame

	Owned map[string]ownedEntry

	// Borrowed lists the global SubstateIds this frame currently holds
	// a mutable borrow on (acquired via the kernel's BorrowTracker),
	// released when the frame returns.
	Borrowed []substate.SubstateId

	AuthZone *resource.AuthZone

	// Worktop is non-nil only on the root frame.
	Worktop *resource.Worktop
}

// NewRootFrame creates the transaction's root frame: depth 0, a fresh
// Worktop, and an AuthZone seeded by the executor from signer proofs.
func NewRootFrame(actor Actor) *Frame {
	return &Frame{
		Actor:    actor,
		Depth:    0,
		Owned:    map[string]ownedEntry{},
		AuthZone: resource.NewAuthZone(),
		Worktop:  resource.NewWorktop(),
	}
}

// NewChildFrame creates a callee frame one level deeper than parent,
// sharing no storage with it: everything the callee needs is moved in
// explicitly by the kernel's move-set computation.
func NewChildFrame(parent *Frame, actor Actor) *Frame {
	return &Frame{
		Actor:    actor,
		Depth:    parent.Depth + 1,
		Parent:   parent,
		Owned:    map[string]ownedEntry{},
		AuthZone: resource.NewAuthZone(),
	}
}

// Insert adds a node to the frame's arena under id.
func (f *Frame) Insert(id renode.ValueId, n renode.RENode) {
	f.Owned[ownedKey(id)] = ownedEntry{id: id, node: n}
}

// Get looks up a node by id without removing it.
func (f *Frame) Get(id renode.ValueId) (renode.RENode, bool) {
	e, ok := f.Owned[ownedKey(id)]
	return e.node, ok
}

// Remove deletes and returns a node from the frame's arena.
func (f *Frame) Remove(id renode.ValueId) (renode.RENode, bool) {
	k := ownedKey(id)
	e, ok := f.Owned[k]
	if ok {
		delete(f.Owned, k)
	}
	return e.node, ok
}

// Has reports whether id is present in this frame's arena.
func (f *Frame) Has(id renode.ValueId) bool {
	_, ok := f.Owned[ownedKey(id)]
	return ok
}

// Ids returns every id currently owned by this frame.
func (f *Frame) Ids() []renode.ValueId {
	ids := make([]renode.ValueId, 0, len(f.Owned))
	for _, e := range f.Owned {
		ids = append(ids, e.id)
	}
	return ids
}

func ownedKey(id renode.ValueId) string {
	// renode.ValueId has no exported key method; build an equivalent
	// stable key locally from the exported fields so kernel does not
	// need an unexported hook into renode.
	switch id.Kind {
	case renode.KindBucket:
		return fmt.Sprintf("B:%d", id.Bucket)
	case renode.KindProof:
		return fmt.Sprintf("P:%d", id.Proof)
	case renode.KindVault:
		return "V:" + id.Vault.String()
	case renode.KindKeyValueStore:
		return "K:" + id.KVStore.String()
	case renode.KindComponent:
		return "C:" + id.Component.String()
	default:
		return "?"
	}
}
