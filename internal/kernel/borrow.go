package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/substate"
)

func substateKey(id substate.SubstateId) string {
	return string(id.Key())
}

// BorrowTracker implements the kernel's scoped-acquisition discipline
// over global substates (ResourceManager, Component state, Vault): a
// substate may be held mutably by at most one active frame at a time.
// Acquire loads nothing itself (the caller does that); it only
// arbitrates the lock. Release clears it so an ancestor frame (or a
// later sibling call) can acquire it again.
type BorrowTracker struct {
	locked map[string]bool
}

// NewBorrowTracker returns an empty tracker.
func NewBorrowTracker() *BorrowTracker {
	return &BorrowTracker{locked: map[string]bool{}}
}

// Acquire marks id as mutably borrowed. It fails with ErrBorrowConflict
// if id is already held by another active frame (re-entrant borrow of
// the same global substate, e.g. a component calling back into
// itself).
func (t *BorrowTracker) Acquire(id substate.SubstateId) error {
	k := substateKey(id)
	if t.locked[k] {
		return fmt.Errorf("kernel: acquire %v: %w", id.Kind, ErrBorrowConflict)
	}
	t.locked[k] = true
	return nil
}

// Release clears a previously acquired borrow. It is a no-op if id is
// not currently held, so a frame's unwind path can call Release
// unconditionally on every substate it may have borrowed.
func (t *BorrowTracker) Release(id substate.SubstateId) {
	delete(t.locked, substateKey(id))
}

// IsHeld reports whether id is currently borrowed by some active frame.
func (t *BorrowTracker) IsHeld(id substate.SubstateId) bool {
	return t.locked[substateKey(id)]
}
