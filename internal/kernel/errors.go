// Package kernel implements the nested call-frame interpreter that
// mediates every host-side operation a Wasm guest (or a native s-node
// caller, such as the transaction executor) may invoke: resolving a
// callee, computing the move-set and visible-set of an invocation,
// checking authorization, metering cost, running the callee, and
// moving its return value back. It owns the per-frame object arena
// (renode.RENode by renode.ValueId), the borrow discipline over
// global substates, and globalization.
package kernel

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/renode"
)

// ErrMaxCallDepthExceeded is returned when an invocation would push
// the callee frame past the configured maximum call depth.
var ErrMaxCallDepthExceeded = errors.New("kernel: max call depth exceeded")

// ErrRENodeNotFound is returned when a value references a node id not
// present in any reachable arena.
var ErrRENodeNotFound = errors.New("kernel: node not found")

// ErrRENodeCreateNodeNotFound is returned at component-creation time
// when the state being attached references a Vault or KeyValueStore id
// that either does not exist in the creating frame's arena (never
// produced) or has already been claimed by another component this
// transaction (double ownership).
var ErrRENodeCreateNodeNotFound = errors.New("kernel: create node: referenced node not found")

// ErrStoredNodeRemoved is returned when a data write would silently
// drop a previously stored Vault or KeyValueStore reference.
var ErrStoredNodeRemoved = errors.New("kernel: stored node removed")

// ErrCyclicInvocation names a frame re-entering an invocation chain
// that would borrow a substate it (or an ancestor) is already
// borrowing. No kernel path returns it: such a re-entrant borrow is
// reported by BorrowTracker.Acquire as ErrBorrowConflict.
var ErrCyclicInvocation = errors.New("kernel: cyclic invocation")

// ErrBorrowConflict is returned when a substate is already borrowed
// mutably by another active frame.
var ErrBorrowConflict = errors.New("kernel: borrow conflict")

// ErrNotAuthorized is returned when the caller's auth zone does not
// satisfy the callee method's access rule.
var ErrNotAuthorized = errors.New("kernel: not authorized")

// ErrMethodNotFound is returned when a native s-node is invoked with an
// FnIdentifier outside the normative set observed for that s-node.
var ErrMethodNotFound = errors.New("kernel: method not found")

// ErrPackageNotFound is returned when a SNodeRef names a package never
// published (or not yet visible to this store snapshot).
var ErrPackageNotFound = errors.New("kernel: package not found")

// ErrComponentNotFound is returned when a SNodeRef names a component
// address with no ComponentInfo substate.
var ErrComponentNotFound = errors.New("kernel: component not found")

// ErrWorktopNotEmpty is returned by the executor (via the root frame's
// Worktop.IsEmpty check) when a transaction would otherwise commit
// with resources still sitting on the worktop.
var ErrWorktopNotEmpty = errors.New("kernel: worktop not empty at transaction end")

// ErrValueNotAllowed, ErrCantMoveLockedBucket, and
// ErrCantMoveRestrictedProof are the kernel-level names for the
// move/persist invariants renode enforces on individual nodes. They
// alias the renode sentinels directly (rather than re-wrapping them)
// so errors.Is(err, kernel.ErrValueNotAllowed) and
// errors.Is(err, renode.ErrValueNotAllowed) both hold for the same
// underlying failure.
var (
	ErrValueNotAllowed          = renode.ErrValueNotAllowed
	ErrCantMoveLockedBucket     = renode.ErrCantMoveLockedBucket
	ErrCantMoveRestrictedProof  = renode.ErrCantMoveRestrictedProof
)

// ErrDropFailure is the sentinel a caller should match against (via
// errors.Is) when a frame fails to return cleanly; DropFailureError.Unwrap
// resolves to it while still reporting which node Kind failed to drop.
var ErrDropFailure = errors.New("kernel: drop failure")

// DropFailureError reports that a node left owned by a returning frame
// could not be silently dropped.
type DropFailureError struct {
	Kind renode.Kind
}

func (e *DropFailureError) Error() string {
	return fmt.Sprintf("kernel: drop failure: %s", e.Kind)
}

func (e *DropFailureError) Unwrap() error { return ErrDropFailure }
