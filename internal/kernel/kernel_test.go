package kernel

import (
	"errors"
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/fee"
	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	store := substate.NewMemStore()
	reserve := fee.NewReserve(fee.DefaultCostTable(), 10_000_000, bnum.FromInt64(1))
	return New(store, nil, fee.DefaultCostTable(), reserve, addressing.Sum256([]byte("test-tx")), 16, nil)
}

// S3: a component created referencing a Vault id never produced by a
// prior call in this transaction must be rejected, not silently
// orphan the id.
func TestCreateComponentNode_OrphanVault(t *testing.T) {
	k := newTestKernel(t)
	frame := NewRootFrame(Actor{Kind: ActorBlueprint, Blueprint: "Widget"})

	neverProduced := addressing.VaultId{TxHash: k.txHash, Counter: 999}
	state := sbor.Encode(scryptovalue.MarshalVaultId(neverProduced))

	_, err := k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{})
	if !errors.Is(err, ErrRENodeCreateNodeNotFound) {
		t.Fatalf("expected ErrRENodeCreateNodeNotFound, got %v", err)
	}
}

// S4: overwriting a component's state such that it no longer
// references a vault the prior state referenced must be rejected.
func TestDataWrite_StoredNodeRemoved(t *testing.T) {
	k := newTestKernel(t)
	frame := NewRootFrame(Actor{Kind: ActorBlueprint, Blueprint: "Widget"})

	vid := k.CreateVaultNode(frame, resource.NewFungibleContainer(addressing.XRDResourceAddress))
	state := sbor.Encode(scryptovalue.MarshalVaultId(vid))

	addr, err := k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{})
	if err != nil {
		t.Fatalf("create component: %v", err)
	}
	if err := k.GlobalizeComponent(frame, addr); err != nil {
		t.Fatalf("globalize: %v", err)
	}

	emptyState := sbor.Encode(sbor.Unit())
	err = k.DataWrite(DataAddress{Kind: DataComponentState, Component: addr}, emptyState)
	if !errors.Is(err, ErrStoredNodeRemoved) {
		t.Fatalf("expected ErrStoredNodeRemoved, got %v", err)
	}
}

// S5: two components cannot both claim ownership of the same Vault id
// created in this transaction.
func TestCreateComponentNode_DoubleOwnership(t *testing.T) {
	k := newTestKernel(t)
	frame := NewRootFrame(Actor{Kind: ActorBlueprint, Blueprint: "Widget"})

	vid := k.CreateVaultNode(frame, resource.NewFungibleContainer(addressing.XRDResourceAddress))
	state := sbor.Encode(scryptovalue.MarshalVaultId(vid))

	addr, err := k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{})
	if err != nil {
		t.Fatalf("first create component: %v", err)
	}
	if err := k.GlobalizeComponent(frame, addr); err != nil {
		t.Fatalf("globalize: %v", err)
	}

	// The vault id has been claimed and globalized away; a second
	// attempt to attach it to a new component must fail even though
	// nothing currently sits in frame's arena under that id (frame.Has
	// already reports false, which also triggers
	// ErrRENodeCreateNodeNotFound — the claimed-set check below is what
	// distinguishes this from a plain "never produced" report, though
	// both surface the same sentinel).
	_, err = k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{})
	if !errors.Is(err, ErrRENodeCreateNodeNotFound) {
		t.Fatalf("expected ErrRENodeCreateNodeNotFound on double ownership, got %v", err)
	}
}

// Double ownership must be rejected even when the second component is
// built before the first one is globalized, i.e. the vault id is still
// technically reachable in the same frame's arena but already claimed
// by an uncommitted sibling component.
func TestCreateComponentNode_DoubleOwnershipWithinSameFrame(t *testing.T) {
	k := newTestKernel(t)
	frame := NewRootFrame(Actor{Kind: ActorBlueprint, Blueprint: "Widget"})

	vid := k.CreateVaultNode(frame, resource.NewFungibleContainer(addressing.XRDResourceAddress))
	state := sbor.Encode(scryptovalue.MarshalVaultId(vid))

	if _, err := k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{}); err != nil {
		t.Fatalf("first create component: %v", err)
	}

	_, err := k.CreateComponentNode(frame, addressing.PackageAddress{}, "Widget", state, map[string][]byte{})
	if !errors.Is(err, ErrRENodeCreateNodeNotFound) {
		t.Fatalf("expected ErrRENodeCreateNodeNotFound, got %v", err)
	}
}

// The call-depth bound must be enforced before any other invocation
// step runs.
func TestInvoke_MaxCallDepthExceeded(t *testing.T) {
	k := newTestKernel(t)
	k.maxDepth = 2

	root := NewRootFrame(Actor{Kind: ActorNative, SNode: SNodeSystem})
	ref := SNodeRef{IsNative: true, SNode: SNodeSystem, FnIdent: "get_transaction_hash"}

	depth0Frame := root
	_, err := k.Invoke(depth0Frame, ref, scryptovalue.Value{})
	if err != nil {
		t.Fatalf("depth 1 invoke: %v", err)
	}

	// Manufacture a frame already at the configured max depth and
	// confirm the next Invoke is rejected before any side effects run.
	deep := &Frame{Actor: root.Actor, Depth: k.maxDepth, Owned: map[string]ownedEntry{}, AuthZone: resource.NewAuthZone()}
	_, err = k.Invoke(deep, ref, scryptovalue.Value{})
	if !errors.Is(err, ErrMaxCallDepthExceeded) {
		t.Fatalf("expected ErrMaxCallDepthExceeded, got %v", err)
	}
}

// A Bucket still locked by an outstanding Proof cannot be moved between
// frames.
func TestComputeMoveSet_CantMoveLockedBucket(t *testing.T) {
	k := newTestKernel(t)
	caller := NewRootFrame(Actor{Kind: ActorBlueprint, Blueprint: "Widget"})

	c, err := resource.NewFungibleContainer(addressing.XRDResourceAddress).Take(bnum.Zero())
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	c.Put(directDeposit(bnum.FromInt64(10)))
	bid := k.NewBucketId()
	bucket := resource.NewBucket(c)
	caller.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(bucket))

	if _, err := resource.NewFungibleProof(c, bnum.FromInt64(5), false); err != nil {
		t.Fatalf("create proof: %v", err)
	}

	callee := NewChildFrame(caller, Actor{Kind: ActorNative, SNode: SNodeBucket})
	args, err := scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}

	err = k.computeMoveSet(caller, callee, args)
	if !errors.Is(err, ErrCantMoveLockedBucket) {
		t.Fatalf("expected ErrCantMoveLockedBucket, got %v", err)
	}
}

func directDeposit(amount bnum.Decimal) *resource.Container {
	return resource.RestoreContainer(addressing.XRDResourceAddress, amount, nil)
}

// The native Account blueprint runs through the full invocation
// protocol (resolve, move-set, visible-set, auth, meter, run, return)
// without any Wasm binary behind its package.
func TestNativeBlueprintAccountFlow(t *testing.T) {
	k := newTestKernel(t)
	root := NewRootFrame(Actor{Kind: ActorNative, SNode: SNodeTransactionProcessor})

	pkg := k.PublishNativeBlueprint()
	unit, err := scryptovalue.FromSBOR(sbor.Unit())
	if err != nil {
		t.Fatalf("unit args: %v", err)
	}

	result, err := k.Invoke(root, SNodeRef{IsFunction: true, Package: pkg, Blueprint: "Account", FnIdent: "new"}, unit)
	if err != nil {
		t.Fatalf("invoke new: %v", err)
	}
	if len(result.RefComponents) != 1 {
		t.Fatalf("expected one component reference, got %d", len(result.RefComponents))
	}
	addr := result.RefComponents[0]

	balance, err := k.Invoke(root, SNodeRef{IsMethod: true, Component: addr, FnIdent: "balance"}, unit)
	if err != nil {
		t.Fatalf("invoke balance: %v", err)
	}
	amount, err := bnum.UnmarshalSBORDecimal(balance.Raw)
	if err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if !amount.IsZero() {
		t.Fatalf("expected a fresh account to be empty, got %s", amount.String())
	}
}
