package renode

import (
	"errors"
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/resource"
)

func testResourceAddr() addressing.ResourceAddress {
	seed := addressing.Sum256([]byte("renode-test"))
	return addressing.NewResourceAddress(seed, 0)
}

func TestVerifyCanMoveRejectsLockedBucket(t *testing.T) {
	rm := resource.NewFungibleResourceManager(testResourceAddr(), 18)
	amount, _ := bnum.ParseDecimal("10")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	bucket := resource.NewBucket(c)
	proof, err := resource.NewFungibleProof(bucket.Container(), amount, false)
	if err != nil {
		t.Fatalf("create proof: %v", err)
	}
	node := NewBucketNode(bucket)
	if err := node.VerifyCanMove(); !errors.Is(err, ErrCantMoveLockedBucket) {
		t.Fatalf("expected ErrCantMoveLockedBucket, got %v", err)
	}
	proof.Release()
	if err := node.VerifyCanMove(); err != nil {
		t.Errorf("expected move to succeed after release, got %v", err)
	}
}

func TestVerifyCanMoveRejectsRestrictedProof(t *testing.T) {
	rm := resource.NewFungibleResourceManager(testResourceAddr(), 18)
	amount, _ := bnum.ParseDecimal("10")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	bucket := resource.NewBucket(c)
	proof, err := resource.NewFungibleProof(bucket.Container(), amount, true)
	if err != nil {
		t.Fatalf("create proof: %v", err)
	}
	node := NewProofNode(proof)
	if err := node.VerifyCanMove(); !errors.Is(err, ErrCantMoveRestrictedProof) {
		t.Fatalf("expected ErrCantMoveRestrictedProof, got %v", err)
	}
}

func TestVerifyCanPersist(t *testing.T) {
	vaultNode := NewVaultNode(resource.NewVault(resource.NewFungibleContainer(testResourceAddr())))
	if err := vaultNode.VerifyCanPersist(); err != nil {
		t.Errorf("expected vault to be persistable, got %v", err)
	}
	bucketNode := NewBucketNode(resource.NewBucket(resource.NewFungibleContainer(testResourceAddr())))
	if err := bucketNode.VerifyCanPersist(); !errors.Is(err, ErrValueNotAllowed) {
		t.Errorf("expected bucket to be non-persistable, got %v", err)
	}
}

func TestTryDropRules(t *testing.T) {
	worktopNode := NewWorktopNode(resource.NewWorktop())
	if err := worktopNode.TryDrop(); err != nil {
		t.Errorf("expected empty worktop to be droppable, got %v", err)
	}

	rm := resource.NewFungibleResourceManager(testResourceAddr(), 18)
	amount, _ := bnum.ParseDecimal("1")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	bucketNode := NewBucketNode(resource.NewBucket(c))
	var dropErr *DropFailureError
	if err := bucketNode.TryDrop(); !errors.As(err, &dropErr) {
		t.Errorf("expected a non-empty bucket to fail dropping, got %v", err)
	}
}

func TestREValueArenaMembership(t *testing.T) {
	root := NewComponentNode(&ComponentNode{Blueprint: "Account"})
	arena := NewREValue(root)
	seed := addressing.Sum256([]byte("tx"))
	vid := addressing.VaultId{TxHash: seed, Counter: 0}
	vaultNode := NewVaultNode(resource.NewVault(resource.NewFungibleContainer(testResourceAddr())))
	arena.Insert(ValueId{Kind: KindVault, Vault: vid}, vaultNode)

	got, ok := arena.Get(ValueId{Kind: KindVault, Vault: vid})
	if !ok || got.Kind != KindVault {
		t.Fatalf("expected to find inserted vault node")
	}
	if len(arena.Ids()) != 1 {
		t.Fatalf("expected 1 non-root id, got %d", len(arena.Ids()))
	}
	if _, ok := arena.Remove(ValueId{Kind: KindVault, Vault: vid}); !ok {
		t.Fatalf("expected remove to find the node")
	}
	if len(arena.Ids()) != 0 {
		t.Fatalf("expected 0 non-root ids after remove")
	}
}
