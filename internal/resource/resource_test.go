package resource

import (
	"errors"
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

func testAddr() addressing.ResourceAddress {
	seed := addressing.Sum256([]byte("resource-test"))
	return addressing.NewResourceAddress(seed, 0)
}

func TestMintGranularityRejection(t *testing.T) {
	rm := NewFungibleResourceManager(testAddr(), 0)
	amount, _ := bnum.ParseDecimal("0.1")
	_, err := rm.Mint(amount)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMintOverflow(t *testing.T) {
	rm := NewFungibleResourceManager(testAddr(), 0)
	amount, _ := bnum.ParseDecimal("1000000000000000001")
	_, err := rm.Mint(amount)
	if !errors.Is(err, ErrMaxMintAmountExceeded) {
		t.Fatalf("expected ErrMaxMintAmountExceeded, got %v", err)
	}
}

func TestVaultBucketConservation(t *testing.T) {
	rm := NewFungibleResourceManager(testAddr(), 18)
	total, _ := bnum.ParseDecimal("100")
	minted, err := rm.Mint(total)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	vault := NewVault(minted)

	withdrawAmt, _ := bnum.ParseDecimal("0.000001")
	bucket, err := vault.Take(withdrawAmt)
	if err != nil {
		t.Fatalf("take: %v", err)
	}

	sum := vault.Amount().Add(bucket.Amount())
	if sum.Cmp(total) != 0 {
		t.Errorf("conservation violated: vault %s + bucket %s != total %s",
			vault.Amount().String(), bucket.Amount().String(), total.String())
	}
}

func TestProofLocksBucket(t *testing.T) {
	rm := NewFungibleResourceManager(testAddr(), 18)
	amount, _ := bnum.ParseDecimal("10")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	bucket := NewBucket(c)
	lockAmt, _ := bnum.ParseDecimal("10")
	proof, err := NewFungibleProof(bucket.Container(), lockAmt, false)
	if err != nil {
		t.Fatalf("create proof: %v", err)
	}
	if !bucket.IsLocked() {
		t.Errorf("expected bucket to be locked while proof exists")
	}
	if _, err := bucket.Take(lockAmt); err == nil {
		t.Errorf("expected take to fail on a fully locked bucket")
	}
	proof.Release()
	if bucket.IsLocked() {
		t.Errorf("expected bucket unlocked after proof release")
	}
}

func TestWorktopMustBeEmptyAtEnd(t *testing.T) {
	w := NewWorktop()
	if !w.IsEmpty() {
		t.Fatalf("new worktop should be empty")
	}
	rm := NewFungibleResourceManager(testAddr(), 18)
	amount, _ := bnum.ParseDecimal("5")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := w.Put(rm.Address, NewBucket(c)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if w.IsEmpty() {
		t.Fatalf("worktop should not be empty after put")
	}
	bucket, err := w.TakeAll(rm.Address)
	if err != nil {
		t.Fatalf("take all: %v", err)
	}
	if bucket.Amount().Cmp(amount) != 0 {
		t.Errorf("expected to take back %s, got %s", amount.String(), bucket.Amount().String())
	}
	if !w.IsEmpty() {
		t.Errorf("worktop should be empty after taking everything back")
	}
}

func TestAccessRuleMarshalRoundTrip(t *testing.T) {
	badge := testAddr()
	amount, _ := bnum.ParseDecimal("5")
	cases := []AccessRule{
		AllowAll(),
		DenyAll(),
		Require(badge),
		RequireAmount(badge, amount),
		AllOf(Require(badge), AllowAll()),
		AnyOf(DenyAll(), RequireAmount(badge, amount)),
	}
	for i, rule := range cases {
		encoded := rule.Marshal()
		decoded, err := UnmarshalAccessRule(encoded)
		if err != nil {
			t.Fatalf("case %d: unmarshal: %v", i, err)
		}
		if decoded.Kind != rule.Kind {
			t.Fatalf("case %d: kind mismatch: got %v, want %v", i, decoded.Kind, rule.Kind)
		}
		if len(decoded.Children) != len(rule.Children) {
			t.Fatalf("case %d: children count mismatch: got %d, want %d", i, len(decoded.Children), len(rule.Children))
		}
	}
}

func TestAccessRuleMarshalRequirePreservesResourceAndAmount(t *testing.T) {
	badge := testAddr()
	amount, _ := bnum.ParseDecimal("12.5")
	rule := RequireAmount(badge, amount)

	decoded, err := UnmarshalAccessRule(rule.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Resource.Address != badge.Address {
		t.Errorf("resource address mismatch after round trip")
	}
	if decoded.Amount.Cmp(amount) != 0 {
		t.Errorf("amount mismatch: got %s, want %s", decoded.Amount.String(), amount.String())
	}
}

func TestAccessRuleEvaluation(t *testing.T) {
	badge := testAddr()
	rule := Require(badge)
	zone := NewAuthZone()
	if rule.Evaluate(zone) {
		t.Fatalf("expected rule to fail against empty auth zone")
	}
	rm := NewFungibleResourceManager(badge, 18)
	amount, _ := bnum.ParseDecimal("1")
	c, err := rm.Mint(amount)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	proof, err := NewFungibleProof(c, amount, false)
	if err != nil {
		t.Fatalf("create proof: %v", err)
	}
	zone.Push(proof)
	if !rule.Evaluate(zone) {
		t.Errorf("expected rule to pass once the badge proof is present")
	}
}
