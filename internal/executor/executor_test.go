package executor

import (
	"errors"
	"testing"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/config"
	"github.com/radixcore/engine/internal/fee"
	"github.com/radixcore/engine/internal/kernel"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
)

type testEnv struct {
	store    *substate.MemStore
	genesis  *config.GenesisResult
	executor *Executor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := substate.NewMemStore()
	gen, err := config.DefaultGenesis("engine-devnet").Apply(store)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	cfg := config.DefaultConfig()
	return &testEnv{
		store:    store,
		genesis:  gen,
		executor: New(store, nil, cfg, nil, nil),
	}
}

func (env *testEnv) header(nonce uint64) Header {
	return Header{
		Version:       TransactionVersion,
		NetworkID:     "engine-devnet",
		StartEpoch:    0,
		EndEpoch:      100,
		Nonce:         nonce,
		CostUnitLimit: 10_000_000,
	}
}

func (env *testEnv) execute(t *testing.T, nonce uint64, instructions ...Instruction) *Receipt {
	t.Helper()
	return env.executor.Execute(&Transaction{Header: env.header(nonce), Instructions: instructions})
}

func dec(t *testing.T, s string) bnum.Decimal {
	t.Helper()
	d, err := bnum.ParseDecimal(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func (env *testEnv) vaultBalance(t *testing.T, vid addressing.VaultId) bnum.Decimal {
	t.Helper()
	ov, err := env.store.Get(substate.VaultId(vid))
	if err != nil {
		t.Fatalf("get vault %s: %v", vid.String(), err)
	}
	return ov.Substate.VaultLiquid.Amount
}

func (env *testEnv) accountVault(t *testing.T, addr addressing.ComponentAddress) addressing.VaultId {
	t.Helper()
	ov, err := env.store.Get(substate.ComponentStateId(addr))
	if err != nil {
		t.Fatalf("get component state %s: %v", addr.String(), err)
	}
	val, err := scryptovalue.FromBytes(ov.Substate.Component.StateBytes)
	if err != nil {
		t.Fatalf("decode component state: %v", err)
	}
	if len(val.VaultIDs) != 1 {
		t.Fatalf("expected one vault in account state, got %d", len(val.VaultIDs))
	}
	return val.VaultIDs[0]
}

func (env *testEnv) newAccount(t *testing.T, nonce uint64) addressing.ComponentAddress {
	t.Helper()
	receipt := env.execute(t, nonce,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CallFunction(env.genesis.AccountPackage, "Account", "new"),
	)
	if receipt.Status != StatusSucceeded {
		t.Fatalf("account creation failed: %v", receipt.Err)
	}
	if len(receipt.NewComponentAddresses) != 1 {
		t.Fatalf("expected one new component, got %d", len(receipt.NewComponentAddresses))
	}
	return receipt.NewComponentAddresses[0]
}

func TestExecuteRejectsBadHeader(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		mutate func(*Header)
		want   error
	}{
		{"unknown version", func(h *Header) { h.Version = 9 }, ErrUnknownVersion},
		{"network mismatch", func(h *Header) { h.NetworkID = "engine-mainnet" }, ErrNetworkMismatch},
		{"inverted epochs", func(h *Header) { h.StartEpoch, h.EndEpoch = 50, 10 }, ErrInvalidEpochRange},
		{"empty epoch range", func(h *Header) { h.StartEpoch, h.EndEpoch = 10, 10 }, ErrInvalidEpochRange},
		{"closed epoch window", func(h *Header) { h.StartEpoch, h.EndEpoch = 50, 60 }, ErrEpochWindowClosed},
		{"cost unit limit too low", func(h *Header) { h.CostUnitLimit = MinCostUnitLimit - 1 }, ErrCostUnitLimitOutOfRange},
		{"cost unit limit too high", func(h *Header) { h.CostUnitLimit = MaxCostUnitLimit + 1 }, ErrCostUnitLimitOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := env.header(1)
			tc.mutate(&h)
			receipt := env.executor.Execute(&Transaction{Header: h})
			if receipt.Status != StatusRejected {
				t.Fatalf("expected rejection, got %s (%v)", receipt.Status, receipt.Err)
			}
			if !errors.Is(receipt.Err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, receipt.Err)
			}
		})
	}
}

// S1: minting 0.1 of a granularity-0 resource commits a failure with
// InvalidAmount; the resource itself (created in a prior transaction)
// is untouched.
func TestMintGranularityRejection(t *testing.T) {
	env := newTestEnv(t)

	created := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CreateResource(0, map[string]string{"symbol": "TOK"}, true),
	)
	if created.Status != StatusSucceeded {
		t.Fatalf("create resource failed: %v", created.Err)
	}
	tok := created.NewResourceAddresses[0]

	receipt := env.execute(t, 2,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		MintResource(tok, dec(t, "0.1")),
	)
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if !errors.Is(receipt.Err, resource.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", receipt.Err)
	}
}

// S2: minting past the 10^18 supply ceiling commits a failure with
// MaxMintAmountExceeded.
func TestMintOverflow(t *testing.T) {
	env := newTestEnv(t)

	created := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CreateResource(0, nil, true),
	)
	if created.Status != StatusSucceeded {
		t.Fatalf("create resource failed: %v", created.Err)
	}
	tok := created.NewResourceAddresses[0]

	receipt := env.execute(t, 2,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		MintResource(tok, dec(t, "1000000000000000001")),
	)
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if !errors.Is(receipt.Err, resource.ErrMaxMintAmountExceeded) {
		t.Fatalf("expected ErrMaxMintAmountExceeded, got %v", receipt.Err)
	}
}

// Minting a resource created without mint access fails authorization.
func TestMintNotAuthorized(t *testing.T) {
	env := newTestEnv(t)

	created := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CreateResource(0, nil, false),
	)
	if created.Status != StatusSucceeded {
		t.Fatalf("create resource failed: %v", created.Err)
	}
	tok := created.NewResourceAddresses[0]

	receipt := env.execute(t, 2,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		MintResource(tok, dec(t, "1")),
	)
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if !errors.Is(receipt.Err, kernel.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", receipt.Err)
	}
}

// A full mint/burn cycle leaves the resource's total supply where it
// started and the worktop empty.
func TestMintBurnRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	created := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CreateResource(18, nil, true),
	)
	if created.Status != StatusSucceeded {
		t.Fatalf("create resource failed: %v", created.Err)
	}
	tok := created.NewResourceAddresses[0]

	receipt := env.execute(t, 2,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		MintResource(tok, dec(t, "5")),
		AssertWorktopContainsByAmount(tok, dec(t, "5")),
		TakeFromWorktop(tok),
		BurnBucket(tok, 0),
	)
	if receipt.Status != StatusSucceeded {
		t.Fatalf("mint/burn failed: %v", receipt.Err)
	}

	ov, err := env.store.Get(substate.ResourceManagerId(tok))
	if err != nil {
		t.Fatalf("get resource manager: %v", err)
	}
	if !ov.Substate.ResourceManager.TotalSupply.IsZero() {
		t.Fatalf("expected zero supply after burn, got %s", ov.Substate.ResourceManager.TotalSupply.String())
	}
}

// S6: a fee-locked XRD transfer between two accounts. A loses exactly
// the transferred amount, B gains it, the worktop ends empty, and the
// faucet (the fee payer) loses exactly spent + tip.
func TestXRDTransfer(t *testing.T) {
	env := newTestEnv(t)
	xrd := env.genesis.FeeResource

	accountA := env.newAccount(t, 1)
	accountB := env.newAccount(t, 2)

	funded := env.execute(t, 3,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CallMethodWithAmount(env.genesis.FaucetComponent, "withdraw", dec(t, "100")),
		TakeFromWorktopByAmount(xrd, dec(t, "100")),
		CallMethodWithBucket(accountA, "deposit", 0),
	)
	if funded.Status != StatusSucceeded {
		t.Fatalf("funding failed: %v", funded.Err)
	}

	faucetBefore := env.vaultBalance(t, env.genesis.FaucetVault)

	receipt := env.execute(t, 4,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CallMethodWithAmount(accountA, "withdraw", dec(t, "0.000001")),
		DepositBatch(accountB),
	)
	if receipt.Status != StatusSucceeded {
		t.Fatalf("transfer failed: %v", receipt.Err)
	}

	balanceA := env.vaultBalance(t, env.accountVault(t, accountA))
	balanceB := env.vaultBalance(t, env.accountVault(t, accountB))
	wantA := dec(t, "100").Sub(dec(t, "0.000001"))
	if balanceA.Cmp(wantA) != 0 {
		t.Errorf("account A: expected %s, got %s", wantA.String(), balanceA.String())
	}
	if balanceB.Cmp(dec(t, "0.000001")) != 0 {
		t.Errorf("account B: expected 0.000001, got %s", balanceB.String())
	}

	// Fee monotonicity: the payer vault decreased by exactly what the
	// fee summary says execution cost.
	faucetAfter := env.vaultBalance(t, env.genesis.FaucetVault)
	paid := faucetBefore.Sub(faucetAfter)
	want := receipt.FeeSummary.Spent.Add(receipt.FeeSummary.Tip)
	if paid.Cmp(want) != 0 {
		t.Errorf("fee paid: expected %s, got %s", want.String(), paid.String())
	}
	if receipt.FeeSummary.CostUnitsConsumed == 0 {
		t.Error("expected non-zero cost units consumed")
	}
}

// A transaction that leaves resources on the worktop fails, and none of
// its state changes except the fee payment commit.
func TestWorktopMustBeEmptyAtEnd(t *testing.T) {
	env := newTestEnv(t)
	faucetBefore := env.vaultBalance(t, env.genesis.FaucetVault)

	receipt := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CallMethodWithAmount(env.genesis.FaucetComponent, "withdraw", dec(t, "1")),
	)
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if !errors.Is(receipt.Err, kernel.ErrWorktopNotEmpty) {
		t.Fatalf("expected ErrWorktopNotEmpty, got %v", receipt.Err)
	}

	// Only the fee left the faucet; the withdrawn 1 XRD was rolled back.
	faucetAfter := env.vaultBalance(t, env.genesis.FaucetVault)
	paid := faucetBefore.Sub(faucetAfter)
	want := receipt.FeeSummary.Spent.Add(receipt.FeeSummary.Tip)
	if paid.Cmp(want) != 0 {
		t.Errorf("expected faucet to pay only %s, paid %s", want.String(), paid.String())
	}
}

// Exhausting the cost-unit reserve fails the transaction with
// CostUnitExhausted.
func TestCostUnitExhaustion(t *testing.T) {
	env := newTestEnv(t)

	h := env.header(1)
	h.CostUnitLimit = MinCostUnitLimit
	receipt := env.executor.Execute(&Transaction{
		Header: h,
		Instructions: []Instruction{
			LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		},
	})
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if !errors.Is(receipt.Err, fee.ErrCostUnitExhausted) {
		t.Fatalf("expected ErrCostUnitExhausted, got %v", receipt.Err)
	}
}

// Determinism: the same transaction sequence against two fresh genesis
// stores yields identical receipts and identical post-state balances.
func TestDeterministicExecution(t *testing.T) {
	run := func() (addressing.ComponentAddress, bnum.Decimal, *Receipt, *testEnv) {
		env := newTestEnv(t)
		account := env.newAccount(t, 1)
		receipt := env.execute(t, 2,
			LockFee(env.genesis.FaucetComponent, dec(t, "10")),
			CallMethodWithAmount(env.genesis.FaucetComponent, "withdraw", dec(t, "42")),
			TakeFromWorktopByAmount(env.genesis.FeeResource, dec(t, "42")),
			CallMethodWithBucket(account, "deposit", 0),
		)
		return account, env.vaultBalance(t, env.accountVault(t, account)), receipt, env
	}

	acct1, bal1, r1, _ := run()
	acct2, bal2, r2, _ := run()

	if acct1 != acct2 {
		t.Errorf("account addresses diverged: %s vs %s", acct1.String(), acct2.String())
	}
	if bal1.Cmp(bal2) != 0 {
		t.Errorf("balances diverged: %s vs %s", bal1.String(), bal2.String())
	}
	if r1.Status != r2.Status {
		t.Errorf("statuses diverged: %s vs %s", r1.Status, r2.Status)
	}
	if r1.FeeSummary.CostUnitsConsumed != r2.FeeSummary.CostUnitsConsumed {
		t.Errorf("cost units diverged: %d vs %d", r1.FeeSummary.CostUnitsConsumed, r2.FeeSummary.CostUnitsConsumed)
	}
	if len(r1.Events) != len(r2.Events) {
		t.Errorf("event streams diverged: %d vs %d", len(r1.Events), len(r2.Events))
	}
}

// A failed transaction reports no created entities, even when the
// failing instruction ran after a creating one.
func TestFailureRollsBackCreatedEntities(t *testing.T) {
	env := newTestEnv(t)

	receipt := env.execute(t, 1,
		LockFee(env.genesis.FaucetComponent, dec(t, "10")),
		CreateResource(0, nil, true),
		CallMethodWithAmount(env.genesis.FaucetComponent, "withdraw", dec(t, "1")),
		// Worktop left non-empty: the transaction fails at the end.
	)
	if receipt.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", receipt.Status)
	}
	if len(receipt.NewResourceAddresses) != 0 {
		t.Errorf("expected no new resources on failure, got %d", len(receipt.NewResourceAddresses))
	}
}
