package kernel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/fee"
	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
	"github.com/radixcore/engine/internal/wasmhost"
)

// LogEntry is one EmitLog call retained for the receipt regardless of
// the transaction's outcome.
type LogEntry struct {
	Level   string
	Message string
}

// Event is a kernel-observable occurrence, ordered by manifest
// instruction index then by host-call index within each invocation.
type Event struct {
	Kind    string
	Payload string
}

// pendingSubstate is one write buffered until the executor commits the
// transaction; nothing reaches the Store until Commit is called.
type pendingSubstate struct {
	id    substate.SubstateId
	value substate.OutputValue
}

// Kernel drives the call-frame invocation protocol over one
// transaction: frame creation, move-set/visible-set computation,
// authorization, metering, dispatch (native or Wasm), and the pending
// write-set the executor commits or discards as a unit.
type Kernel struct {
	store    substate.Store
	wasm     *wasmhost.Engine
	costTable fee.CostTable
	reserve  *fee.Reserve
	borrow   *BorrowTracker
	maxDepth int
	logger   *zap.Logger

	txHash  addressing.Hash
	counter uint32

	pending  map[string]pendingSubstate
	setRoots map[string]substate.SubstateId

	// claimedVaults/claimedKVStores record, for this transaction, which
	// Vault/KeyValueStore ids have already been attached into a
	// component's state. A second attachment attempt of the same id is
	// the double-ownership case: ErrRENodeCreateNodeNotFound.
	claimedVaults   map[string]bool
	claimedKVStores map[string]bool

	// feePayments records every LockFee debit (payer vault, amount) in
	// order, so a failing transaction can re-derive the fee commit from
	// the committed store state without dragging along any other write
	// the transaction made to the same vault. feeRefund is the unused
	// portion the executor hands back during settlement; it nets
	// against the first payer vault.
	feePayments []feePayment
	feeRefund   bnum.Decimal

	newPackages   []addressing.PackageAddress
	newComponents []addressing.ComponentAddress
	newResources  []addressing.ResourceAddress

	logs   []LogEntry
	events []Event
}

// New creates a Kernel scoped to one transaction.
func New(store substate.Store, wasmEngine *wasmhost.Engine, costTable fee.CostTable, reserve *fee.Reserve, txHash addressing.Hash, maxDepth int, logger *zap.Logger) *Kernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kernel{
		store:           store,
		wasm:            wasmEngine,
		costTable:       costTable,
		reserve:         reserve,
		borrow:          NewBorrowTracker(),
		maxDepth:        maxDepth,
		logger:          logger.Named("kernel"),
		txHash:          txHash,
		pending:         map[string]pendingSubstate{},
		setRoots:        map[string]substate.SubstateId{},
		claimedVaults:   map[string]bool{},
		claimedKVStores: map[string]bool{},
	}
}

func (k *Kernel) nextCounter() uint32 {
	k.counter++
	return k.counter
}

// NewVaultId mints a fresh, transaction-scoped VaultId.
func (k *Kernel) NewVaultId() addressing.VaultId {
	return addressing.VaultId{TxHash: k.txHash, Counter: k.nextCounter()}
}

// NewKeyValueStoreId mints a fresh, transaction-scoped KeyValueStoreId.
func (k *Kernel) NewKeyValueStoreId() addressing.KeyValueStoreId {
	return addressing.KeyValueStoreId{TxHash: k.txHash, Counter: k.nextCounter()}
}

// NewBucketId mints a fresh, frame-local BucketId (the monotonic
// counter is shared across the transaction for simplicity; uniqueness
// within one frame is all the invariant actually requires).
func (k *Kernel) NewBucketId() addressing.BucketId {
	return addressing.BucketId(k.nextCounter())
}

// NewProofId mints a fresh, frame-local ProofId.
func (k *Kernel) NewProofId() addressing.ProofId {
	return addressing.ProofId(k.nextCounter())
}

// Reserve returns the transaction's fee reserve.
func (k *Kernel) Reserve() *fee.Reserve { return k.reserve }

// Logs returns every EmitLog entry recorded so far.
func (k *Kernel) Logs() []LogEntry { return k.logs }

// Events returns every event recorded so far.
func (k *Kernel) Events() []Event { return k.events }

// NewPackageAddresses, NewComponentAddresses, and NewResourceAddresses
// return the entities created (PublishPackage / Globalize /
// CreateResource) so far this transaction, for receipt assembly.
func (k *Kernel) NewPackageAddresses() []addressing.PackageAddress     { return k.newPackages }
func (k *Kernel) NewComponentAddresses() []addressing.ComponentAddress { return k.newComponents }
func (k *Kernel) NewResourceAddresses() []addressing.ResourceAddress   { return k.newResources }

// EmitLog records a log line; logs are retained on any outcome.
func (k *Kernel) EmitLog(level, message string) {
	k.logs = append(k.logs, LogEntry{Level: level, Message: message})
}

func (k *Kernel) emitEvent(kind, payload string) {
	k.events = append(k.events, Event{Kind: kind, Payload: payload})
}

// getSubstate resolves id, preferring this transaction's own pending
// write-set over the committed store (read-your-writes within one
// transaction).
func (k *Kernel) getSubstate(id substate.SubstateId) (substate.Substate, bool, error) {
	if p, ok := k.pending[pendingKey(id)]; ok {
		return p.value.Substate, true, nil
	}
	ov, err := k.store.Get(id)
	if err != nil {
		if err == substate.ErrNotFound {
			return substate.Substate{}, false, nil
		}
		return substate.Substate{}, false, err
	}
	return ov.Substate, true, nil
}

// putSubstate buffers a write; nothing reaches the store until Commit.
func (k *Kernel) putSubstate(id substate.SubstateId, s substate.Substate) {
	k.pending[pendingKey(id)] = pendingSubstate{id: id, value: substate.OutputValue{Substate: s, Version: k.nextVersion(id)}}
}

func (k *Kernel) nextVersion(id substate.SubstateId) substate.Version {
	if ov, err := k.store.Get(id); err == nil {
		return ov.Version + 1
	}
	return 1
}

func (k *Kernel) setRoot(id substate.SubstateId) {
	k.setRoots[pendingKey(id)] = id
}

// feePayment is one LockFee debit against a payer vault.
type feePayment struct {
	id     substate.SubstateId
	amount bnum.Decimal
}

// RecordFeePayment notes that amount of the fee resource was debited
// from the vault at id to fund the reserve. Called by the LockFee
// native paths right after they write the debited balance into the
// pending set.
func (k *Kernel) RecordFeePayment(id substate.SubstateId, amount bnum.Decimal) {
	k.feePayments = append(k.feePayments, feePayment{id: id, amount: amount})
}

// RefundFee records the unused portion of the locked fee, to be
// credited back to the first payer vault at commit time. Called by the
// executor exactly once per transaction, during settlement.
func (k *Kernel) RefundFee(amount bnum.Decimal) {
	k.feeRefund = amount
}

// applyRefundToPending credits the recorded refund onto the first payer
// vault's pending balance, for the full-commit path.
func (k *Kernel) applyRefundToPending() {
	if len(k.feePayments) == 0 || k.feeRefund.IsZero() {
		return
	}
	id := k.feePayments[0].id
	sub, ok, err := k.getSubstate(id)
	if err != nil || !ok || sub.VaultLiquid == nil {
		return
	}
	sub.VaultLiquid.Amount = sub.VaultLiquid.Amount.Add(k.feeRefund)
	k.putSubstate(id, sub)
}

func pendingKey(id substate.SubstateId) string {
	return string(id.Key())
}

// Commit flushes every pending write and root assignment into the
// store, after crediting any fee refund back to the payer vault.
// Called by the executor only once a transaction's manifest
// instructions have all run without error.
func (k *Kernel) Commit() error {
	k.applyRefundToPending()
	for _, p := range k.pending {
		if err := k.store.Put(p.id, p.value); err != nil {
			return fmt.Errorf("kernel: commit: %w", err)
		}
	}
	for _, id := range k.setRoots {
		k.store.SetRoot(id)
	}
	return nil
}

// CommitFeeOnly applies only the recorded fee payments (net of the
// refund), discarding every other pending write and root assignment.
// The fee balances are re-derived from the committed store state, so a
// transaction that also mutated a payer vault (say, withdrew from it)
// and then failed charges the fee and nothing else. Called by the
// executor when a transaction fails after fee was locked.
func (k *Kernel) CommitFeeOnly() error {
	if len(k.feePayments) == 0 {
		return nil
	}

	debits := map[string]*feePayment{}
	order := []string{}
	for _, p := range k.feePayments {
		key := pendingKey(p.id)
		d, ok := debits[key]
		if !ok {
			d = &feePayment{id: p.id}
			debits[key] = d
			order = append(order, key)
		}
		d.amount = d.amount.Add(p.amount)
	}
	debits[order[0]].amount = debits[order[0]].amount.Sub(k.feeRefund)

	for _, key := range order {
		d := debits[key]
		ov, err := k.store.Get(d.id)
		if err != nil {
			return fmt.Errorf("kernel: commit fee: %w", err)
		}
		if ov.Substate.VaultLiquid == nil {
			return fmt.Errorf("kernel: commit fee: payer is not a vault")
		}
		ov.Substate.VaultLiquid.Amount = ov.Substate.VaultLiquid.Amount.Sub(d.amount)
		if err := k.store.Put(d.id, substate.OutputValue{Substate: ov.Substate, Version: ov.Version + 1}); err != nil {
			return fmt.Errorf("kernel: commit fee: %w", err)
		}
	}
	return nil
}

// Invoke runs the invocation protocol: resolve the callee, compute its
// move-set and visible-set, check authorization, meter the call, run
// it, and move the return value's referenced nodes back into the
// caller.
func (k *Kernel) Invoke(caller *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	callee, err := k.resolveCallee(caller, ref)
	if err != nil {
		return scryptovalue.Value{}, err
	}

	if err := k.computeMoveSet(caller, callee, args); err != nil {
		return scryptovalue.Value{}, err
	}

	if err := k.computeVisibleSet(callee, ref); err != nil {
		k.unwindMoveSet(callee, caller)
		return scryptovalue.Value{}, err
	}

	if err := k.checkAuth(caller, callee.Actor, ref); err != nil {
		k.releaseBorrowed(callee)
		k.unwindMoveSet(callee, caller)
		return scryptovalue.Value{}, err
	}

	if err := k.meter(ref, args); err != nil {
		k.releaseBorrowed(callee)
		k.unwindMoveSet(callee, caller)
		return scryptovalue.Value{}, err
	}

	result, err := k.run(callee, ref, args)
	if err != nil {
		k.releaseBorrowed(callee)
		k.unwindMoveSet(callee, caller)
		return scryptovalue.Value{}, err
	}

	out, err := k.returnMoveSet(callee, caller, result)
	k.releaseBorrowed(callee)
	return out, err
}

// resolveCallee determines the callee's Actor and allocates its frame,
// enforcing the call-depth bound before anything else happens.
func (k *Kernel) resolveCallee(caller *Frame, ref SNodeRef) (*Frame, error) {
	if caller.Depth+1 > k.maxDepth {
		return nil, fmt.Errorf("kernel: invoke %s: %w", ref.String(), ErrMaxCallDepthExceeded)
	}

	var actor Actor
	switch {
	case ref.IsFunction:
		actor = Actor{Kind: ActorBlueprint, Package: ref.Package, Blueprint: ref.Blueprint}
	case ref.IsMethod:
		info, ok, err := k.getSubstate(substate.ComponentInfoId(ref.Component))
		if err != nil {
			return nil, err
		}
		if !ok || info.Component == nil {
			return nil, fmt.Errorf("kernel: invoke %s: %w", ref.String(), ErrComponentNotFound)
		}
		actor = Actor{Kind: ActorComponent, Component: ref.Component, Package: info.Component.Package, Blueprint: info.Component.Blueprint}
	case ref.IsNative:
		actor = Actor{Kind: ActorNative, SNode: ref.SNode}
	default:
		return nil, fmt.Errorf("kernel: invoke: %w", ErrMethodNotFound)
	}

	return NewChildFrame(caller, actor), nil
}

// computeMoveSet moves every Bucket/Proof/owned-Component node the
// encoded argument value references from caller into callee, verifying
// renode.RENode.VerifyCanMove on each.
func (k *Kernel) computeMoveSet(caller, callee *Frame, args scryptovalue.Value) error {
	for _, bid := range args.BucketIDs {
		id := renode.ValueId{Kind: renode.KindBucket, Bucket: bid}
		if err := moveNode(caller, callee, id); err != nil {
			return err
		}
	}
	for _, pid := range args.ProofIDs {
		id := renode.ValueId{Kind: renode.KindProof, Proof: pid}
		if err := moveNode(caller, callee, id); err != nil {
			return err
		}
	}
	for _, comp := range args.OwnedComponents {
		id := renode.ValueId{Kind: renode.KindComponent, Component: comp}
		if err := moveNode(caller, callee, id); err != nil {
			return err
		}
	}
	for _, kv := range args.KVStoreIDs {
		id := renode.ValueId{Kind: renode.KindKeyValueStore, KVStore: kv}
		if err := moveNode(caller, callee, id); err != nil {
			return err
		}
	}
	return nil
}

func moveNode(from, to *Frame, id renode.ValueId) error {
	node, ok := from.Get(id)
	if !ok {
		return fmt.Errorf("kernel: move %s: %w", id.Kind, ErrRENodeNotFound)
	}
	if err := node.VerifyCanMove(); err != nil {
		return fmt.Errorf("kernel: move %s: %w", id.Kind, err)
	}
	from.Remove(id)
	to.Insert(id, node)

	// An un-globalized component moves together with the Vault and
	// KeyValueStore nodes its state references: ownership of the whole
	// arena-rooted value transfers, not just the root.
	if id.Kind == renode.KindComponent && node.Component != nil {
		if err := moveComponentChildren(from, to, node.Component.StateBytes); err != nil {
			return err
		}
	}
	return nil
}

func moveComponentChildren(from, to *Frame, stateBytes []byte) error {
	val, err := scryptovalue.FromBytes(stateBytes)
	if err != nil {
		return fmt.Errorf("kernel: move component children: %w", err)
	}
	for _, vid := range val.VaultIDs {
		cid := renode.ValueId{Kind: renode.KindVault, Vault: vid}
		if node, ok := from.Remove(cid); ok {
			to.Insert(cid, node)
		}
	}
	for _, kvid := range val.KVStoreIDs {
		cid := renode.ValueId{Kind: renode.KindKeyValueStore, KVStore: kvid}
		if node, ok := from.Remove(cid); ok {
			to.Insert(cid, node)
		}
	}
	return nil
}

// unwindMoveSet returns whatever computeMoveSet already moved into
// callee back to caller, used when a later protocol step fails after
// the move already happened.
func (k *Kernel) unwindMoveSet(callee, caller *Frame) {
	for _, id := range callee.Ids() {
		if node, ok := callee.Remove(id); ok {
			caller.Insert(id, node)
		}
	}
}

// computeVisibleSet resolves the receiver for a method call: it
// acquires a mutable borrow on the receiver's ComponentInfo and
// ComponentState substates so the callee (native or Wasm) can read and
// write them through the data() API.
func (k *Kernel) computeVisibleSet(callee *Frame, ref SNodeRef) error {
	if !ref.IsMethod {
		return nil
	}
	infoId := substate.ComponentInfoId(ref.Component)
	stateId := substate.ComponentStateId(ref.Component)
	if err := k.borrow.Acquire(infoId); err != nil {
		return fmt.Errorf("kernel: borrow %s: %w", ref.Component.String(), err)
	}
	if err := k.borrow.Acquire(stateId); err != nil {
		k.borrow.Release(infoId)
		return fmt.Errorf("kernel: borrow %s: %w", ref.Component.String(), err)
	}
	callee.Borrowed = append(callee.Borrowed, infoId, stateId)
	return nil
}

func (k *Kernel) releaseBorrowed(callee *Frame) {
	for _, id := range callee.Borrowed {
		k.borrow.Release(id)
	}
	callee.Borrowed = nil
}

// checkAuth evaluates the callee method's access rule against the
// caller's auth zone.
func (k *Kernel) checkAuth(caller *Frame, calleeActor Actor, ref SNodeRef) error {
	rule, ok, err := k.accessRuleFor(calleeActor, ref)
	if err != nil {
		return err
	}
	if !ok {
		return nil // no declared rule: default-allow, matching AllowAll() for undeclared methods
	}
	if !rule.Evaluate(caller.AuthZone) {
		return fmt.Errorf("kernel: invoke %s: %w", ref.String(), ErrNotAuthorized)
	}
	return nil
}

// accessRuleFor looks up the declared AccessRule for the method named
// by ref in the receiver Component's ComponentInfo access rules. A
// non-method ref, a missing table, or a method absent from it reports
// ok=false, which checkAuth treats as an implicit AllowAll.
// ResourceManager mint/burn rules are not looked up here; the native
// resource-manager handler checks them itself.
func (k *Kernel) accessRuleFor(calleeActor Actor, ref SNodeRef) (resource.AccessRule, bool, error) {
	if !ref.IsMethod {
		return resource.AccessRule{}, false, nil
	}
	sub, ok, err := k.getSubstate(substate.ComponentInfoId(ref.Component))
	if err != nil {
		return resource.AccessRule{}, false, err
	}
	if !ok || sub.Component == nil {
		return resource.AccessRule{}, false, nil
	}
	raw, ok := sub.Component.AccessRules.Rules[ref.FnIdent]
	if !ok {
		return resource.AccessRule{}, false, nil
	}
	rule, err := resource.UnmarshalAccessRule(raw)
	if err != nil {
		return resource.AccessRule{}, false, err
	}
	return rule, true, nil
}

func (k *Kernel) meter(ref SNodeRef, args scryptovalue.Value) error {
	base := k.costTable.InvokeMethod
	if ref.IsFunction {
		base = k.costTable.InvokeFunction
	}
	encoded := sbor.Encode(args.Raw)
	decodeCost := k.costTable.Decode * uint32(len(encoded))
	return k.reserve.ConsumeCostUnits(base+decodeCost, "invoke "+ref.String())
}

// run dispatches to the native handler table or, for a Scrypto actor
// backed by real Wasm code, instantiates and invokes the blueprint's
// exported function. A Component actor whose Package substate carries
// no code (Code is empty) is a built-in native blueprint, dispatched
// in Go exactly like a native s-node; this lets the engine ship
// built-ins (e.g. the demo Account blueprint) without a Wasm binary.
func (k *Kernel) run(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	if callee.Actor.Kind == ActorNative {
		return dispatchNative(k, callee, ref, args)
	}

	pkgSub, ok, err := k.getSubstate(substate.PackageId(callee.Actor.Package))
	if err != nil {
		return scryptovalue.Value{}, err
	}
	if !ok || pkgSub.Package == nil {
		return scryptovalue.Value{}, fmt.Errorf("kernel: invoke %s: %w", ref.String(), ErrPackageNotFound)
	}

	if len(pkgSub.Package.Code) == 0 {
		return dispatchNativeBlueprint(k, callee, ref, args)
	}

	inst, err := k.wasm.Instantiate(pkgSub.Package.Code, uint64(k.reserve.Remaining()))
	if err != nil {
		return scryptovalue.Value{}, fmt.Errorf("kernel: invoke %s: %w", ref.String(), err)
	}
	rt := &kernelRuntime{k: k, frame: callee}
	out, err := inst.Invoke(ref.FnIdent, sbor.Encode(args.Raw), rt)
	if err != nil {
		return scryptovalue.Value{}, fmt.Errorf("kernel: invoke %s: %w", ref.String(), err)
	}
	return scryptovalue.FromBytes(out)
}

// returnMoveSet moves every node the callee's result references back
// into caller, then verifies everything still owned by callee is
// either persisted (handled by globalize/data-write paths, which
// remove it from Owned as a side effect) or droppable.
func (k *Kernel) returnMoveSet(callee, caller *Frame, result scryptovalue.Value) (scryptovalue.Value, error) {
	for _, bid := range result.BucketIDs {
		id := renode.ValueId{Kind: renode.KindBucket, Bucket: bid}
		if err := moveNode(callee, caller, id); err != nil {
			return scryptovalue.Value{}, err
		}
	}
	for _, pid := range result.ProofIDs {
		id := renode.ValueId{Kind: renode.KindProof, Proof: pid}
		if err := moveNode(callee, caller, id); err != nil {
			return scryptovalue.Value{}, err
		}
	}
	for _, comp := range result.OwnedComponents {
		id := renode.ValueId{Kind: renode.KindComponent, Component: comp}
		if err := moveNode(callee, caller, id); err != nil {
			return scryptovalue.Value{}, err
		}
	}

	for _, id := range callee.Ids() {
		node, _ := callee.Remove(id)
		if err := node.TryDrop(); err != nil {
			return scryptovalue.Value{}, &DropFailureError{Kind: id.Kind}
		}
	}

	return result, nil
}

// kernelRuntime implements wasmhost.WasmRuntime, scoped to a single
// Invoke call: it is constructed fresh per invocation (never a package
// global) and closes over exactly the callee frame that invocation
// runs in, so nested guest calls always reach their own frame.
type kernelRuntime struct {
	k     *Kernel
	frame *Frame
}

func (r *kernelRuntime) HandleRadixEngineInput(input []byte) ([]byte, error) {
	return r.k.handleInput(r.frame, input)
}

func (r *kernelRuntime) ConsumeCostUnits(units uint32) error {
	return r.k.reserve.ConsumeCostUnits(units, "wasm")
}
