// Package executor implements the transaction-level loop around the
// call-frame kernel: header validation, the manifest-instruction
// interpreter, fee settlement, the commit/rollback boundary, and
// receipt assembly.
package executor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/config"
	"github.com/radixcore/engine/internal/crypto"
	"github.com/radixcore/engine/internal/fee"
	"github.com/radixcore/engine/internal/kernel"
	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
	"github.com/radixcore/engine/internal/telemetry"
	"github.com/radixcore/engine/internal/wasmhost"
)

// ErrWorktopAssertionFailed is returned when an ASSERT_WORKTOP_CONTAINS
// instruction's condition does not hold.
var ErrWorktopAssertionFailed = errors.New("executor: worktop assertion failed")

// ErrUnknownBucket is returned when an instruction references a bucket
// index no prior instruction produced.
var ErrUnknownBucket = errors.New("executor: unknown bucket index")

// Executor runs transactions against one substate store. It owns the
// ambient pieces (config-derived tariffs, logging, metrics) and
// delegates the actual execution to a per-transaction kernel.Kernel,
// mirroring the adapter/sandbox split this engine's runtime is built
// around. An Executor is not safe for concurrent Execute calls against
// the same store.
type Executor struct {
	store     substate.Store
	wasm      *wasmhost.Engine
	table     fee.CostTable
	unitPrice bnum.Decimal
	maxDepth  int
	networkID string

	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// New builds an Executor over store using cfg's fee and Wasm tuning.
// wasmEngine may be shared across executors (its module cache is
// content-addressed). A nil logger or metrics falls back to no-ops.
func New(store substate.Store, wasmEngine *wasmhost.Engine, cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Executor{
		store:     store,
		wasm:      wasmEngine,
		table:     cfg.Fee.CostTable(),
		unitPrice: cfg.Fee.UnitPrice(),
		maxDepth:  int(cfg.Wasm.MaxCallDepth),
		networkID: cfg.ChainID,
		logger:    logger.Named("executor"),
		metrics:   metrics,
	}
}

func (e *Executor) currentEpoch() uint64 {
	ov, err := e.store.Get(substate.SystemId())
	if err != nil {
		return 0
	}
	return ov.Substate.SystemEpoch
}

// Execute runs tx to completion and returns its receipt. On success
// the whole pending write-set is committed; on failure only the fee
// payment is; on rejection nothing is.
func (e *Executor) Execute(tx *Transaction) *Receipt {
	started := time.Now()
	defer func() {
		e.metrics.ExecutionLatency.Observe(time.Since(started).Seconds())
	}()

	if err := validateHeader(tx.Header, e.networkID, e.currentEpoch()); err != nil {
		e.metrics.TxRejected.Inc()
		e.logger.Debug("transaction rejected", zap.Error(err))
		return &Receipt{Status: StatusRejected, Err: err}
	}

	txHash := tx.Hash()
	reserve := fee.NewReserve(e.table, tx.Header.CostUnitLimit, e.unitPrice)
	kern := kernel.New(e.store, e.wasm, e.table, reserve, txHash, e.maxDepth, e.logger)
	root := kernel.NewRootFrame(kernel.Actor{Kind: kernel.ActorNative, SNode: kernel.SNodeTransactionProcessor})
	seedSignerProofs(root, tx.SignerPublicKeys)

	var buckets []addressing.BucketId
	var execErr error
	for i, instr := range tx.Instructions {
		if err := e.runInstruction(kern, root, &buckets, instr); err != nil {
			execErr = fmt.Errorf("instruction %d: %w", i, err)
			break
		}
	}
	if execErr == nil && !root.Worktop.IsEmpty() {
		execErr = kernel.ErrWorktopNotEmpty
	}

	summary := e.settle(kern, reserve, tx.Header)

	receipt := &Receipt{
		NewPackageAddresses:   kern.NewPackageAddresses(),
		NewComponentAddresses: kern.NewComponentAddresses(),
		NewResourceAddresses:  kern.NewResourceAddresses(),
		Events:                kern.Events(),
		Logs:                  kern.Logs(),
		FeeSummary:            summary,
	}
	e.metrics.CostUnitsConsumed.Observe(float64(summary.CostUnitsConsumed))

	if execErr != nil {
		if errors.Is(execErr, fee.ErrCostUnitExhausted) {
			e.metrics.CostUnitExhausted.Inc()
		}
		if err := kern.CommitFeeOnly(); err != nil {
			e.logger.Error("fee-only commit failed", zap.Error(err))
		}
		e.metrics.TxFailed.Inc()
		e.logger.Debug("transaction failed", zap.String("tx", txHash.String()), zap.Error(execErr))
		receipt.Status = StatusFailed
		receipt.Err = execErr
		// Created entities never materialize on failure.
		receipt.NewPackageAddresses = nil
		receipt.NewComponentAddresses = nil
		receipt.NewResourceAddresses = nil
		return receipt
	}

	if err := kern.Commit(); err != nil {
		e.metrics.TxFailed.Inc()
		receipt.Status = StatusFailed
		receipt.Err = err
		return receipt
	}
	e.metrics.TxCommitted.Inc()
	e.logger.Debug("transaction committed",
		zap.String("tx", txHash.String()),
		zap.Uint32("cost_units", summary.CostUnitsConsumed),
	)
	receipt.Status = StatusSucceeded
	return receipt
}

// seedSignerProofs pushes one restricted signer-badge proof per signer
// public key onto the root auth zone, so access rules can require the
// signer-badge resource without a real, mintable badge existing. The
// proofs are restricted: they never move out of the root frame.
func seedSignerProofs(root *kernel.Frame, signers []crypto.PublicKey) {
	for range signers {
		c := resource.RestoreContainer(addressing.SignerBadgeResourceAddress, bnum.FromInt64(1), nil)
		p, err := resource.NewFungibleProof(c, bnum.FromInt64(1), true)
		if err != nil {
			continue
		}
		root.AuthZone.Push(p)
	}
}

// settle computes the fee flow (spent, tip, refund), credits the
// refund back to the payer vault in the pending write-set, and returns
// the receipt's fee summary. It runs on every outcome so even a failed
// transaction only keeps what execution actually consumed.
func (e *Executor) settle(kern *kernel.Kernel, reserve *fee.Reserve, h Header) FeeSummary {
	spent := reserve.CostUnitsSpent()
	tip := spent.Mul(bnum.FromInt64(int64(h.TipBps)))
	tip, _ = tip.Div(bnum.FromInt64(10_000))
	refund := reserve.Locked().Sub(spent).Sub(tip)
	if refund.IsNegative() {
		refund = bnum.Zero()
	}
	kern.RefundFee(refund)
	return FeeSummary{
		CostUnitLimit:     h.CostUnitLimit,
		CostUnitsConsumed: reserve.Consumed(),
		CostUnitPrice:     reserve.CostUnitPrice(),
		TipBps:            h.TipBps,
		LockedFee:         reserve.Locked(),
		Spent:             spent,
		Tip:               tip,
		Refunded:          refund,
	}
}

func (e *Executor) runInstruction(kern *kernel.Kernel, root *kernel.Frame, buckets *[]addressing.BucketId, in Instruction) error {
	switch in.Kind {
	case InstrLockFee:
		args, err := scryptovalue.FromSBOR(in.Amount.MarshalSBOR())
		if err != nil {
			return err
		}
		ref := kernel.SNodeRef{IsMethod: true, Component: in.Component, FnIdent: "lock_fee"}
		_, err = kern.Invoke(root, ref, args)
		return err

	case InstrCallFunction:
		args, err := scryptovalue.FromSBOR(sbor.Unit())
		if err != nil {
			return err
		}
		ref := kernel.SNodeRef{IsFunction: true, Package: in.Package, Blueprint: in.Blueprint, FnIdent: in.Function}
		result, err := kern.Invoke(root, ref, args)
		if err != nil {
			return err
		}
		return sweepToWorktop(root, result)

	case InstrCallMethod:
		args, err := methodArgs(*buckets, in)
		if err != nil {
			return err
		}
		ref := kernel.SNodeRef{IsMethod: true, Component: in.Component, FnIdent: in.Method}
		result, err := kern.Invoke(root, ref, args)
		if err != nil {
			return err
		}
		return sweepToWorktop(root, result)

	case InstrTakeFromWorktop:
		b, err := root.Worktop.TakeAll(in.Resource)
		if err != nil {
			return err
		}
		stageBucket(kern, root, buckets, b)
		return nil

	case InstrTakeFromWorktopByAmount:
		b, err := root.Worktop.TakeByAmount(in.Resource, in.Amount)
		if err != nil {
			return err
		}
		stageBucket(kern, root, buckets, b)
		return nil

	case InstrReturnToWorktop:
		if in.BucketIndex < 0 || in.BucketIndex >= len(*buckets) {
			return fmt.Errorf("%w: %d", ErrUnknownBucket, in.BucketIndex)
		}
		id := renode.ValueId{Kind: renode.KindBucket, Bucket: (*buckets)[in.BucketIndex]}
		node, ok := root.Remove(id)
		if !ok || node.Bucket == nil {
			return fmt.Errorf("%w: %d", ErrUnknownBucket, in.BucketIndex)
		}
		return root.Worktop.Put(node.Bucket.Container().Address, node.Bucket)

	case InstrAssertWorktopContains:
		if !root.Worktop.AssertContains(in.Resource) {
			return fmt.Errorf("%w: %s", ErrWorktopAssertionFailed, in.Resource.String())
		}
		return nil

	case InstrAssertWorktopContainsByAmount:
		if !root.Worktop.AssertContainsAmount(in.Resource, in.Amount) {
			return fmt.Errorf("%w: %s of %s", ErrWorktopAssertionFailed, in.Amount.String(), in.Resource.String())
		}
		return nil

	case InstrDepositBatch:
		for _, addr := range root.Worktop.Resources() {
			b, err := root.Worktop.TakeAll(addr)
			if err != nil {
				return err
			}
			bid := kern.NewBucketId()
			root.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(b))
			args, err := scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))
			if err != nil {
				return err
			}
			ref := kernel.SNodeRef{IsMethod: true, Component: in.Component, FnIdent: "deposit"}
			if _, err := kern.Invoke(root, ref, args); err != nil {
				return err
			}
		}
		return nil

	case InstrCreateResource:
		rm := resource.NewFungibleResourceManager(kern.NewResourceAddress(), in.Granularity)
		if in.Mintable {
			rm.MintRule = resource.AllowAll()
			rm.BurnRule = resource.AllowAll()
		}
		kern.CreateResourceManager(rm, in.Metadata)
		return nil

	case InstrMintResource:
		args, err := scryptovalue.FromSBOR(in.Amount.MarshalSBOR())
		if err != nil {
			return err
		}
		ref := kernel.SNodeRef{
			IsNative:     true,
			SNode:        kernel.SNodeResourceManager,
			NativeTarget: in.Resource.String(),
			FnIdent:      "mint",
		}
		result, err := kern.Invoke(root, ref, args)
		if err != nil {
			return err
		}
		return sweepToWorktop(root, result)

	case InstrBurnBucket:
		if in.BucketIndex < 0 || in.BucketIndex >= len(*buckets) {
			return fmt.Errorf("%w: %d", ErrUnknownBucket, in.BucketIndex)
		}
		args, err := scryptovalue.FromSBOR(scryptovalue.MarshalBucket((*buckets)[in.BucketIndex]))
		if err != nil {
			return err
		}
		ref := kernel.SNodeRef{
			IsNative:     true,
			SNode:        kernel.SNodeResourceManager,
			NativeTarget: in.Resource.String(),
			FnIdent:      "burn",
		}
		_, err = kern.Invoke(root, ref, args)
		return err

	case InstrPublishPackage:
		_, err := kern.PublishPackage(in.Code, in.ABIs)
		return err

	case InstrCreateProofFromAuthZone:
		p, err := root.AuthZone.CreateProofOfAmount(in.Resource, in.Amount)
		if err != nil {
			return err
		}
		root.AuthZone.Push(p)
		return nil

	case InstrClearAuthZone:
		root.AuthZone.Clear()
		return nil

	default:
		return fmt.Errorf("executor: unknown instruction kind %d", in.Kind)
	}
}

// methodArgs encodes a CallMethod instruction's argument value.
func methodArgs(buckets []addressing.BucketId, in Instruction) (scryptovalue.Value, error) {
	switch {
	case in.HasBucketArg:
		if in.BucketIndex < 0 || in.BucketIndex >= len(buckets) {
			return scryptovalue.Value{}, fmt.Errorf("%w: %d", ErrUnknownBucket, in.BucketIndex)
		}
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(buckets[in.BucketIndex]))
	case in.HasAmountArg:
		return scryptovalue.FromSBOR(in.Amount.MarshalSBOR())
	default:
		return scryptovalue.FromSBOR(sbor.Unit())
	}
}

// stageBucket inserts a just-taken bucket into the root frame's arena
// and records its id in the transaction's bucket list.
func stageBucket(kern *kernel.Kernel, root *kernel.Frame, buckets *[]addressing.BucketId, b *resource.Bucket) {
	bid := kern.NewBucketId()
	root.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(b))
	*buckets = append(*buckets, bid)
}

// sweepToWorktop moves every bucket an invocation returned out of the
// root arena and onto the worktop, where later instructions can take
// from it. Proofs returned to the root frame stay in its arena.
func sweepToWorktop(root *kernel.Frame, result scryptovalue.Value) error {
	for _, bid := range result.BucketIDs {
		id := renode.ValueId{Kind: renode.KindBucket, Bucket: bid}
		node, ok := root.Remove(id)
		if !ok || node.Bucket == nil {
			continue
		}
		if err := root.Worktop.Put(node.Bucket.Container().Address, node.Bucket); err != nil {
			return err
		}
	}
	return nil
}
