// Package fee implements prepaid cost-unit accounting: a per-opcode
// cost table and a reserve that every host call and Wasm instruction
// draws from. The reserve is funded by LOCK_FEE instructions and
// refunds whatever remains unused on commit.
package fee

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/bnum"
)

// ErrCostUnitExhausted is returned by ConsumeCostUnits when the reserve
// has no remaining budget. It is fatal to the current transaction: the
// kernel unwinds every frame and discards the pending write-set, but
// fee already locked is still charged.
var ErrCostUnitExhausted = errors.New("fee: cost unit exhausted")

// ErrInsufficientBalance names a funding vault that cannot cover a
// requested fee lock. No function in this package returns it: LockFee
// only records amounts, and a vault too small for a fee lock fails in
// its own Take with resource.ErrInsufficientBalance.
var ErrInsufficientBalance = errors.New("fee: insufficient balance")

// CostTable lists the per-operation cost-unit tariff. Every field name
// matches a distinct metering point in the kernel and Wasm host.
type CostTable struct {
	InvokeFunction  uint32
	InvokeMethod    uint32
	CreateNode      uint32
	BorrowNode      uint32
	SubstateRead    uint32
	SubstateWrite   uint32
	Decode          uint32 // per byte
	Encode          uint32 // per byte
	WasmInstruction uint32 // per instrumented basic-block instruction
}

// DefaultCostTable returns the engine's baseline tariff.
func DefaultCostTable() CostTable {
	return CostTable{
		InvokeFunction:  10_000,
		InvokeMethod:    10_000,
		CreateNode:      1_000,
		BorrowNode:      500,
		SubstateRead:    1_000,
		SubstateWrite:   2_000,
		Decode:          1,
		Encode:          1,
		WasmInstruction: 1,
	}
}

// Reserve is a single transaction's prepaid cost-unit budget.
type Reserve struct {
	table    CostTable
	limit    uint32
	consumed uint32
	locked   bnum.Decimal // fee resource amount locked from the payer vault
	unitPrice bnum.Decimal
}

// NewReserve creates a reserve with the given cost-unit limit and the
// cost-unit price used to translate consumed units into the fee
// resource amount at refund/settlement time.
func NewReserve(table CostTable, limit uint32, unitPrice bnum.Decimal) *Reserve {
	return &Reserve{table: table, limit: limit, unitPrice: unitPrice}
}

// ConsumeCostUnits debits n units from the remaining budget. reason is
// used only for error context; it does not affect accounting.
func (r *Reserve) ConsumeCostUnits(n uint32, reason string) error {
	if n > r.limit-r.consumed {
		r.consumed = r.limit
		return fmt.Errorf("fee: consume %d units for %s: %w", n, reason, ErrCostUnitExhausted)
	}
	r.consumed += n
	return nil
}

// Remaining returns the cost-unit budget not yet consumed.
func (r *Reserve) Remaining() uint32 { return r.limit - r.consumed }

// Consumed returns the cost-unit budget already consumed.
func (r *Reserve) Consumed() uint32 { return r.consumed }

// LockFee adds amount to this reserve's locked total. The caller is responsible
// for actually withdrawing amount from the vault; LockFee only tracks
// the running locked total for FeeSummary reporting.
func (r *Reserve) LockFee(amount bnum.Decimal) {
	r.locked = r.locked.Add(amount)
}

// Locked returns the total fee-resource amount locked so far.
func (r *Reserve) Locked() bnum.Decimal { return r.locked }

// CostUnitPrice returns the price (in fee-resource units) of one cost
// unit, as configured at reserve creation.
func (r *Reserve) CostUnitPrice() bnum.Decimal { return r.unitPrice }

// Refund computes the unused portion of the locked fee: locked minus
// (cost units consumed * unit price), floored at zero. It does not
// mutate the reserve; the executor applies the refund to the payer
// vault once per transaction, on commit.
func (r *Reserve) Refund() bnum.Decimal {
	spent := r.unitPrice.Mul(bnum.FromInt64(int64(r.consumed)))
	refund := r.locked.Sub(spent)
	if refund.IsNegative() {
		return bnum.Zero()
	}
	return refund
}

// CostUnitsSpent computes the fee-resource amount actually spent:
// consumed cost units multiplied by the unit price, capped at the
// locked amount.
func (r *Reserve) CostUnitsSpent() bnum.Decimal {
	spent := r.unitPrice.Mul(bnum.FromInt64(int64(r.consumed)))
	if spent.Cmp(r.locked) > 0 {
		return r.locked
	}
	return spent
}
