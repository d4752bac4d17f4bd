package executor

import (
	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/kernel"
)

// Status is the outcome class of a transaction.
type Status byte

const (
	// StatusSucceeded: every instruction ran, the worktop ended empty,
	// and the full write-set was committed.
	StatusSucceeded Status = iota
	// StatusFailed: an instruction (or the end-of-transaction worktop
	// check) failed after fee was locked; only the fee payment was
	// committed.
	StatusFailed
	// StatusRejected: pre-execution header validation failed; nothing
	// was committed, not even fee.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "CommitSuccess"
	case StatusFailed:
		return "CommitFailure"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// FeeSummary accounts for the fee flow of one transaction: what was
// locked, what execution actually cost, the validator tip, and what
// went back to the payer.
type FeeSummary struct {
	CostUnitLimit     uint32
	CostUnitsConsumed uint32
	CostUnitPrice     bnum.Decimal
	TipBps            uint16

	LockedFee bnum.Decimal
	Spent     bnum.Decimal
	Tip       bnum.Decimal
	Refunded  bnum.Decimal
}

// Receipt is the executor's output for one transaction: the outcome,
// the entities it created, the ordered event and log streams, and the
// fee summary. Logs are retained on every outcome, including failure.
type Receipt struct {
	Status Status
	Err    error

	NewPackageAddresses   []addressing.PackageAddress
	NewComponentAddresses []addressing.ComponentAddress
	NewResourceAddresses  []addressing.ResourceAddress

	Events []kernel.Event
	Logs   []kernel.LogEntry

	FeeSummary FeeSummary
}
