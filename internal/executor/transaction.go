package executor

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/crypto"
	"github.com/radixcore/engine/internal/sbor"
)

// TransactionVersion is the only transaction envelope version this
// engine accepts.
const TransactionVersion byte = 1

// MinCostUnitLimit and MaxCostUnitLimit bound the cost-unit limit a
// header may declare. A limit below the minimum cannot pay for even a
// trivial transaction; a limit above the maximum would let one
// transaction monopolize a block's budget.
const (
	MinCostUnitLimit uint32 = 1_000
	MaxCostUnitLimit uint32 = 1_000_000_000
)

// ErrUnknownVersion is returned for a header with a version this engine
// does not implement.
var ErrUnknownVersion = errors.New("executor: unknown transaction version")

// ErrNetworkMismatch is returned for a header addressed to a different
// network.
var ErrNetworkMismatch = errors.New("executor: network id mismatch")

// ErrInvalidEpochRange is returned for an empty or inverted epoch window.
var ErrInvalidEpochRange = errors.New("executor: invalid epoch range")

// ErrEpochWindowClosed is returned when the store's current epoch falls
// outside the header's [start, end) window.
var ErrEpochWindowClosed = errors.New("executor: epoch window closed")

// ErrCostUnitLimitOutOfRange is returned for a cost-unit limit outside
// [MinCostUnitLimit, MaxCostUnitLimit].
var ErrCostUnitLimitOutOfRange = errors.New("executor: cost unit limit out of range")

// Header is the transaction envelope's fixed preamble. Version,
// NetworkID, the epoch window and CostUnitLimit are validated before a
// single instruction runs (Nonce, NotaryKey and TipBps are not checked);
// a header failure rejects the transaction outright, with no fee charged.
type Header struct {
	Version       byte
	NetworkID     string
	StartEpoch    uint64
	EndEpoch      uint64
	Nonce         uint64
	NotaryKey     crypto.PublicKey
	CostUnitLimit uint32
	TipBps        uint16
}

// Transaction is one executable unit: a validated header, an ordered
// manifest of instructions, and the public keys whose signatures the
// (out-of-scope) signature validator already checked. Signer keys seed
// the root frame's auth zone as signer-badge proofs.
type Transaction struct {
	Header           Header
	Instructions     []Instruction
	SignerPublicKeys []crypto.PublicKey
}

// Hash derives the transaction hash that scopes every VaultId and
// KeyValueStoreId minted during execution: a digest over the canonical
// encoding of the header and the instruction count. Two transactions
// with distinct nonces never collide, which is all the id-scoping
// invariant requires.
func (tx *Transaction) Hash() addressing.Hash {
	v := sbor.Struct(
		sbor.U8(tx.Header.Version),
		sbor.String(tx.Header.NetworkID),
		sbor.U64(tx.Header.StartEpoch),
		sbor.U64(tx.Header.EndEpoch),
		sbor.U64(tx.Header.Nonce),
		sbor.Bytes(tx.Header.NotaryKey),
		sbor.U32(tx.Header.CostUnitLimit),
		sbor.U16(tx.Header.TipBps),
		sbor.U32(uint32(len(tx.Instructions))),
	)
	return addressing.Sum256(sbor.Encode(v))
}

// validateHeader runs every pre-execution check spec'd for the
// envelope. currentEpoch is the System substate's epoch, or zero when
// the store carries none (a fresh store accepts any window containing
// epoch zero).
func validateHeader(h Header, networkID string, currentEpoch uint64) error {
	if h.Version != TransactionVersion {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, h.Version)
	}
	if h.NetworkID != networkID {
		return fmt.Errorf("%w: transaction %q, engine %q", ErrNetworkMismatch, h.NetworkID, networkID)
	}
	if h.StartEpoch >= h.EndEpoch {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidEpochRange, h.StartEpoch, h.EndEpoch)
	}
	if currentEpoch < h.StartEpoch || currentEpoch >= h.EndEpoch {
		return fmt.Errorf("%w: epoch %d outside [%d, %d)", ErrEpochWindowClosed, currentEpoch, h.StartEpoch, h.EndEpoch)
	}
	if h.CostUnitLimit < MinCostUnitLimit || h.CostUnitLimit > MaxCostUnitLimit {
		return fmt.Errorf("%w: %d", ErrCostUnitLimitOutOfRange, h.CostUnitLimit)
	}
	return nil
}
