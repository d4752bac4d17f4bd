package resource

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// Proof is a non-consumable witness over a locked portion of a
// container, used for authorization. It references the source
// container directly (not a copy) and holds a lock on it for as long
// as the Proof exists; destroying the Proof releases the lock. A
// Restricted Proof was created under a rule that forbids moving it out
// of the frame that produced it (e.g. an auth-zone-internal proof).
type Proof struct {
	Resource   addressing.ResourceAddress
	Restricted bool

	source   *Container
	amount   bnum.Decimal
	ids      []addressing.NonFungibleId
	released bool
}

// NewFungibleProof locks amount out of source and returns a Proof over it.
func NewFungibleProof(source *Container, amount bnum.Decimal, restricted bool) (*Proof, error) {
	if err := source.LockAmount(amount); err != nil {
		return nil, fmt.Errorf("resource: create proof: %w", err)
	}
	return &Proof{Resource: source.Address, source: source, amount: amount, Restricted: restricted}, nil
}

// NewNonFungibleProof locks ids out of source and returns a Proof over them.
func NewNonFungibleProof(source *Container, ids []addressing.NonFungibleId, restricted bool) (*Proof, error) {
	if err := source.LockIds(ids); err != nil {
		return nil, fmt.Errorf("resource: create proof: %w", err)
	}
	return &Proof{Resource: source.Address, source: source, ids: ids, Restricted: restricted}, nil
}

// Amount returns the amount (or, for non-fungible, the count) this
// proof attests to.
func (p *Proof) Amount() bnum.Decimal {
	if p.ids != nil {
		return bnum.FromInt64(int64(len(p.ids)))
	}
	return p.amount
}

// Ids returns the non-fungible ids this proof attests to (nil for a
// fungible proof).
func (p *Proof) Ids() []addressing.NonFungibleId { return p.ids }

// Release unlocks the underlying container. Idempotent: calling it
// more than once has no further effect, matching the kernel's TryDrop
// path which may release a proof it never fully consumed otherwise.
func (p *Proof) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.ids != nil {
		p.source.UnlockIds(p.ids)
		return
	}
	p.source.UnlockAmount(p.amount)
}
