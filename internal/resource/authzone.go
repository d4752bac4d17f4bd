package resource

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// AuthZone is a per-frame stack of Proofs used to evaluate access
// rules. Proofs enter the zone only through an explicit Push and leave
// it through Pop or Clear (Clear releases them); a frame's return does
// not clear its zone.
type AuthZone struct {
	proofs []*Proof
}

// NewAuthZone returns an empty AuthZone.
func NewAuthZone() *AuthZone { return &AuthZone{} }

func (z *AuthZone) Push(p *Proof) { z.proofs = append(z.proofs, p) }

// Pop removes and returns the most recently pushed proof.
func (z *AuthZone) Pop() *Proof {
	if len(z.proofs) == 0 {
		return nil
	}
	p := z.proofs[len(z.proofs)-1]
	z.proofs = z.proofs[:len(z.proofs)-1]
	return p
}

// Clear releases every proof currently in the zone.
func (z *AuthZone) Clear() {
	for _, p := range z.proofs {
		p.Release()
	}
	z.proofs = nil
}

// Proofs returns the live proof stack, bottom to top.
func (z *AuthZone) Proofs() []*Proof { return z.proofs }

// CreateProofOfAmount creates a new, unrestricted proof over amount of
// addr, locked against the source container of the first matching
// proof in the zone.
func (z *AuthZone) CreateProofOfAmount(addr addressing.ResourceAddress, amount bnum.Decimal) (*Proof, error) {
	for _, p := range z.proofs {
		if p.Resource == addr && p.ids == nil {
			return NewFungibleProof(p.source, amount, false)
		}
	}
	return nil, fmt.Errorf("resource: create proof of %s: %w", addr.String(), ErrAuthZoneEmpty)
}

// CreateProofOfAll creates a new, unrestricted proof over everything
// the first matching proof in the zone attests to.
func (z *AuthZone) CreateProofOfAll(addr addressing.ResourceAddress) (*Proof, error) {
	for _, p := range z.proofs {
		if p.Resource != addr {
			continue
		}
		if p.ids != nil {
			return NewNonFungibleProof(p.source, p.ids, false)
		}
		return NewFungibleProof(p.source, p.amount, false)
	}
	return nil, fmt.Errorf("resource: create proof of %s: %w", addr.String(), ErrAuthZoneEmpty)
}

// HasAmount reports whether the zone's proofs jointly attest to at
// least amount of a fungible resource.
func (z *AuthZone) HasAmount(addr addressing.ResourceAddress, amount bnum.Decimal) bool {
	total := bnum.Zero()
	for _, p := range z.proofs {
		if p.Resource != addr {
			continue
		}
		total = total.Add(p.Amount())
	}
	return total.Cmp(amount) >= 0
}

// HasNonFungible reports whether any proof in the zone attests to the
// given resource at all (a badge check), regardless of amount.
func (z *AuthZone) HasNonFungible(addr addressing.ResourceAddress) bool {
	for _, p := range z.proofs {
		if p.Resource == addr && !p.Amount().IsZero() {
			return true
		}
	}
	return false
}
