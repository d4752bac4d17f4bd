// Package resource implements the fungible/non-fungible resource
// container model: Container (the liquid representation shared by
// Bucket and Vault), Bucket, Vault, Proof, Worktop, AuthZone, and
// AccessRule evaluation.
package resource

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// ErrResourceTypeMismatch is returned whenever an operation mixes a
// fungible operation with a non-fungible container or vice versa.
var ErrResourceTypeMismatch = errors.New("resource: fungible/non-fungible type mismatch")

// ErrInsufficientBalance is returned by Take/TakeIds when the
// container (after accounting for any lock) does not hold enough.
var ErrInsufficientBalance = errors.New("resource: insufficient balance")

// Container is the liquid representation of a resource inside a
// Bucket or Vault: either a fungible Decimal amount or a set of
// non-fungible ids, never both. A lock (held while one or more Proofs
// reference this container) withholds part of the liquid balance from
// Take/TakeIds without removing it.
type Container struct {
	Address     addressing.ResourceAddress
	NonFungible bool

	amount bnum.Decimal
	ids    map[string]addressing.NonFungibleId

	lockedAmount bnum.Decimal
	lockedIds    map[string]int // non-fungible id -> outstanding lock count
	fungibleLockCount int
}

// NewFungibleContainer creates an empty fungible container for addr.
func NewFungibleContainer(addr addressing.ResourceAddress) *Container {
	return &Container{Address: addr, lockedIds: map[string]int{}}
}

// NewNonFungibleContainer creates an empty non-fungible container for addr.
func NewNonFungibleContainer(addr addressing.ResourceAddress) *Container {
	return &Container{
		Address:     addr,
		NonFungible: true,
		ids:         map[string]addressing.NonFungibleId{},
		lockedIds:   map[string]int{},
	}
}

// RestoreContainer rebuilds a container holding exactly ids (a
// non-fungible container) or, when ids is empty, exactly amount (a
// fungible one), for
// loading a Vault's persisted ContainerData back into a live Container
// (the kernel's native Vault/Account handlers do this on every call,
// since only the substate — not the live *Container — survives between
// invocations).
func RestoreContainer(addr addressing.ResourceAddress, amount bnum.Decimal, ids []addressing.NonFungibleId) *Container {
	if len(ids) > 0 {
		c := NewNonFungibleContainer(addr)
		for _, id := range ids {
			c.ids[string(id)] = id
		}
		return c
	}
	c := NewFungibleContainer(addr)
	c.amount = amount
	return c
}

// Amount returns the total liquid fungible amount, including any
// currently locked portion (locking withholds availability, not
// ownership).
func (c *Container) Amount() bnum.Decimal {
	if c.NonFungible {
		return bnum.FromInt64(int64(len(c.ids)))
	}
	return c.amount
}

// Ids returns the full set of non-fungible ids held, including locked ones.
func (c *Container) Ids() []addressing.NonFungibleId {
	out := make([]addressing.NonFungibleId, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, id)
	}
	return out
}

// Put merges other into c; other is left empty.
func (c *Container) Put(other *Container) error {
	if c.Address != other.Address || c.NonFungible != other.NonFungible {
		return fmt.Errorf("resource: put: %w", ErrResourceTypeMismatch)
	}
	if c.NonFungible {
		for k, v := range other.ids {
			c.ids[k] = v
		}
		other.ids = map[string]addressing.NonFungibleId{}
		return nil
	}
	c.amount = c.amount.Add(other.amount)
	other.amount = bnum.Zero()
	return nil
}

// availableFungible returns the amount not withheld by a lock.
func (c *Container) availableFungible() bnum.Decimal {
	return c.amount.Sub(c.lockedAmount)
}

// Take removes amount from a fungible container's available balance,
// returning a new container holding it.
func (c *Container) Take(amount bnum.Decimal) (*Container, error) {
	if c.NonFungible {
		return nil, fmt.Errorf("resource: take: %w", ErrResourceTypeMismatch)
	}
	if amount.Cmp(c.availableFungible()) > 0 {
		return nil, fmt.Errorf("resource: take %s: %w", amount.String(), ErrInsufficientBalance)
	}
	c.amount = c.amount.Sub(amount)
	out := NewFungibleContainer(c.Address)
	out.amount = amount
	return out, nil
}

// TakeIds removes the given non-fungible ids from the available
// (unlocked) set, returning a new container holding them.
func (c *Container) TakeIds(ids []addressing.NonFungibleId) (*Container, error) {
	if !c.NonFungible {
		return nil, fmt.Errorf("resource: take ids: %w", ErrResourceTypeMismatch)
	}
	for _, id := range ids {
		key := string(id)
		if _, ok := c.ids[key]; !ok {
			return nil, fmt.Errorf("resource: take ids: %w", ErrInsufficientBalance)
		}
		if c.lockedIds[key] > 0 {
			return nil, fmt.Errorf("resource: take ids: id locked: %w", ErrInsufficientBalance)
		}
	}
	out := NewNonFungibleContainer(c.Address)
	for _, id := range ids {
		key := string(id)
		out.ids[key] = id
		delete(c.ids, key)
	}
	return out, nil
}

// LockAmount withholds amount from availability for a Proof.
func (c *Container) LockAmount(amount bnum.Decimal) error {
	if c.NonFungible {
		return fmt.Errorf("resource: lock amount: %w", ErrResourceTypeMismatch)
	}
	if amount.Cmp(c.availableFungible()) > 0 {
		return fmt.Errorf("resource: lock amount: %w", ErrInsufficientBalance)
	}
	c.lockedAmount = c.lockedAmount.Add(amount)
	c.fungibleLockCount++
	return nil
}

// UnlockAmount releases a previously locked amount. It is the caller's
// (Proof's) responsibility to call this exactly once per LockAmount.
func (c *Container) UnlockAmount(amount bnum.Decimal) {
	c.lockedAmount = c.lockedAmount.Sub(amount)
	c.fungibleLockCount--
}

// LockIds withholds the given non-fungible ids from availability for a Proof.
func (c *Container) LockIds(ids []addressing.NonFungibleId) error {
	if !c.NonFungible {
		return fmt.Errorf("resource: lock ids: %w", ErrResourceTypeMismatch)
	}
	for _, id := range ids {
		if _, ok := c.ids[string(id)]; !ok {
			return fmt.Errorf("resource: lock ids: %w", ErrInsufficientBalance)
		}
	}
	for _, id := range ids {
		c.lockedIds[string(id)]++
	}
	return nil
}

// UnlockIds releases a previous LockIds call for the same ids.
func (c *Container) UnlockIds(ids []addressing.NonFungibleId) {
	for _, id := range ids {
		key := string(id)
		if c.lockedIds[key] > 0 {
			c.lockedIds[key]--
		}
	}
}

// IsLocked reports whether any amount or id in c is currently withheld
// by an outstanding Proof lock.
func (c *Container) IsLocked() bool {
	if c.fungibleLockCount > 0 {
		return true
	}
	for _, n := range c.lockedIds {
		if n > 0 {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the container holds no liquid resource at all.
func (c *Container) IsEmpty() bool {
	if c.NonFungible {
		return len(c.ids) == 0
	}
	return c.amount.IsZero()
}
