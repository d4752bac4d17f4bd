package resource

import (
	"errors"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// ErrInvalidAmount is returned by Mint when the requested amount is
// not a multiple of 10^-granularity.
var ErrInvalidAmount = errors.New("resource: invalid amount for granularity")

// ErrMaxMintAmountExceeded is returned by Mint when minting would push
// total supply above the hard ceiling.
var ErrMaxMintAmountExceeded = errors.New("resource: max mint amount exceeded")

// ErrNotAuthorized is returned when an access-rule check fails.
var ErrNotAuthorized = errors.New("resource: not authorized")

// ErrAuthZoneEmpty is returned when an operation requiring at least
// one proof finds the auth zone empty.
var ErrAuthZoneEmpty = errors.New("resource: auth zone empty")

// MaxSupply is the hard ceiling on a fungible resource's total supply:
// 10^18 whole units.
var MaxSupply = bnum.FromInt64(1_000_000_000_000_000_000)

// ResourceManager is the authority for one ResourceAddress: it tracks
// divisibility, total supply, metadata, and the resource's access
// rules, and owns the non-fungible space for non-fungible resources.
type ResourceManager struct {
	Address     addressing.ResourceAddress
	Granularity int
	NonFungible bool
	Metadata    map[string]string

	MintRule       AccessRule
	BurnRule       AccessRule
	WithdrawRule   AccessRule
	DepositRule    AccessRule
	UpdateMetaRule AccessRule

	totalSupply bnum.Decimal
}

// NewFungibleResourceManager creates a manager for a fungible resource
// of the given divisibility (number of allowed decimal places).
func NewFungibleResourceManager(addr addressing.ResourceAddress, granularity int) *ResourceManager {
	return &ResourceManager{
		Address:     addr,
		Granularity: granularity,
		Metadata:    map[string]string{},
		MintRule:    DenyAll(),
		BurnRule:    DenyAll(),
		WithdrawRule: AllowAll(),
		DepositRule:  AllowAll(),
	}
}

// NewNonFungibleResourceManager creates a manager for a non-fungible resource.
func NewNonFungibleResourceManager(addr addressing.ResourceAddress) *ResourceManager {
	rm := NewFungibleResourceManager(addr, 0)
	rm.NonFungible = true
	return rm
}

// RestoreResourceManager rebuilds a ResourceManager from its persisted shape (as read
// back from a ResourceManager substate) so a kernel handling a second
// Mint/Burn call in the same resource's lifetime enforces the supply
// ceiling against the resource's true running total, not a fresh zero.
func RestoreResourceManager(addr addressing.ResourceAddress, granularity int, nonFungible bool, totalSupply bnum.Decimal, metadata map[string]string, mint, burn, withdraw, deposit, updateMeta AccessRule) *ResourceManager {
	return &ResourceManager{
		Address:        addr,
		Granularity:    granularity,
		NonFungible:    nonFungible,
		Metadata:       metadata,
		MintRule:       mint,
		BurnRule:       burn,
		WithdrawRule:   withdraw,
		DepositRule:    deposit,
		UpdateMetaRule: updateMeta,
		totalSupply:    totalSupply,
	}
}

// TotalSupply returns the current total supply (fungible amount, or
// non-fungible count expressed as a whole Decimal).
func (rm *ResourceManager) TotalSupply() bnum.Decimal { return rm.totalSupply }

// Mint creates amount of a fungible resource, enforcing granularity and
// the total-supply ceiling.
func (rm *ResourceManager) Mint(amount bnum.Decimal) (*Container, error) {
	if rm.NonFungible {
		return nil, fmt.Errorf("resource: mint: %w", ErrResourceTypeMismatch)
	}
	if !amount.IsMultipleOf10To(rm.Granularity) {
		return nil, fmt.Errorf("resource: mint %s at granularity %d: %w", amount.String(), rm.Granularity, ErrInvalidAmount)
	}
	newSupply := rm.totalSupply.Add(amount)
	if newSupply.Cmp(MaxSupply) > 0 {
		return nil, fmt.Errorf("resource: mint %s: %w", amount.String(), ErrMaxMintAmountExceeded)
	}
	rm.totalSupply = newSupply
	c := NewFungibleContainer(rm.Address)
	c.amount = amount
	return c, nil
}

// MintNonFungible creates a new non-fungible with the given id (no
// data is attached), enforcing the total-supply ceiling (counted in whole
// units, one per id).
func (rm *ResourceManager) MintNonFungible(id addressing.NonFungibleId) (*Container, error) {
	if !rm.NonFungible {
		return nil, fmt.Errorf("resource: mint non-fungible: %w", ErrResourceTypeMismatch)
	}
	newSupply := rm.totalSupply.Add(bnum.FromInt64(1))
	if newSupply.Cmp(MaxSupply) > 0 {
		return nil, fmt.Errorf("resource: mint non-fungible: %w", ErrMaxMintAmountExceeded)
	}
	rm.totalSupply = newSupply
	c := NewNonFungibleContainer(rm.Address)
	c.ids[string(id)] = id
	return c, nil
}

// Burn destroys c entirely, decrementing total supply.
func (rm *ResourceManager) Burn(c *Container) {
	rm.totalSupply = rm.totalSupply.Sub(c.Amount())
}
