package resource

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// ErrWorktopResourceMissing is returned when an operation references a
// resource address the worktop holds nothing of.
var ErrWorktopResourceMissing = errors.New("resource: worktop holds none of this resource")

// Worktop is the root call frame's transient resource buffer, used to
// stage resources between manifest instructions. It must be empty
// when the transaction ends, or the transaction aborts.
type Worktop struct {
	containers map[addressing.ResourceAddress]*Container
}

// NewWorktop returns an empty Worktop.
func NewWorktop() *Worktop {
	return &Worktop{containers: map[addressing.ResourceAddress]*Container{}}
}

// Put deposits a bucket's contents onto the worktop, consuming the bucket.
func (w *Worktop) Put(addr addressing.ResourceAddress, b *Bucket) error {
	c, ok := w.containers[addr]
	if !ok {
		c = b.container
		w.containers[addr] = c
		return nil
	}
	return c.Put(b.container)
}

// TakeAll removes everything the worktop holds of addr.
func (w *Worktop) TakeAll(addr addressing.ResourceAddress) (*Bucket, error) {
	c, ok := w.containers[addr]
	if !ok {
		return nil, fmt.Errorf("resource: take all: %w", ErrWorktopResourceMissing)
	}
	amount := c.Amount()
	if c.NonFungible {
		taken, err := c.TakeIds(c.Ids())
		if err != nil {
			return nil, err
		}
		delete(w.containers, addr)
		return NewBucket(taken), nil
	}
	taken, err := c.Take(amount)
	if err != nil {
		return nil, err
	}
	delete(w.containers, addr)
	return NewBucket(taken), nil
}

// TakeByAmount removes amount of addr from the worktop.
func (w *Worktop) TakeByAmount(addr addressing.ResourceAddress, amount bnum.Decimal) (*Bucket, error) {
	c, ok := w.containers[addr]
	if !ok {
		return nil, fmt.Errorf("resource: take by amount: %w", ErrWorktopResourceMissing)
	}
	taken, err := c.Take(amount)
	if err != nil {
		return nil, err
	}
	return NewBucket(taken), nil
}

// TakeByIds removes the given non-fungible ids of addr from the worktop.
func (w *Worktop) TakeByIds(addr addressing.ResourceAddress, ids []addressing.NonFungibleId) (*Bucket, error) {
	c, ok := w.containers[addr]
	if !ok {
		return nil, fmt.Errorf("resource: take by ids: %w", ErrWorktopResourceMissing)
	}
	taken, err := c.TakeIds(ids)
	if err != nil {
		return nil, err
	}
	return NewBucket(taken), nil
}

// AssertContains checks the worktop holds a non-zero amount of addr.
func (w *Worktop) AssertContains(addr addressing.ResourceAddress) bool {
	c, ok := w.containers[addr]
	return ok && !c.IsEmpty()
}

// AssertContainsAmount checks the worktop holds at least amount of addr.
func (w *Worktop) AssertContainsAmount(addr addressing.ResourceAddress, amount bnum.Decimal) bool {
	c, ok := w.containers[addr]
	return ok && c.Amount().Cmp(amount) >= 0
}

// AssertContainsIds checks the worktop holds every given id of addr.
func (w *Worktop) AssertContainsIds(addr addressing.ResourceAddress, ids []addressing.NonFungibleId) bool {
	c, ok := w.containers[addr]
	if !ok {
		return false
	}
	held := map[string]struct{}{}
	for _, id := range c.Ids() {
		held[string(id)] = struct{}{}
	}
	for _, id := range ids {
		if _, present := held[string(id)]; !present {
			return false
		}
	}
	return true
}

// Resources lists every resource address the worktop currently holds a
// non-empty balance of, in a deterministic (byte-wise) order so callers
// iterating the worktop produce identical effects on every execution.
func (w *Worktop) Resources() []addressing.ResourceAddress {
	out := make([]addressing.ResourceAddress, 0, len(w.containers))
	for addr, c := range w.containers {
		if c.IsEmpty() {
			continue
		}
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

// IsEmpty reports whether every resource the worktop ever held has
// been fully withdrawn.
func (w *Worktop) IsEmpty() bool {
	for _, c := range w.containers {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
