package resource

import "github.com/radixcore/engine/internal/bnum"

// Bucket is a transient resource container scoped to one call frame.
// It must be consumed (deposited or burned) before the frame returns;
// an empty, unlocked Bucket is droppable, but a non-empty one is not.
type Bucket struct {
	container *Container
}

// NewBucket wraps a container as a Bucket.
func NewBucket(c *Container) *Bucket { return &Bucket{container: c} }

func (b *Bucket) Amount() bnum.Decimal { return b.container.Amount() }
func (b *Bucket) IsEmpty() bool        { return b.container.IsEmpty() }
func (b *Bucket) IsLocked() bool       { return b.container.IsLocked() }
func (b *Bucket) Container() *Container { return b.container }

// Put merges other into b.
func (b *Bucket) Put(other *Bucket) error { return b.container.Put(other.container) }

// Take splits amount off b into a new Bucket.
func (b *Bucket) Take(amount bnum.Decimal) (*Bucket, error) {
	c, err := b.container.Take(amount)
	if err != nil {
		return nil, err
	}
	return NewBucket(c), nil
}
