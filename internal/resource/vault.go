package resource

import "github.com/radixcore/engine/internal/bnum"

// Vault is the persistent resource container owned by a Component (or
// reachable through a KeyValueStore tree rooted at one). Once
// globalized it may never be moved out of its owner; the kernel
// enforces this at the RENode level (see renode.ErrValueNotAllowed /
// StoredNodeRemoved checks), not here.
type Vault struct {
	container *Container
}

func NewVault(c *Container) *Vault { return &Vault{container: c} }

func (v *Vault) Amount() bnum.Decimal   { return v.container.Amount() }
func (v *Vault) Container() *Container  { return v.container }

func (v *Vault) Put(b *Bucket) error { return v.container.Put(b.container) }

func (v *Vault) Take(amount bnum.Decimal) (*Bucket, error) {
	c, err := v.container.Take(amount)
	if err != nil {
		return nil, err
	}
	return NewBucket(c), nil
}
