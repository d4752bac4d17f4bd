package kernel

import (
	"encoding/hex"
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
)

// dispatchNative routes an ActorNative invocation to the handler for
// its SNodeKind. Every handler is metered already (via Kernel.meter,
// charged before run is reached); the handlers charge no further cost
// units of their own.
func dispatchNative(k *Kernel, callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	switch ref.SNode {
	case SNodeResourceManager:
		return k.dispatchResourceManager(callee, ref, args)
	case SNodeBucket:
		return k.dispatchBucket(callee, ref, args)
	case SNodeVault:
		return k.dispatchVault(callee, ref, args)
	case SNodeProof:
		return k.dispatchProof(callee, ref, args)
	case SNodeWorktop:
		return k.dispatchWorktop(callee, ref, args)
	case SNodeAuthZone:
		return k.dispatchAuthZone(callee, ref, args)
	case SNodeSystem:
		return k.dispatchSystem(callee, ref, args)
	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: native %s::%s: %w", ref.SNode, ref.FnIdent, ErrMethodNotFound)
	}
}

func parseResourceAddress(s string) (addressing.ResourceAddress, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return addressing.ResourceAddress{}, fmt.Errorf("kernel: resource address: %w", err)
	}
	a, err := addressing.AddressFromBytes(b)
	if err != nil {
		return addressing.ResourceAddress{}, fmt.Errorf("kernel: resource address: %w", err)
	}
	return addressing.ResourceAddress{Address: a}, nil
}

// callerZone resolves the auth zone an access rule on a native call is
// evaluated against: the invoking frame's zone, not the fresh zone of
// the native callee frame itself.
func callerZone(callee *Frame) *resource.AuthZone {
	if callee.Parent != nil {
		return callee.Parent.AuthZone
	}
	return callee.AuthZone
}

// loadResourceManager reconstructs a live *resource.ResourceManager
// from its persisted substate, restoring total supply so a second
// mint in the same resource's lifetime enforces the true ceiling.
func (k *Kernel) loadResourceManager(addr addressing.ResourceAddress) (*resource.ResourceManager, error) {
	sub, ok, err := k.getSubstate(substate.ResourceManagerId(addr))
	if err != nil {
		return nil, err
	}
	if !ok || sub.ResourceManager == nil {
		return nil, fmt.Errorf("kernel: resource %s: %w", addr.String(), ErrComponentNotFound)
	}
	d := sub.ResourceManager
	ruleOf := func(name string) resource.AccessRule {
		raw, ok := d.AccessRules.Rules[name]
		if !ok {
			return resource.AllowAll()
		}
		rule, err := resource.UnmarshalAccessRule(raw)
		if err != nil {
			return resource.DenyAll()
		}
		return rule
	}
	return resource.RestoreResourceManager(addr, d.Granularity, d.NonFungible, d.TotalSupply, d.Metadata,
		ruleOf("mint"), ruleOf("burn"), ruleOf("withdraw"), ruleOf("deposit"), ruleOf("update_metadata")), nil
}

func (k *Kernel) saveResourceManagerSupply(rm *resource.ResourceManager) {
	id := substate.ResourceManagerId(rm.Address)
	sub, ok, _ := k.getSubstate(id)
	if !ok || sub.ResourceManager == nil {
		return
	}
	sub.ResourceManager.TotalSupply = rm.TotalSupply()
	k.putSubstate(id, sub)
}

// dispatchResourceManager handles mint/burn/get_total_supply. The
// receiver resource address is carried in ref.NativeTarget as hex.
func (k *Kernel) dispatchResourceManager(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	addr, err := parseResourceAddress(ref.NativeTarget)
	if err != nil {
		return scryptovalue.Value{}, fmt.Errorf("kernel: resource manager: %w", err)
	}

	switch ref.FnIdent {
	case "mint":
		rm, err := k.loadResourceManager(addr)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		if !rm.MintRule.Evaluate(callerZone(callee)) {
			return scryptovalue.Value{}, fmt.Errorf("kernel: mint %s: %w", addr.String(), ErrNotAuthorized)
		}
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: mint: %w", err)
		}
		c, err := rm.Mint(amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: mint: %w", err)
		}
		k.saveResourceManagerSupply(rm)
		bid := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(resource.NewBucket(c)))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))

	case "burn":
		// Burn consumes the bucket named by args (a single Bucket
		// reference already moved into callee by computeMoveSet).
		if len(args.BucketIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: burn: expected exactly one bucket")
		}
		bid := args.BucketIDs[0]
		node, ok := callee.Remove(renode.ValueId{Kind: renode.KindBucket, Bucket: bid})
		if !ok || node.Bucket == nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: burn: %w", ErrRENodeNotFound)
		}
		rm, err := k.loadResourceManager(addr)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		if !rm.BurnRule.Evaluate(callerZone(callee)) {
			return scryptovalue.Value{}, fmt.Errorf("kernel: burn %s: %w", addr.String(), ErrNotAuthorized)
		}
		rm.Burn(node.Bucket.Container())
		k.saveResourceManagerSupply(rm)
		return scryptovalue.FromSBOR(sbor.Unit())

	case "get_total_supply":
		rm, err := k.loadResourceManager(addr)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		return scryptovalue.FromSBOR(rm.TotalSupply().MarshalSBOR())

	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: resource manager %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

// targetBucket/targetVault/targetProof resolve ref.NativeTarget (a
// ValueId key already moved into callee by computeMoveSet) to the live
// node it names.
func targetBucket(callee *Frame, ref SNodeRef) (renode.ValueId, *resource.Bucket, error) {
	for _, id := range callee.Ids() {
		if id.Kind == renode.KindBucket && fmt.Sprintf("%d", id.Bucket) == ref.NativeTarget {
			n, _ := callee.Get(id)
			return id, n.Bucket, nil
		}
	}
	return renode.ValueId{}, nil, fmt.Errorf("kernel: bucket %s: %w", ref.NativeTarget, ErrRENodeNotFound)
}

func targetVault(callee *Frame, ref SNodeRef) (renode.ValueId, *resource.Vault, error) {
	for _, id := range callee.Ids() {
		if id.Kind == renode.KindVault && id.Vault.String() == ref.NativeTarget {
			n, _ := callee.Get(id)
			return id, n.Vault, nil
		}
	}
	return renode.ValueId{}, nil, fmt.Errorf("kernel: vault %s: %w", ref.NativeTarget, ErrRENodeNotFound)
}

func (k *Kernel) dispatchBucket(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	_, b, err := targetBucket(callee, ref)
	if err != nil {
		return scryptovalue.Value{}, err
	}
	switch ref.FnIdent {
	case "get_amount":
		return scryptovalue.FromSBOR(b.Amount().MarshalSBOR())
	case "put":
		if len(args.BucketIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: bucket put: expected one bucket")
		}
		otherId := renode.ValueId{Kind: renode.KindBucket, Bucket: args.BucketIDs[0]}
		otherNode, ok := callee.Remove(otherId)
		if !ok {
			return scryptovalue.Value{}, fmt.Errorf("kernel: bucket put: %w", ErrRENodeNotFound)
		}
		if err := b.Put(otherNode.Bucket); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: bucket put: %w", err)
		}
		return scryptovalue.FromSBOR(sbor.Unit())
	case "take":
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: bucket take: %w", err)
		}
		taken, err := b.Take(amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: bucket take: %w", err)
		}
		newId := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: newId}, renode.NewBucketNode(taken))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(newId))
	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: bucket %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

func (k *Kernel) dispatchVault(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	_, v, err := targetVault(callee, ref)
	if err != nil {
		return scryptovalue.Value{}, err
	}
	switch ref.FnIdent {
	case "get_amount":
		return scryptovalue.FromSBOR(v.Amount().MarshalSBOR())
	case "put":
		if len(args.BucketIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: vault put: expected one bucket")
		}
		bid := renode.ValueId{Kind: renode.KindBucket, Bucket: args.BucketIDs[0]}
		node, ok := callee.Remove(bid)
		if !ok {
			return scryptovalue.Value{}, fmt.Errorf("kernel: vault put: %w", ErrRENodeNotFound)
		}
		if err := v.Put(node.Bucket); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: vault put: %w", err)
		}
		return scryptovalue.FromSBOR(sbor.Unit())
	case "take":
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: vault take: %w", err)
		}
		taken, err := v.Take(amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: vault take: %w", err)
		}
		newId := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: newId}, renode.NewBucketNode(taken))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(newId))
	case "lock_fee":
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: lock_fee: %w", err)
		}
		if _, err := v.Take(amount); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: lock_fee: %w", err)
		}
		k.reserve.LockFee(amount)
		return scryptovalue.FromSBOR(sbor.Unit())
	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: vault %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

func (k *Kernel) dispatchProof(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	switch ref.FnIdent {
	case "drop":
		if len(args.ProofIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: proof drop: expected one proof")
		}
		id := renode.ValueId{Kind: renode.KindProof, Proof: args.ProofIDs[0]}
		node, ok := callee.Remove(id)
		if !ok {
			return scryptovalue.Value{}, fmt.Errorf("kernel: proof drop: %w", ErrRENodeNotFound)
		}
		if node.Proof != nil {
			node.Proof.Release()
		}
		return scryptovalue.FromSBOR(sbor.Unit())
	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: proof %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

func (k *Kernel) dispatchWorktop(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	root := rootFrame(callee)
	if root.Worktop == nil {
		return scryptovalue.Value{}, fmt.Errorf("kernel: worktop: not in a transaction root frame")
	}
	w := root.Worktop

	switch ref.FnIdent {
	case "put":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		if len(args.BucketIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop put: expected one bucket")
		}
		bid := renode.ValueId{Kind: renode.KindBucket, Bucket: args.BucketIDs[0]}
		node, ok := callee.Remove(bid)
		if !ok {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop put: %w", ErrRENodeNotFound)
		}
		if err := w.Put(addr, node.Bucket); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop put: %w", err)
		}
		return scryptovalue.FromSBOR(sbor.Unit())

	case "take_all":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		b, err := w.TakeAll(addr)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop take_all: %w", err)
		}
		bid := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(b))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))

	case "take_amount":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop take_amount: %w", err)
		}
		b, err := w.TakeByAmount(addr, amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop take_amount: %w", err)
		}
		bid := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(b))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))

	case "take_ids":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		ids, err := nonFungibleIdsArg(args)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		b, err := w.TakeByIds(addr, ids)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop take_ids: %w", err)
		}
		bid := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: bid}, renode.NewBucketNode(b))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(bid))

	case "assert_contains":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		if !w.AssertContains(addr) {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop assert_contains %s: %w", addr.String(), resource.ErrWorktopResourceMissing)
		}
		return scryptovalue.FromSBOR(sbor.Unit())

	case "assert_contains_amount":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop assert_contains_amount: %w", err)
		}
		if !w.AssertContainsAmount(addr, amount) {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop assert_contains_amount %s: %w", addr.String(), resource.ErrInsufficientBalance)
		}
		return scryptovalue.FromSBOR(sbor.Unit())

	case "assert_contains_ids":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		ids, err := nonFungibleIdsArg(args)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		if !w.AssertContainsIds(addr, ids) {
			return scryptovalue.Value{}, fmt.Errorf("kernel: worktop assert_contains_ids %s: %w", addr.String(), resource.ErrInsufficientBalance)
		}
		return scryptovalue.FromSBOR(sbor.Unit())

	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: worktop %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

// nonFungibleIdsArg decodes an argument value shaped as a list of
// byte-string non-fungible ids.
func nonFungibleIdsArg(args scryptovalue.Value) ([]addressing.NonFungibleId, error) {
	if args.Raw.Type != sbor.TypeList {
		return nil, fmt.Errorf("kernel: expected a list of non-fungible ids")
	}
	ids := make([]addressing.NonFungibleId, 0, len(args.Raw.Items))
	for _, item := range args.Raw.Items {
		if item.Type != sbor.TypeBytes {
			return nil, fmt.Errorf("kernel: expected a list of non-fungible ids")
		}
		ids = append(ids, addressing.NonFungibleId(item.Bytes))
	}
	return ids, nil
}

func rootFrame(f *Frame) *Frame {
	for f.Parent != nil {
		f = f.Parent
	}
	return f
}

func (k *Kernel) dispatchAuthZone(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	root := rootFrame(callee)
	zone := root.AuthZone

	switch ref.FnIdent {
	case "push":
		if len(args.ProofIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone push: expected one proof")
		}
		id := renode.ValueId{Kind: renode.KindProof, Proof: args.ProofIDs[0]}
		node, ok := callee.Remove(id)
		if !ok || node.Proof == nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone push: %w", ErrRENodeNotFound)
		}
		zone.Push(node.Proof)
		return scryptovalue.FromSBOR(sbor.Unit())

	case "pop":
		p := zone.Pop()
		if p == nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone pop: %w", resource.ErrAuthZoneEmpty)
		}
		pid := k.NewProofId()
		callee.Insert(renode.ValueId{Kind: renode.KindProof, Proof: pid}, renode.NewProofNode(p))
		return scryptovalue.FromSBOR(scryptovalue.MarshalProof(pid))

	case "create_proof_of_amount":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone create proof: %w", err)
		}
		p, err := zone.CreateProofOfAmount(addr, amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone create proof: %w", err)
		}
		pid := k.NewProofId()
		callee.Insert(renode.ValueId{Kind: renode.KindProof, Proof: pid}, renode.NewProofNode(p))
		return scryptovalue.FromSBOR(scryptovalue.MarshalProof(pid))

	case "create_proof_of_all":
		addr, err := parseResourceAddress(ref.NativeTarget)
		if err != nil {
			return scryptovalue.Value{}, err
		}
		p, err := zone.CreateProofOfAll(addr)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: authzone create proof: %w", err)
		}
		pid := k.NewProofId()
		callee.Insert(renode.ValueId{Kind: renode.KindProof, Proof: pid}, renode.NewProofNode(p))
		return scryptovalue.FromSBOR(scryptovalue.MarshalProof(pid))

	case "clear":
		zone.Clear()
		return scryptovalue.FromSBOR(sbor.Unit())

	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: authzone %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

func (k *Kernel) dispatchSystem(callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	switch ref.FnIdent {
	case "get_transaction_hash":
		return scryptovalue.FromSBOR(sbor.Bytes(k.txHash.Bytes()))
	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: system %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

// dispatchNativeBlueprint runs the engine's single built-in blueprint,
// Account: a component whose state is exactly one owned Vault id, with
// a "withdraw"/"deposit"/"balance"/"lock_fee" method
// set. It exists so a plain XRD transfer between two accounts does not
// require a compiled Wasm fixture; a PublishNativeBlueprint-registered
// package dispatches here instead of instantiating code.
func dispatchNativeBlueprint(k *Kernel, callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	if !ref.IsFunction && !ref.IsMethod {
		return scryptovalue.Value{}, fmt.Errorf("kernel: native blueprint: %w", ErrMethodNotFound)
	}

	if ref.IsFunction && ref.FnIdent == "new" {
		return accountNew(k, callee, args)
	}

	if ref.IsMethod {
		return dispatchAccountMethod(k, callee, ref, args)
	}

	return scryptovalue.Value{}, fmt.Errorf("kernel: native blueprint %s: %w", ref.FnIdent, ErrMethodNotFound)
}

// accountNew creates a fresh Account component owning one empty XRD
// vault and globalizes it immediately, returning the new address as a
// component reference (the Account blueprint never hands out an
// un-globalized component). args is unused but kept in the signature so
// dispatchNativeBlueprint's calling convention is uniform across every
// native blueprint function.
func accountNew(k *Kernel, callee *Frame, args scryptovalue.Value) (scryptovalue.Value, error) {
	vid := k.CreateVaultNode(callee, resource.NewFungibleContainer(addressing.XRDResourceAddress))
	stateBytes := sbor.Encode(scryptovalue.MarshalVaultId(vid))

	comp, err := k.CreateComponentNode(callee, callee.Actor.Package, "Account", stateBytes, map[string][]byte{})
	if err != nil {
		return scryptovalue.Value{}, err
	}
	if err := k.GlobalizeComponent(callee, comp); err != nil {
		return scryptovalue.Value{}, err
	}
	return scryptovalue.FromSBOR(scryptovalue.MarshalRefComponent(comp))
}

// accountVault loads the component's state and decodes its single
// owned VaultId. It resolves no live Vault node: the caller reads and
// writes that vault's substate directly.
func accountVault(k *Kernel, callee *Frame, addr addressing.ComponentAddress) (addressing.VaultId, error) {
	sub, ok, err := k.getSubstate(substate.ComponentStateId(addr))
	if err != nil {
		return addressing.VaultId{}, err
	}
	if !ok || sub.Component == nil {
		return addressing.VaultId{}, fmt.Errorf("kernel: account: %w", ErrComponentNotFound)
	}
	val, err := scryptovalue.FromBytes(sub.Component.StateBytes)
	if err != nil {
		return addressing.VaultId{}, fmt.Errorf("kernel: account: %w", err)
	}
	if len(val.VaultIDs) != 1 {
		return addressing.VaultId{}, fmt.Errorf("kernel: account: malformed state")
	}
	return val.VaultIDs[0], nil
}

func dispatchAccountMethod(k *Kernel, callee *Frame, ref SNodeRef, args scryptovalue.Value) (scryptovalue.Value, error) {
	vid, err := accountVault(k, callee, ref.Component)
	if err != nil {
		return scryptovalue.Value{}, err
	}

	vaultSub, ok, err := k.getSubstate(substate.VaultId(vid))
	if err != nil {
		return scryptovalue.Value{}, err
	}
	var container *resource.Container
	if ok && vaultSub.VaultLiquid != nil {
		container = containerFromData(vaultSub.VaultLiquid)
	} else {
		container = resource.NewFungibleContainer(addressing.XRDResourceAddress)
	}
	vault := resource.NewVault(container)

	switch ref.FnIdent {
	case "balance":
		return scryptovalue.FromSBOR(vault.Amount().MarshalSBOR())

	case "deposit":
		if len(args.BucketIDs) != 1 {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account deposit: expected one bucket")
		}
		bid := renode.ValueId{Kind: renode.KindBucket, Bucket: args.BucketIDs[0]}
		node, ok := callee.Remove(bid)
		if !ok {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account deposit: %w", ErrRENodeNotFound)
		}
		if err := vault.Put(node.Bucket); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account deposit: %w", err)
		}
		k.putSubstate(substate.VaultId(vid), substate.Substate{Kind: substate.SubstateKindVault, VaultLiquid: dataFromContainer(container)})
		return scryptovalue.FromSBOR(sbor.Unit())

	case "withdraw":
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account withdraw: %w", err)
		}
		b, err := vault.Take(amount)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account withdraw: %w", err)
		}
		k.putSubstate(substate.VaultId(vid), substate.Substate{Kind: substate.SubstateKindVault, VaultLiquid: dataFromContainer(container)})
		newId := k.NewBucketId()
		callee.Insert(renode.ValueId{Kind: renode.KindBucket, Bucket: newId}, renode.NewBucketNode(b))
		return scryptovalue.FromSBOR(scryptovalue.MarshalBucket(newId))

	case "lock_fee":
		amount, err := bnum.UnmarshalSBORDecimal(args.Raw)
		if err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account lock_fee: %w", err)
		}
		if _, err := vault.Take(amount); err != nil {
			return scryptovalue.Value{}, fmt.Errorf("kernel: account lock_fee: %w", err)
		}
		feeSubstateId := substate.VaultId(vid)
		k.putSubstate(feeSubstateId, substate.Substate{Kind: substate.SubstateKindVault, VaultLiquid: dataFromContainer(container)})
		k.RecordFeePayment(feeSubstateId, amount)
		k.reserve.LockFee(amount)
		return scryptovalue.FromSBOR(sbor.Unit())

	default:
		return scryptovalue.Value{}, fmt.Errorf("kernel: account %s: %w", ref.FnIdent, ErrMethodNotFound)
	}
}

func containerFromData(d *substate.ContainerData) *resource.Container {
	addr := d.Resource
	if addr.IsZero() {
		addr = addressing.XRDResourceAddress
	}
	return resource.RestoreContainer(addr, d.Amount, d.Ids)
}

func dataFromContainer(c *resource.Container) *substate.ContainerData {
	return &substate.ContainerData{Resource: c.Address, Amount: c.Amount(), Ids: c.Ids()}
}
