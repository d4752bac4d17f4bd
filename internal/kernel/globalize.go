package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/renode"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
	"github.com/radixcore/engine/internal/wasmhost"
)

// nopRuntime is the no-op host package_init runs under: the module may
// call consume_cost_units freely (uncharged) but cannot reach the
// engine.
type nopRuntime struct{}

func (nopRuntime) HandleRadixEngineInput([]byte) ([]byte, error) {
	return nil, fmt.Errorf("kernel: radix_engine is unavailable during package_init")
}

func (nopRuntime) ConsumeCostUnits(uint32) error { return nil }

// PublishPackage validates and instruments code, mints a fresh
// PackageAddress, buffers its Package substate, and records the
// address as a root so the executor's receipt can report it.
func (k *Kernel) PublishPackage(code []byte, abis map[string][]byte) (addressing.PackageAddress, error) {
	if err := k.reserve.ConsumeCostUnits(k.costTable.CreateNode, "publish package"); err != nil {
		return addressing.PackageAddress{}, err
	}

	if err := wasmhost.Validate(code); err != nil {
		return addressing.PackageAddress{}, fmt.Errorf("kernel: publish package: %w", err)
	}
	instrumented, err := wasmhost.Instrument(code, k.costTable.WasmInstruction)
	if err != nil {
		return addressing.PackageAddress{}, fmt.Errorf("kernel: publish package: %w", err)
	}

	// package_init runs once, outside any transaction frame, under a
	// host that charges nothing and answers no engine calls. Its return
	// value is not read; the stored blueprint ABIs are the abis argument.
	if k.wasm != nil {
		inst, err := k.wasm.Instantiate(instrumented, uint64(k.reserve.Remaining()))
		if err != nil {
			return addressing.PackageAddress{}, fmt.Errorf("kernel: publish package: %w", err)
		}
		if _, err := inst.Invoke(wasmhost.RequiredEntrypoint, sbor.Encode(sbor.Unit()), nopRuntime{}); err != nil {
			return addressing.PackageAddress{}, fmt.Errorf("kernel: publish package: %w", err)
		}
	}

	addr := addressing.NewPackageAddress(k.txHash, k.nextCounter())
	id := substate.PackageId(addr)
	k.putSubstate(id, substate.Substate{
		Kind:    substate.SubstateKindPackage,
		Package: &substate.PackageData{Code: instrumented, BlueprintABIs: abis},
	})
	k.setRoot(id)
	k.newPackages = append(k.newPackages, addr)
	k.emitEvent("PublishPackage", addr.String())
	return addr, nil
}

// PublishNativeBlueprint registers a package backed by no Wasm code at
// all: kernel.run dispatches any function/method call against it
// straight to dispatchNativeBlueprint instead of instantiating a Wasm
// module. This is how the engine ships built-in blueprints (the demo
// Account component) without shipping a compiled Wasm binary for them.
func (k *Kernel) PublishNativeBlueprint() addressing.PackageAddress {
	addr := addressing.NewPackageAddress(k.txHash, k.nextCounter())
	id := substate.PackageId(addr)
	k.putSubstate(id, substate.Substate{
		Kind:    substate.SubstateKindPackage,
		Package: &substate.PackageData{Code: nil, BlueprintABIs: map[string][]byte{}},
	})
	k.setRoot(id)
	k.newPackages = append(k.newPackages, addr)
	return addr
}

// CreateVaultNode mints a fresh VaultId and inserts the corresponding
// RENode into frame's arena, consuming c's contents.
func (k *Kernel) CreateVaultNode(frame *Frame, c *resource.Container) addressing.VaultId {
	id := k.NewVaultId()
	vault := resource.NewVault(c)
	frame.Insert(renode.ValueId{Kind: renode.KindVault, Vault: id}, renode.NewVaultNode(vault))
	return id
}

// CreateKeyValueStoreNode mints a fresh KeyValueStoreId and inserts an
// empty key-value store node into frame's arena.
func (k *Kernel) CreateKeyValueStoreNode(frame *Frame) addressing.KeyValueStoreId {
	id := k.NewKeyValueStoreId()
	frame.Insert(renode.ValueId{Kind: renode.KindKeyValueStore, KVStore: id}, renode.NewKeyValueStoreNode())
	return id
}

// CreateComponentNode mints a ComponentAddress and inserts an
// un-globalized component node carrying stateBytes into frame's arena,
// verifying every Vault/KeyValueStore id the state references currently
// exists in frame's arena and has not already been claimed by another
// component this transaction.
//
// A referenced id that frame does not currently own is the orphan case
// (ErrRENodeCreateNodeNotFound): the id was either never produced by a
// prior call in this transaction, or it has already been moved
// elsewhere. A referenced id that was already claimed by an earlier
// CreateComponentNode call in this transaction is the double-ownership
// case, reported with the same error.
func (k *Kernel) CreateComponentNode(frame *Frame, pkg addressing.PackageAddress, blueprint string, stateBytes []byte, accessRules map[string][]byte) (addressing.ComponentAddress, error) {
	val, err := scryptovalue.FromBytes(stateBytes)
	if err != nil {
		return addressing.ComponentAddress{}, fmt.Errorf("kernel: create component: %w", err)
	}

	for _, vid := range val.VaultIDs {
		key := "V:" + vid.String()
		if k.claimedVaults[key] {
			return addressing.ComponentAddress{}, fmt.Errorf("kernel: create component: vault %s: %w", vid.String(), ErrRENodeCreateNodeNotFound)
		}
		if !frame.Has(renode.ValueId{Kind: renode.KindVault, Vault: vid}) {
			return addressing.ComponentAddress{}, fmt.Errorf("kernel: create component: vault %s: %w", vid.String(), ErrRENodeCreateNodeNotFound)
		}
	}
	for _, kvid := range val.KVStoreIDs {
		key := "K:" + kvid.String()
		if k.claimedKVStores[key] {
			return addressing.ComponentAddress{}, fmt.Errorf("kernel: create component: key-value store %s: %w", kvid.String(), ErrRENodeCreateNodeNotFound)
		}
		if !frame.Has(renode.ValueId{Kind: renode.KindKeyValueStore, KVStore: kvid}) {
			return addressing.ComponentAddress{}, fmt.Errorf("kernel: create component: key-value store %s: %w", kvid.String(), ErrRENodeCreateNodeNotFound)
		}
	}

	addr := addressing.NewComponentAddress(k.txHash, k.nextCounter())
	node := &renode.ComponentNode{
		Package:    pkg,
		Blueprint:  blueprint,
		StateBytes: stateBytes,
		AccessRules: accessRules,
		Address:    addr,
	}
	frame.Insert(renode.ValueId{Kind: renode.KindComponent, Component: addr}, renode.NewComponentNode(node))

	for _, vid := range val.VaultIDs {
		k.claimedVaults["V:"+vid.String()] = true
	}
	for _, kvid := range val.KVStoreIDs {
		k.claimedKVStores["K:"+kvid.String()] = true
	}

	return addr, nil
}

// GlobalizeComponent promotes a component node still owned by frame
// into the global root set: it removes the node from frame's arena,
// persists every Vault and KeyValueStore the component's state
// references (moving them from owned to stored), persists ComponentInfo
// and ComponentState substates, sets both as roots, and records the
// address for the transaction receipt.
func (k *Kernel) GlobalizeComponent(frame *Frame, addr addressing.ComponentAddress) error {
	id := renode.ValueId{Kind: renode.KindComponent, Component: addr}
	node, ok := frame.Remove(id)
	if !ok || node.Component == nil {
		return fmt.Errorf("kernel: globalize %s: %w", addr.String(), ErrRENodeNotFound)
	}

	if err := k.persistOwnedNodes(frame, node.Component.StateBytes); err != nil {
		frame.Insert(id, node)
		return fmt.Errorf("kernel: globalize %s: %w", addr.String(), err)
	}

	rules := substate.AccessRulesData{Rules: node.Component.AccessRules}
	infoId := substate.ComponentInfoId(addr)
	stateId := substate.ComponentStateId(addr)

	k.putSubstate(infoId, substate.Substate{
		Kind: substate.SubstateKindComponent,
		Component: &substate.ComponentData{
			Package:     node.Component.Package,
			Blueprint:   node.Component.Blueprint,
			AccessRules: rules,
		},
	})
	k.putSubstate(stateId, substate.Substate{
		Kind: substate.SubstateKindComponent,
		Component: &substate.ComponentData{
			Package:     node.Component.Package,
			Blueprint:   node.Component.Blueprint,
			StateBytes:  node.Component.StateBytes,
			AccessRules: rules,
		},
	})
	k.setRoot(infoId)
	k.setRoot(stateId)
	k.newComponents = append(k.newComponents, addr)
	k.emitEvent("Globalize", addr.String())
	return nil
}

// persistOwnedNodes flushes every Vault and KeyValueStore node the
// encoded state references out of frame's arena and into the pending
// write-set. A referenced id no longer present in the arena means the
// node was moved elsewhere between creation and globalization.
func (k *Kernel) persistOwnedNodes(frame *Frame, stateBytes []byte) error {
	val, err := scryptovalue.FromBytes(stateBytes)
	if err != nil {
		return err
	}

	for _, vid := range val.VaultIDs {
		node, ok := frame.Remove(renode.ValueId{Kind: renode.KindVault, Vault: vid})
		if !ok || node.Vault == nil {
			return fmt.Errorf("vault %s: %w", vid.String(), ErrRENodeNotFound)
		}
		c := node.Vault.Container()
		k.putSubstate(substate.VaultId(vid), substate.Substate{
			Kind:        substate.SubstateKindVault,
			VaultLiquid: &substate.ContainerData{Resource: c.Address, Amount: c.Amount(), Ids: c.Ids()},
		})
	}

	for _, kvid := range val.KVStoreIDs {
		node, ok := frame.Remove(renode.ValueId{Kind: renode.KindKeyValueStore, KVStore: kvid})
		if !ok || node.KeyValueStore == nil {
			return fmt.Errorf("key-value store %s: %w", kvid.String(), ErrRENodeNotFound)
		}
		// The space sentinel marks the store's existence; its entries
		// follow under their own keys.
		k.putSubstate(substate.KeyValueStoreSpaceId(kvid), substate.Substate{
			Kind: substate.SubstateKindKeyValueStoreEntryWrapper,
		})
		for key, raw := range node.KeyValueStore.Entries {
			if err := k.persistOwnedNodes(frame, raw); err != nil {
				return err
			}
			k.putSubstate(substate.KeyValueStoreEntryId(kvid, []byte(key)), substate.Substate{
				Kind:                   substate.SubstateKindKeyValueStoreEntryWrapper,
				Present:                true,
				KeyValueStoreEntryData: raw,
			})
		}
	}
	return nil
}

// NewResourceAddress mints a fresh, transaction-scoped ResourceAddress
// for a resource being created this transaction.
func (k *Kernel) NewResourceAddress() addressing.ResourceAddress {
	return addressing.NewResourceAddress(k.txHash, k.nextCounter())
}

// CreateResourceManager persists a ResourceManager substate under
// rm.Address (minted beforehand, e.g. by NewResourceAddress), the
// resource's dedicated native s-node
// state that every Mint/Burn/Withdraw/Deposit call targets.
func (k *Kernel) CreateResourceManager(rm *resource.ResourceManager, metadata map[string]string) addressing.ResourceAddress {
	addr := rm.Address
	id := substate.ResourceManagerId(addr)
	k.putSubstate(id, substate.Substate{
		Kind: substate.SubstateKindResourceManager,
		ResourceManager: &substate.ResourceManagerData{
			Granularity: rm.Granularity,
			TotalSupply: rm.TotalSupply(),
			Metadata:    metadata,
			NonFungible: rm.NonFungible,
			AccessRules: substate.AccessRulesData{Rules: map[string][]byte{
				"mint":     rm.MintRule.Marshal(),
				"burn":     rm.BurnRule.Marshal(),
				"withdraw": rm.WithdrawRule.Marshal(),
				"deposit":  rm.DepositRule.Marshal(),
			}},
		},
	})
	k.setRoot(id)
	k.newResources = append(k.newResources, addr)
	k.emitEvent("CreateResource", addr.String())
	return addr
}
