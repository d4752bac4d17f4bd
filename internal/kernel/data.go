package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
)

// DataAddressKind discriminates the kind of durable data a frame may
// read or write through the data() system-API surface.
type DataAddressKind byte

const (
	DataComponentInfo DataAddressKind = iota
	DataComponentState
	DataKeyValueStoreEntry
	DataNonFungible
)

// DataAddress names one durable slot a running contract can read or
// write: a component's info or state, one entry of a key-value store,
// or one non-fungible's mutable data.
type DataAddress struct {
	Kind DataAddressKind

	Component addressing.ComponentAddress
	KVStore   addressing.KeyValueStoreId
	KVKey     []byte
	Resource  addressing.ResourceAddress
	NFID      addressing.NonFungibleId
}

func (a DataAddress) substateId() substate.SubstateId {
	switch a.Kind {
	case DataComponentInfo:
		return substate.ComponentInfoId(a.Component)
	case DataComponentState:
		return substate.ComponentStateId(a.Component)
	case DataKeyValueStoreEntry:
		return substate.KeyValueStoreEntryId(a.KVStore, a.KVKey)
	case DataNonFungible:
		return substate.NonFungibleEntryId(a.Resource, a.NFID)
	default:
		return substate.SubstateId{}
	}
}

// DataRead loads the current value at addr, charging a SubstateRead
// cost-unit fee.
func (k *Kernel) DataRead(addr DataAddress) (substate.Substate, bool, error) {
	if err := k.reserve.ConsumeCostUnits(k.costTable.SubstateRead, "data read"); err != nil {
		return substate.Substate{}, false, err
	}
	return k.getSubstate(addr.substateId())
}

// DataWrite stores a new value at addr, charging a SubstateWrite cost
// and enforcing the StoredNodeRemoved invariant: a ComponentState or
// KeyValueStoreEntry write may never silently drop a Vault or
// KeyValueStore id the previous value referenced, since that id would
// become permanently unreachable (and, for a Vault, its balance lost).
func (k *Kernel) DataWrite(addr DataAddress, newValue []byte) error {
	if err := k.reserve.ConsumeCostUnits(k.costTable.SubstateWrite, "data write"); err != nil {
		return err
	}

	old, existed, err := k.getSubstate(addr.substateId())
	if err != nil {
		return err
	}

	if addr.Kind == DataComponentState || addr.Kind == DataKeyValueStoreEntry {
		if existed {
			oldBytes := componentOrEntryBytes(addr, old)
			if oldBytes != nil {
				if err := checkStoredNodesPreserved(oldBytes, newValue); err != nil {
					return err
				}
			}
		}
	}

	sub, err := dataAddressSubstate(addr, old, existed, newValue)
	if err != nil {
		return err
	}
	k.putSubstate(addr.substateId(), sub)
	return nil
}

func componentOrEntryBytes(addr DataAddress, s substate.Substate) []byte {
	switch addr.Kind {
	case DataComponentState:
		if s.Component != nil {
			return s.Component.StateBytes
		}
	case DataKeyValueStoreEntry:
		if s.Present {
			return s.KeyValueStoreEntryData
		}
	}
	return nil
}

// checkStoredNodesPreserved enforces that every Vault/KeyValueStore id
// referenced by oldBytes is still referenced by newBytes.
func checkStoredNodesPreserved(oldBytes, newBytes []byte) error {
	oldVal, err := scryptovalue.FromBytes(oldBytes)
	if err != nil {
		return fmt.Errorf("kernel: stored-node check: decode old value: %w", err)
	}
	newVal, err := scryptovalue.FromBytes(newBytes)
	if err != nil {
		return fmt.Errorf("kernel: stored-node check: decode new value: %w", err)
	}

	newVaults := map[string]bool{}
	for _, v := range newVal.VaultIDs {
		newVaults[v.String()] = true
	}
	for _, v := range oldVal.VaultIDs {
		if !newVaults[v.String()] {
			return fmt.Errorf("kernel: vault %s: %w", v.String(), ErrStoredNodeRemoved)
		}
	}

	newKVs := map[string]bool{}
	for _, kv := range newVal.KVStoreIDs {
		newKVs[kv.String()] = true
	}
	for _, kv := range oldVal.KVStoreIDs {
		if !newKVs[kv.String()] {
			return fmt.Errorf("kernel: key-value store %s: %w", kv.String(), ErrStoredNodeRemoved)
		}
	}
	return nil
}

// dataAddressSubstate builds the Substate to write at addr, preserving
// every field of a prior ComponentState substate (Package, Blueprint,
// AccessRules) except the state bytes themselves.
func dataAddressSubstate(addr DataAddress, old substate.Substate, existed bool, raw []byte) (substate.Substate, error) {
	switch addr.Kind {
	case DataComponentState:
		data := &substate.ComponentData{StateBytes: raw}
		if existed && old.Component != nil {
			data.Package = old.Component.Package
			data.Blueprint = old.Component.Blueprint
			data.AccessRules = old.Component.AccessRules
		}
		return substate.Substate{Kind: substate.SubstateKindComponent, Component: data}, nil
	case DataKeyValueStoreEntry:
		return substate.Substate{Kind: substate.SubstateKindKeyValueStoreEntryWrapper, Present: true, KeyValueStoreEntryData: raw}, nil
	case DataNonFungible:
		return substate.Substate{Kind: substate.SubstateKindNonFungibleWrapper, Present: true, NonFungibleData: raw}, nil
	default:
		return substate.Substate{}, fmt.Errorf("kernel: data write: unsupported address kind %d", addr.Kind)
	}
}
