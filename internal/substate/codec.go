package substate

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/sbor"
)

// encodeSubstate and decodeSubstate implement the canonical tagged
// encoding for the Substate union, used both by PebbleStore (the
// on-disk wire format) and by anything that needs a deterministic byte
// form of a substate (e.g. for hashing).

func encodeSubstate(s Substate) (sbor.Value, error) {
	switch s.Kind {
	case SubstateKindSystem:
		return sbor.Enum(byte(s.Kind), sbor.U64(s.SystemEpoch)), nil
	case SubstateKindResourceManager:
		if s.ResourceManager == nil {
			return sbor.Value{}, fmt.Errorf("substate: encode: nil ResourceManager data")
		}
		return sbor.Enum(byte(s.Kind), encodeResourceManager(s.ResourceManager)), nil
	case SubstateKindComponent:
		if s.Component == nil {
			return sbor.Value{}, fmt.Errorf("substate: encode: nil Component data")
		}
		return sbor.Enum(byte(s.Kind), encodeComponent(s.Component)), nil
	case SubstateKindPackage:
		if s.Package == nil {
			return sbor.Value{}, fmt.Errorf("substate: encode: nil Package data")
		}
		return sbor.Enum(byte(s.Kind), encodePackage(s.Package)), nil
	case SubstateKindVault:
		liquid := encodeContainer(s.VaultLiquid)
		hasLocked := s.VaultLocked != nil
		locked := sbor.Unit()
		if hasLocked {
			locked = encodeContainer(s.VaultLocked)
		}
		return sbor.Enum(byte(s.Kind), liquid, sbor.Bool(hasLocked), locked), nil
	case SubstateKindNonFungibleWrapper:
		return sbor.Enum(byte(s.Kind), sbor.Bool(s.Present), sbor.Bytes(s.NonFungibleData)), nil
	case SubstateKindKeyValueStoreEntryWrapper:
		return sbor.Enum(byte(s.Kind), sbor.Bool(s.Present), sbor.Bytes(s.KeyValueStoreEntryData)), nil
	default:
		return sbor.Value{}, fmt.Errorf("substate: encode: unknown substate kind %d", s.Kind)
	}
}

func decodeSubstate(v sbor.Value) (Substate, error) {
	if v.Type != sbor.TypeEnum {
		return Substate{}, fmt.Errorf("substate: decode: expected enum, got %s", v.Type)
	}
	kind := SubstateKind(v.Variant)
	switch kind {
	case SubstateKindSystem:
		if len(v.Fields) != 1 {
			return Substate{}, fmt.Errorf("substate: decode: malformed System")
		}
		return Substate{Kind: kind, SystemEpoch: v.Fields[0].U64}, nil
	case SubstateKindResourceManager:
		if len(v.Fields) != 1 {
			return Substate{}, fmt.Errorf("substate: decode: malformed ResourceManager")
		}
		rm, err := decodeResourceManager(v.Fields[0])
		if err != nil {
			return Substate{}, err
		}
		return Substate{Kind: kind, ResourceManager: rm}, nil
	case SubstateKindComponent:
		if len(v.Fields) != 1 {
			return Substate{}, fmt.Errorf("substate: decode: malformed Component")
		}
		c, err := decodeComponent(v.Fields[0])
		if err != nil {
			return Substate{}, err
		}
		return Substate{Kind: kind, Component: c}, nil
	case SubstateKindPackage:
		if len(v.Fields) != 1 {
			return Substate{}, fmt.Errorf("substate: decode: malformed Package")
		}
		p, err := decodePackage(v.Fields[0])
		if err != nil {
			return Substate{}, err
		}
		return Substate{Kind: kind, Package: p}, nil
	case SubstateKindVault:
		if len(v.Fields) != 3 {
			return Substate{}, fmt.Errorf("substate: decode: malformed Vault")
		}
		liquid, err := decodeContainer(v.Fields[0])
		if err != nil {
			return Substate{}, err
		}
		s := Substate{Kind: kind, VaultLiquid: liquid}
		if v.Fields[1].Bool {
			locked, err := decodeContainer(v.Fields[2])
			if err != nil {
				return Substate{}, err
			}
			s.VaultLocked = locked
		}
		return s, nil
	case SubstateKindNonFungibleWrapper:
		if len(v.Fields) != 2 {
			return Substate{}, fmt.Errorf("substate: decode: malformed NonFungibleWrapper")
		}
		return Substate{Kind: kind, Present: v.Fields[0].Bool, NonFungibleData: v.Fields[1].Bytes}, nil
	case SubstateKindKeyValueStoreEntryWrapper:
		if len(v.Fields) != 2 {
			return Substate{}, fmt.Errorf("substate: decode: malformed KeyValueStoreEntryWrapper")
		}
		return Substate{Kind: kind, Present: v.Fields[0].Bool, KeyValueStoreEntryData: v.Fields[1].Bytes}, nil
	default:
		return Substate{}, fmt.Errorf("substate: decode: unknown substate kind %d", v.Variant)
	}
}

func encodeResourceManager(rm *ResourceManagerData) sbor.Value {
	meta := make([]sbor.MapEntry, 0, len(rm.Metadata))
	for k, v := range rm.Metadata {
		meta = append(meta, sbor.MapEntry{Key: sbor.String(k), Value: sbor.String(v)})
	}
	rules := make([]sbor.MapEntry, 0, len(rm.AccessRules.Rules))
	for k, v := range rm.AccessRules.Rules {
		rules = append(rules, sbor.MapEntry{Key: sbor.String(k), Value: sbor.Bytes(v)})
	}
	return sbor.Struct(
		sbor.I32(int32(rm.Granularity)),
		rm.TotalSupply.MarshalSBOR(),
		sbor.Bool(rm.NonFungible),
		sbor.Map(sbor.TypeString, sbor.TypeString, meta...),
		sbor.Map(sbor.TypeString, sbor.TypeBytes, rules...),
	)
}

func decodeResourceManager(v sbor.Value) (*ResourceManagerData, error) {
	if v.Type != sbor.TypeStruct || len(v.Fields) != 5 {
		return nil, fmt.Errorf("substate: decode: malformed ResourceManagerData")
	}
	supply, err := bnum.UnmarshalSBORDecimal(v.Fields[1])
	if err != nil {
		return nil, fmt.Errorf("substate: decode: ResourceManagerData.TotalSupply: %w", err)
	}
	meta := map[string]string{}
	for _, e := range v.Fields[3].Entries {
		meta[e.Key.Str] = e.Value.Str
	}
	rules := map[string][]byte{}
	for _, e := range v.Fields[4].Entries {
		rules[e.Key.Str] = e.Value.Bytes
	}
	return &ResourceManagerData{
		Granularity: int(v.Fields[0].I64),
		TotalSupply: supply,
		NonFungible: v.Fields[2].Bool,
		Metadata:    meta,
		AccessRules: AccessRulesData{Rules: rules},
	}, nil
}

func encodeComponent(c *ComponentData) sbor.Value {
	rules := make([]sbor.MapEntry, 0, len(c.AccessRules.Rules))
	for k, v := range c.AccessRules.Rules {
		rules = append(rules, sbor.MapEntry{Key: sbor.String(k), Value: sbor.Bytes(v)})
	}
	return sbor.Struct(
		sbor.Bytes(c.Package.Bytes()),
		sbor.String(c.Blueprint),
		sbor.Bytes(c.StateBytes),
		sbor.Map(sbor.TypeString, sbor.TypeBytes, rules...),
	)
}

func decodeComponent(v sbor.Value) (*ComponentData, error) {
	if v.Type != sbor.TypeStruct || len(v.Fields) != 4 {
		return nil, fmt.Errorf("substate: decode: malformed ComponentData")
	}
	addr, err := addressing.AddressFromBytes(v.Fields[0].Bytes)
	if err != nil {
		return nil, fmt.Errorf("substate: decode: ComponentData.Package: %w", err)
	}
	rules := map[string][]byte{}
	for _, e := range v.Fields[3].Entries {
		rules[e.Key.Str] = e.Value.Bytes
	}
	return &ComponentData{
		Package:     addressing.PackageAddress{Address: addr},
		Blueprint:   v.Fields[1].Str,
		StateBytes:  v.Fields[2].Bytes,
		AccessRules: AccessRulesData{Rules: rules},
	}, nil
}

func encodePackage(p *PackageData) sbor.Value {
	abis := make([]sbor.MapEntry, 0, len(p.BlueprintABIs))
	for k, v := range p.BlueprintABIs {
		abis = append(abis, sbor.MapEntry{Key: sbor.String(k), Value: sbor.Bytes(v)})
	}
	return sbor.Struct(
		sbor.Bytes(p.Code),
		sbor.Map(sbor.TypeString, sbor.TypeBytes, abis...),
	)
}

func decodePackage(v sbor.Value) (*PackageData, error) {
	if v.Type != sbor.TypeStruct || len(v.Fields) != 2 {
		return nil, fmt.Errorf("substate: decode: malformed PackageData")
	}
	abis := map[string][]byte{}
	for _, e := range v.Fields[1].Entries {
		abis[e.Key.Str] = e.Value.Bytes
	}
	return &PackageData{Code: v.Fields[0].Bytes, BlueprintABIs: abis}, nil
}

func encodeContainer(c *ContainerData) sbor.Value {
	ids := make([]sbor.Value, 0, len(c.Ids))
	for _, id := range c.Ids {
		ids = append(ids, sbor.Bytes(id))
	}
	return sbor.Struct(sbor.Bytes(c.Resource.Bytes()), c.Amount.MarshalSBOR(), sbor.List(sbor.TypeBytes, ids...))
}

func decodeContainer(v sbor.Value) (*ContainerData, error) {
	if v.Type != sbor.TypeStruct || len(v.Fields) != 3 {
		return nil, fmt.Errorf("substate: decode: malformed ContainerData")
	}
	addr, err := addressing.AddressFromBytes(v.Fields[0].Bytes)
	if err != nil {
		return nil, fmt.Errorf("substate: decode: ContainerData.Resource: %w", err)
	}
	amount, err := bnum.UnmarshalSBORDecimal(v.Fields[1])
	if err != nil {
		return nil, fmt.Errorf("substate: decode: ContainerData.Amount: %w", err)
	}
	ids := make([]addressing.NonFungibleId, 0, len(v.Fields[2].Items))
	for _, item := range v.Fields[2].Items {
		ids = append(ids, addressing.NonFungibleId(item.Bytes))
	}
	return &ContainerData{Resource: addressing.ResourceAddress{Address: addr}, Amount: amount, Ids: ids}, nil
}
