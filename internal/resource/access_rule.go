package resource

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/sbor"
)

// AccessRuleKind discriminates the node type of an AccessRule tree.
type AccessRuleKind byte

const (
	RuleRequire AccessRuleKind = iota
	RuleAllOf
	RuleAnyOf
	RuleAllowAll
	RuleDenyAll
)

// AccessRule is a boolean expression over "requires(resource, amount)"
// leaf terms, composed with AllOf/AnyOf. Evaluate examines an AuthZone
// for proofs satisfying each leaf.
type AccessRule struct {
	Kind     AccessRuleKind
	Resource addressing.ResourceAddress
	Amount   bnum.Decimal // zero means "any positive amount / badge presence"
	Children []AccessRule
}

func Require(addr addressing.ResourceAddress) AccessRule {
	return AccessRule{Kind: RuleRequire, Resource: addr}
}

func RequireAmount(addr addressing.ResourceAddress, amount bnum.Decimal) AccessRule {
	return AccessRule{Kind: RuleRequire, Resource: addr, Amount: amount}
}

func AllOf(rules ...AccessRule) AccessRule {
	return AccessRule{Kind: RuleAllOf, Children: rules}
}

func AnyOf(rules ...AccessRule) AccessRule {
	return AccessRule{Kind: RuleAnyOf, Children: rules}
}

func AllowAll() AccessRule { return AccessRule{Kind: RuleAllowAll} }
func DenyAll() AccessRule  { return AccessRule{Kind: RuleDenyAll} }

// Evaluate reports whether zone satisfies r.
func (r AccessRule) Evaluate(zone *AuthZone) bool {
	switch r.Kind {
	case RuleAllowAll:
		return true
	case RuleDenyAll:
		return false
	case RuleRequire:
		if r.Amount.IsZero() {
			return zone.HasNonFungible(r.Resource)
		}
		return zone.HasAmount(r.Resource, r.Amount)
	case RuleAllOf:
		for _, c := range r.Children {
			if !c.Evaluate(zone) {
				return false
			}
		}
		return true
	case RuleAnyOf:
		for _, c := range r.Children {
			if c.Evaluate(zone) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Marshal encodes r as an sbor enum so it can be stored in a
// ComponentData/ResourceManagerData AccessRulesData map without the
// substate package needing to know the resource package's AccessRule
// type (avoiding an import cycle: substate is a leaf of resource, not
// the reverse).
func (r AccessRule) Marshal() []byte {
	return sbor.Encode(r.toValue())
}

func (r AccessRule) toValue() sbor.Value {
	switch r.Kind {
	case RuleAllowAll:
		return sbor.Enum(byte(RuleAllowAll))
	case RuleDenyAll:
		return sbor.Enum(byte(RuleDenyAll))
	case RuleRequire:
		return sbor.Enum(byte(RuleRequire), sbor.Bytes(r.Resource.Bytes()), r.Amount.MarshalSBOR())
	case RuleAllOf, RuleAnyOf:
		children := make([]sbor.Value, len(r.Children))
		for i, c := range r.Children {
			children[i] = c.toValue()
		}
		return sbor.Enum(byte(r.Kind), sbor.List(sbor.TypeEnum, children...))
	default:
		return sbor.Enum(byte(RuleDenyAll))
	}
}

// UnmarshalAccessRule decodes bytes produced by AccessRule.Marshal.
func UnmarshalAccessRule(data []byte) (AccessRule, error) {
	v, err := sbor.Decode(data)
	if err != nil {
		return AccessRule{}, fmt.Errorf("resource: unmarshal access rule: %w", err)
	}
	return accessRuleFromValue(v)
}

func accessRuleFromValue(v sbor.Value) (AccessRule, error) {
	if v.Type != sbor.TypeEnum {
		return AccessRule{}, fmt.Errorf("resource: access rule: expected enum, got %s", v.Type)
	}
	kind := AccessRuleKind(v.Variant)
	switch kind {
	case RuleAllowAll, RuleDenyAll:
		return AccessRule{Kind: kind}, nil
	case RuleRequire:
		if len(v.Fields) != 2 {
			return AccessRule{}, fmt.Errorf("resource: access rule: malformed require")
		}
		addr, err := addressing.AddressFromBytes(v.Fields[0].Bytes)
		if err != nil {
			return AccessRule{}, fmt.Errorf("resource: access rule: %w", err)
		}
		amount, err := bnum.UnmarshalSBORDecimal(v.Fields[1])
		if err != nil {
			return AccessRule{}, fmt.Errorf("resource: access rule: %w", err)
		}
		return AccessRule{Kind: RuleRequire, Resource: addressing.ResourceAddress{Address: addr}, Amount: amount}, nil
	case RuleAllOf, RuleAnyOf:
		if len(v.Fields) != 1 {
			return AccessRule{}, fmt.Errorf("resource: access rule: malformed composite")
		}
		children := make([]AccessRule, len(v.Fields[0].Items))
		for i, item := range v.Fields[0].Items {
			c, err := accessRuleFromValue(item)
			if err != nil {
				return AccessRule{}, err
			}
			children[i] = c
		}
		return AccessRule{Kind: kind, Children: children}, nil
	default:
		return AccessRule{}, fmt.Errorf("resource: access rule: unknown kind %d", kind)
	}
}
