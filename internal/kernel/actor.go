package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
)

// ActorKind discriminates who is running in a call frame.
type ActorKind byte

const (
	// ActorBlueprint is a function call: no receiver, only a package
	// and blueprint name.
	ActorBlueprint ActorKind = iota
	// ActorComponent is a method call against a globalized component.
	ActorComponent
	// ActorNative is a call into one of the fixed native s-nodes
	// (ResourceManager, Bucket, Vault, Proof, Worktop, System,
	// AuthZone, TransactionProcessor).
	ActorNative
)

// Actor identifies who is executing in a Frame.
type Actor struct {
	Kind ActorKind

	Package   addressing.PackageAddress
	Blueprint string

	Component addressing.ComponentAddress

	SNode SNodeKind
}

func (a Actor) String() string {
	switch a.Kind {
	case ActorBlueprint:
		return fmt.Sprintf("Blueprint(%s::%s)", a.Package.String(), a.Blueprint)
	case ActorComponent:
		return fmt.Sprintf("Component(%s::%s::%s)", a.Component.String(), a.Package.String(), a.Blueprint)
	case ActorNative:
		return fmt.Sprintf("Native(%s)", a.SNode)
	default:
		return "Actor(unknown)"
	}
}

// SNodeKind enumerates the receivers a SNodeRef may name. The set is
// fixed; any FnIdentifier outside a receiver's method set is rejected
// with ErrMethodNotFound rather than extending this enum.
type SNodeKind byte

const (
	SNodeResourceManager SNodeKind = iota
	SNodeBucket
	SNodeVault
	SNodeProof
	SNodeWorktop
	SNodeAuthZone
	SNodeSystem
	SNodeTransactionProcessor
)

func (k SNodeKind) String() string {
	switch k {
	case SNodeResourceManager:
		return "ResourceManager"
	case SNodeBucket:
		return "Bucket"
	case SNodeVault:
		return "Vault"
	case SNodeProof:
		return "Proof"
	case SNodeWorktop:
		return "Worktop"
	case SNodeAuthZone:
		return "AuthZone"
	case SNodeSystem:
		return "System"
	case SNodeTransactionProcessor:
		return "TransactionProcessor"
	default:
		return fmt.Sprintf("SNodeKind(%d)", byte(k))
	}
}

// SNodeRef names the callee of one Invoke: either a Scrypto
// function/method (resolved through a Package's blueprint code) or a
// native s-node.
type SNodeRef struct {
	// Scrypto function call.
	IsFunction bool
	Package    addressing.PackageAddress
	Blueprint  string

	// Scrypto method call.
	IsMethod  bool
	Component addressing.ComponentAddress

	// Native s-node call.
	IsNative bool
	SNode    SNodeKind
	// NativeTarget disambiguates which in-frame object a native call
	// targets when the s-node kind itself is not globally addressed
	// (e.g. which Bucket/Proof/Vault id, by its ValueId key). Left
	// empty for receiver-less native s-nodes (Worktop, AuthZone,
	// System, TransactionProcessor), which are singletons per frame.
	NativeTarget string

	FnIdent string
}

func (r SNodeRef) String() string {
	switch {
	case r.IsFunction:
		return fmt.Sprintf("Function(%s::%s::%s)", r.Package.String(), r.Blueprint, r.FnIdent)
	case r.IsMethod:
		return fmt.Sprintf("Method(%s::%s)", r.Component.String(), r.FnIdent)
	case r.IsNative:
		return fmt.Sprintf("Native(%s::%s::%s)", r.SNode, r.NativeTarget, r.FnIdent)
	default:
		return "SNodeRef(unresolved)"
	}
}
