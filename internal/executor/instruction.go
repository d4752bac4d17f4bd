package executor

import (
	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
)

// InstructionKind discriminates the variant of a manifest Instruction.
type InstructionKind byte

const (
	InstrLockFee InstructionKind = iota
	InstrCallFunction
	InstrCallMethod
	InstrTakeFromWorktop
	InstrTakeFromWorktopByAmount
	InstrReturnToWorktop
	InstrAssertWorktopContains
	InstrAssertWorktopContainsByAmount
	InstrDepositBatch
	InstrCreateResource
	InstrMintResource
	InstrBurnBucket
	InstrPublishPackage
	InstrCreateProofFromAuthZone
	InstrClearAuthZone
)

// Instruction is one step of a transaction manifest. Exactly the
// fields its Kind names are meaningful; the package-level constructors
// below are the supported ways to build one.
//
// Instructions that produce a bucket (TakeFromWorktop*) append its id
// to the transaction's bucket list; later instructions reference it by
// its position in that list (BucketIndex), the same indirection the
// manifest compiler's named buckets lower to.
type Instruction struct {
	Kind InstructionKind

	Package   addressing.PackageAddress
	Blueprint string
	Function  string

	Component addressing.ComponentAddress
	Method    string

	Resource addressing.ResourceAddress
	Amount   bnum.Decimal

	HasAmountArg bool
	HasBucketArg bool
	BucketIndex  int

	Code []byte
	ABIs map[string][]byte

	Granularity int
	Metadata    map[string]string
	Mintable    bool
}

// LockFee debits amount of the fee resource from the vault owned by
// component, funding the transaction's cost-unit reserve.
func LockFee(component addressing.ComponentAddress, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrLockFee, Component: component, Amount: amount}
}

// CallFunction invokes a blueprint function with a unit argument.
func CallFunction(pkg addressing.PackageAddress, blueprint, function string) Instruction {
	return Instruction{Kind: InstrCallFunction, Package: pkg, Blueprint: blueprint, Function: function}
}

// CallMethod invokes a component method with a unit argument.
func CallMethod(component addressing.ComponentAddress, method string) Instruction {
	return Instruction{Kind: InstrCallMethod, Component: component, Method: method}
}

// CallMethodWithAmount invokes a component method passing a single
// Decimal argument (withdraw, lock_fee, and friends).
func CallMethodWithAmount(component addressing.ComponentAddress, method string, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrCallMethod, Component: component, Method: method, Amount: amount, HasAmountArg: true}
}

// CallMethodWithBucket invokes a component method passing one
// previously produced bucket (by its index in the transaction's bucket
// list) as the argument, moving the bucket into the callee.
func CallMethodWithBucket(component addressing.ComponentAddress, method string, bucketIndex int) Instruction {
	return Instruction{Kind: InstrCallMethod, Component: component, Method: method, HasBucketArg: true, BucketIndex: bucketIndex}
}

// TakeFromWorktop moves everything the worktop holds of resource into a
// new bucket.
func TakeFromWorktop(resource addressing.ResourceAddress) Instruction {
	return Instruction{Kind: InstrTakeFromWorktop, Resource: resource}
}

// TakeFromWorktopByAmount moves amount of resource from the worktop
// into a new bucket.
func TakeFromWorktopByAmount(resource addressing.ResourceAddress, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrTakeFromWorktopByAmount, Resource: resource, Amount: amount}
}

// ReturnToWorktop puts a previously taken bucket back onto the worktop.
func ReturnToWorktop(bucketIndex int) Instruction {
	return Instruction{Kind: InstrReturnToWorktop, BucketIndex: bucketIndex}
}

// AssertWorktopContains aborts the transaction unless the worktop holds
// a non-zero amount of resource.
func AssertWorktopContains(resource addressing.ResourceAddress) Instruction {
	return Instruction{Kind: InstrAssertWorktopContains, Resource: resource}
}

// AssertWorktopContainsByAmount aborts the transaction unless the
// worktop holds at least amount of resource.
func AssertWorktopContainsByAmount(resource addressing.ResourceAddress, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrAssertWorktopContainsByAmount, Resource: resource, Amount: amount}
}

// DepositBatch sweeps every resource left on the worktop into
// component, one deposit call per resource.
func DepositBatch(component addressing.ComponentAddress) Instruction {
	return Instruction{Kind: InstrDepositBatch, Component: component}
}

// CreateResource creates a new fungible resource with the given
// divisibility. A mintable resource grants mint and burn to any caller;
// a non-mintable one has a fixed (initially zero) supply.
func CreateResource(granularity int, metadata map[string]string, mintable bool) Instruction {
	return Instruction{Kind: InstrCreateResource, Granularity: granularity, Metadata: metadata, Mintable: mintable}
}

// MintResource mints amount of an existing resource onto the worktop.
func MintResource(resource addressing.ResourceAddress, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrMintResource, Resource: resource, Amount: amount}
}

// BurnBucket destroys a previously taken bucket of resource,
// decrementing the resource's total supply.
func BurnBucket(resource addressing.ResourceAddress, bucketIndex int) Instruction {
	return Instruction{Kind: InstrBurnBucket, Resource: resource, BucketIndex: bucketIndex, HasBucketArg: true}
}

// PublishPackage validates, instruments, and stores a Wasm package.
func PublishPackage(code []byte, abis map[string][]byte) Instruction {
	return Instruction{Kind: InstrPublishPackage, Code: code, ABIs: abis}
}

// CreateProofFromAuthZone creates a proof over amount of resource from
// the proofs already in the root auth zone, and pushes the new proof
// back onto the zone for later access-rule checks.
func CreateProofFromAuthZone(resource addressing.ResourceAddress, amount bnum.Decimal) Instruction {
	return Instruction{Kind: InstrCreateProofFromAuthZone, Resource: resource, Amount: amount}
}

// ClearAuthZone releases every proof in the root frame's auth zone.
func ClearAuthZone() Instruction {
	return Instruction{Kind: InstrClearAuthZone}
}
