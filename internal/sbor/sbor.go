// Package sbor implements the canonical tagged value encoding used to
// serialize substates and guest/host values across the Wasm boundary: a
// self-describing, little-endian, tag-length-value format. Every value
// carries a 1-byte type tag; composite values carry a 4-byte length
// prefix; maps and sets carry their element type tag(s) ahead of the
// length and reject duplicate keys/elements at decode time.
package sbor

import "fmt"

// TypeId identifies the shape of an encoded Value.
type TypeId byte

const (
	TypeUnit TypeId = iota
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeString
	TypeBytes
	TypeList
	TypeSet
	TypeMap
	TypeStruct
	TypeEnum
	TypeCustom
)

func (t TypeId) String() string {
	switch t {
	case TypeUnit:
		return "unit"
	case TypeBool:
		return "bool"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeMap:
		return "map"
	case TypeStruct:
		return "struct"
	case TypeEnum:
		return "enum"
	case TypeCustom:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// MapEntry is one key/value pair of a Map value.
type MapEntry struct {
	Key   Value
	Value Value
}

// Custom carries a domain-defined sub-type (addresses, decimals, bucket
// ids, proof ids, ...) as a sub-tag plus an opaque fixed or
// length-prefixed body. Domain packages (addressing, bnum, kernel) own
// the Kind numbering and the Body layout; sbor only frames it.
type Custom struct {
	Kind byte
	Body []byte
}

// Value is the in-memory form of a decoded (or to-be-encoded) SBOR
// value. Exactly one field group is meaningful per Type.
type Value struct {
	Type TypeId

	Bool bool
	I64  int64
	U64  uint64

	Str   string
	Bytes []byte

	// List/Set: a homogeneous sequence. ElemType is the declared element
	// type tag (meaningful even for an empty sequence).
	ElemType TypeId
	Items    []Value

	// Map: homogeneous key type and value type.
	KeyType   TypeId
	ValueType TypeId
	Entries   []MapEntry

	// Struct: an ordered, unnamed field list (field names are not part
	// of the wire format; callers know field order from the Go type
	// they are encoding/decoding).
	Fields []Value

	// Enum: a variant index plus its field list.
	Variant uint8

	Custom Custom
}

func Unit() Value                 { return Value{Type: TypeUnit} }
func Bool(b bool) Value           { return Value{Type: TypeBool, Bool: b} }
func I8(v int8) Value             { return Value{Type: TypeI8, I64: int64(v)} }
func I16(v int16) Value           { return Value{Type: TypeI16, I64: int64(v)} }
func I32(v int32) Value           { return Value{Type: TypeI32, I64: int64(v)} }
func I64(v int64) Value           { return Value{Type: TypeI64, I64: v} }
func U8(v uint8) Value            { return Value{Type: TypeU8, U64: uint64(v)} }
func U16(v uint16) Value          { return Value{Type: TypeU16, U64: uint64(v)} }
func U32(v uint32) Value          { return Value{Type: TypeU32, U64: uint64(v)} }
func U64(v uint64) Value          { return Value{Type: TypeU64, U64: v} }
func String(s string) Value       { return Value{Type: TypeString, Str: s} }
func Bytes(b []byte) Value        { return Value{Type: TypeBytes, Bytes: b} }
func Struct(fields ...Value) Value {
	return Value{Type: TypeStruct, Fields: fields}
}
func Enum(variant uint8, fields ...Value) Value {
	return Value{Type: TypeEnum, Variant: variant, Fields: fields}
}
func CustomValue(kind byte, body []byte) Value {
	return Value{Type: TypeCustom, Custom: Custom{Kind: kind, Body: body}}
}

// List builds a homogeneous list value. elemType must match every
// item's Type; callers building lists of a known Go type should use
// the package-level constructors to keep this invariant.
func List(elemType TypeId, items ...Value) Value {
	return Value{Type: TypeList, ElemType: elemType, Items: items}
}

// Set builds a homogeneous set value; duplicate elements are rejected
// only at decode time (an encoder trusts its caller not to construct a
// set with duplicates, matching the source library's contract).
func Set(elemType TypeId, items ...Value) Value {
	return Value{Type: TypeSet, ElemType: elemType, Items: items}
}

// Map builds a homogeneous map value.
func Map(keyType, valueType TypeId, entries ...MapEntry) Value {
	return Value{Type: TypeMap, KeyType: keyType, ValueType: valueType, Entries: entries}
}
