package sbor

import "encoding/binary"

// Encode serializes a Value to its canonical tagged byte representation.
func Encode(v Value) []byte {
	var buf []byte
	buf = appendValue(buf, v)
	return buf
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Type))
	return appendPayload(buf, v)
}

// appendPayload writes the tag-less body of v; used both for top-level
// encoding (after the tag byte) and for homogeneous list/set/map
// elements, whose per-element tag is never written.
func appendPayload(buf []byte, v Value) []byte {
	switch v.Type {
	case TypeUnit:
		return buf
	case TypeBool:
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	case TypeI8:
		return append(buf, byte(int8(v.I64)))
	case TypeI16:
		return appendUint16(buf, uint16(int16(v.I64)))
	case TypeI32:
		return appendUint32(buf, uint32(int32(v.I64)))
	case TypeI64:
		return appendUint64(buf, uint64(v.I64))
	case TypeU8:
		return append(buf, byte(v.U64))
	case TypeU16:
		return appendUint16(buf, uint16(v.U64))
	case TypeU32:
		return appendUint32(buf, uint32(v.U64))
	case TypeU64:
		return appendUint64(buf, v.U64)
	case TypeString:
		b := []byte(v.Str)
		buf = appendUint32(buf, uint32(len(b)))
		return append(buf, b...)
	case TypeBytes:
		buf = appendUint32(buf, uint32(len(v.Bytes)))
		return append(buf, v.Bytes...)
	case TypeList, TypeSet:
		buf = append(buf, byte(v.ElemType))
		buf = appendUint32(buf, uint32(len(v.Items)))
		for _, item := range v.Items {
			buf = appendPayload(buf, item)
		}
		return buf
	case TypeMap:
		buf = append(buf, byte(v.KeyType), byte(v.ValueType))
		buf = appendUint32(buf, uint32(len(v.Entries)))
		for _, e := range v.Entries {
			buf = appendPayload(buf, e.Key)
			buf = appendPayload(buf, e.Value)
		}
		return buf
	case TypeStruct:
		buf = appendUint32(buf, uint32(len(v.Fields)))
		for _, f := range v.Fields {
			buf = appendValue(buf, f)
		}
		return buf
	case TypeEnum:
		buf = append(buf, v.Variant)
		buf = appendUint32(buf, uint32(len(v.Fields)))
		for _, f := range v.Fields {
			buf = appendValue(buf, f)
		}
		return buf
	case TypeCustom:
		buf = append(buf, v.Custom.Kind)
		buf = appendUint32(buf, uint32(len(v.Custom.Body)))
		return append(buf, v.Custom.Body...)
	default:
		panic("sbor: encode: unknown type " + v.Type.String())
	}
}

func appendUint16(buf []byte, u uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], u)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, u uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], u)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, u uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return append(buf, b[:]...)
}
