package sbor

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTripPrimitives(t *testing.T) {
	cases := []Value{
		Unit(),
		Bool(true),
		Bool(false),
		I32(-42),
		U64(1<<63 + 7),
		String("hello sbor"),
		Bytes([]byte{1, 2, 3, 4}),
	}
	for _, v := range cases {
		enc := Encode(v)
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode %v: %v", v, err)
		}
		if !bytes.Equal(Encode(got), enc) {
			t.Errorf("round trip mismatch for %v: got %v", v, got)
		}
	}
}

func TestRoundTripStructAndEnum(t *testing.T) {
	s := Struct(U32(7), String("x"), Bool(true))
	enc := Encode(s)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode struct: %v", err)
	}
	if len(got.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(got.Fields))
	}

	e := Enum(2, U8(9))
	enc = Encode(e)
	got, err = Decode(enc)
	if err != nil {
		t.Fatalf("decode enum: %v", err)
	}
	if got.Variant != 2 || len(got.Fields) != 1 {
		t.Fatalf("unexpected enum decode: %+v", got)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc := Encode(U8(1))
	enc = append(enc, 0xFF)
	if _, err := Decode(enc); !errors.Is(err, ErrNotAllBytesUsed) {
		t.Fatalf("expected ErrNotAllBytesUsed, got %v", err)
	}
}

func TestDecodeRejectsDuplicateSetEntries(t *testing.T) {
	enc := Encode(Set(TypeU32, U32(1), U32(1)))
	_, err := Decode(enc)
	if err == nil {
		t.Fatalf("expected duplicate-set error, got none")
	}
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Kind != "Set" {
		t.Fatalf("expected DuplicateError(Set), got %v", err)
	}
}

func TestDecodeRejectsDuplicateMapKeys(t *testing.T) {
	enc := Encode(Map(TypeU32, TypeString,
		MapEntry{Key: U32(1), Value: String("a")},
		MapEntry{Key: U32(1), Value: String("b")},
	))
	_, err := Decode(enc)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Kind != "Map" {
		t.Fatalf("expected DuplicateError(Map), got %v", err)
	}
}

func TestDecodeUnderflow(t *testing.T) {
	if _, err := Decode([]byte{byte(TypeU32), 1, 2}); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
}

func TestDecodeInvalidBool(t *testing.T) {
	enc := []byte{byte(TypeBool), 7}
	if _, err := Decode(enc); !errors.Is(err, ErrInvalidBool) {
		t.Fatalf("expected ErrInvalidBool, got %v", err)
	}
}

func TestListPreservesOrder(t *testing.T) {
	v := List(TypeI32, I32(3), I32(1), I32(2))
	got, err := Decode(Encode(v))
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	want := []int64{3, 1, 2}
	for i, item := range got.Items {
		if item.I64 != want[i] {
			t.Errorf("item %d: got %d, want %d", i, item.I64, want[i])
		}
	}
}
