// Package bnum implements the fixed-point Decimal type used for
// resource amounts throughout the engine: a 18-implied-decimal-place
// value backed by math/big, so every arithmetic operation is exact and
// deterministic across platforms.
package bnum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/radixcore/engine/internal/sbor"
)

// Scale is the number of implied decimal places: Decimal(1) represents
// 10^-18.
const Scale = 18

// CustomKindDecimal is this type's sbor.Custom sub-tag.
const CustomKindDecimal byte = 1

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(Scale), nil)

// ErrDivisionByZero is returned by Div when dividing by zero.
var ErrDivisionByZero = errors.New("bnum: division by zero")

// Decimal is a signed fixed-point number with 18 implied decimal
// places, stored as an integer of 10^-18 units.
type Decimal struct {
	v big.Int
}

// Zero is the additive identity.
func Zero() Decimal { return Decimal{} }

// FromInt64 builds a Decimal representing the whole number n.
func FromInt64(n int64) Decimal {
	var d Decimal
	d.v.Mul(big.NewInt(n), scaleFactor)
	return d
}

// FromRaw builds a Decimal from its raw 10^-18 unit representation.
// The value of raw is copied; later changes to raw do not affect the
// result.
func FromRaw(raw *big.Int) Decimal {
	var d Decimal
	d.v.Set(raw)
	return d
}

// Raw returns the underlying 10^-18 unit integer.
func (d Decimal) Raw() *big.Int {
	return new(big.Int).Set(&d.v)
}

// ParseDecimal parses a base-10 string with an optional single decimal
// point and optional leading '-', e.g. "123.456000000000000000".
func ParseDecimal(s string) (Decimal, error) {
	if s == "" {
		return Decimal{}, fmt.Errorf("bnum: parse %q: empty string", s)
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	} else if s[0] == '+' {
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	for i, c := range s {
		if c == '.' {
			intPart = s[:i]
			fracPart = s[i+1:]
			break
		}
	}
	if len(fracPart) > Scale {
		return Decimal{}, fmt.Errorf("bnum: parse %q: too many decimal places", s)
	}
	for len(fracPart) < Scale {
		fracPart += "0"
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("bnum: parse %q: invalid digits", s)
	}
	if neg {
		v.Neg(v)
	}
	return Decimal{v: *v}, nil
}

// String renders the decimal in base-10 with a fixed 18-digit fraction,
// trimmed of trailing zeros (but keeping at least one fraction digit if
// the value is not a whole number, and none if it is).
func (d Decimal) String() string {
	neg := d.v.Sign() < 0
	abs := new(big.Int).Abs(&d.v)
	q, r := new(big.Int).QuoRem(abs, scaleFactor, new(big.Int))
	frac := r.String()
	for len(frac) < Scale {
		frac = "0" + frac
	}
	for len(frac) > 0 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	out := q.String()
	if frac != "" {
		out += "." + frac
	}
	if neg && d.v.Sign() != 0 {
		out = "-" + out
	}
	return out
}

func (d Decimal) Add(o Decimal) Decimal {
	var r Decimal
	r.v.Add(&d.v, &o.v)
	return r
}

func (d Decimal) Sub(o Decimal) Decimal {
	var r Decimal
	r.v.Sub(&d.v, &o.v)
	return r
}

func (d Decimal) Mul(o Decimal) Decimal {
	var r Decimal
	r.v.Mul(&d.v, &o.v)
	r.v.Quo(&r.v, scaleFactor)
	return r
}

func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.v.Sign() == 0 {
		return Decimal{}, ErrDivisionByZero
	}
	var r Decimal
	r.v.Mul(&d.v, scaleFactor)
	r.v.Quo(&r.v, &o.v)
	return r, nil
}

func (d Decimal) Neg() Decimal {
	var r Decimal
	r.v.Neg(&d.v)
	return r
}

func (d Decimal) IsZero() bool     { return d.v.Sign() == 0 }
func (d Decimal) IsNegative() bool { return d.v.Sign() < 0 }
func (d Decimal) IsPositive() bool { return d.v.Sign() > 0 }

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than o.
func (d Decimal) Cmp(o Decimal) int { return d.v.Cmp(&o.v) }

// IsMultipleOf10To reports whether d is an exact multiple of
// 10^(Scale-granularity), i.e. has no significant digits beyond the
// given number of decimal places. granularity must be in [0, Scale].
func (d Decimal) IsMultipleOf10To(granularity int) bool {
	if granularity < 0 || granularity > Scale {
		return false
	}
	if granularity == Scale {
		return true
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Scale-granularity)), nil)
	rem := new(big.Int).Mod(new(big.Int).Abs(&d.v), divisor)
	return rem.Sign() == 0
}

// MarshalSBOR encodes the decimal as a sbor Custom value: a big-endian
// two's-complement encoding of the raw 10^-18-unit integer, matching
// the source format's fixed-width custom-type body.
func (d Decimal) MarshalSBOR() sbor.Value {
	return sbor.CustomValue(CustomKindDecimal, encodeBigInt(&d.v))
}

// UnmarshalSBORDecimal decodes a sbor Custom value produced by
// MarshalSBOR.
func UnmarshalSBORDecimal(v sbor.Value) (Decimal, error) {
	if v.Type != sbor.TypeCustom || v.Custom.Kind != CustomKindDecimal {
		return Decimal{}, fmt.Errorf("bnum: unmarshal: not a decimal custom value")
	}
	return Decimal{v: *decodeBigInt(v.Custom.Body)}, nil
}

// encodeBigInt encodes a signed big.Int as a fixed 32-byte big-endian
// two's-complement value, wide enough for any amount this engine deals
// with (10^18 max supply at 18 implied decimals is 10^36 raw units,
// about 2^120, leaving over 130 bits of headroom within 256 bits).
func encodeBigInt(v *big.Int) []byte {
	const width = 32
	out := make([]byte, width)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[width-len(b):], b)
		return out
	}
	// Two's complement: (2^(width*8) + v).
	mod := new(big.Int).Lsh(big.NewInt(1), width*8)
	mod.Add(mod, v)
	b := mod.Bytes()
	copy(out[width-len(b):], b)
	return out
}

func decodeBigInt(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8)
		v.Sub(v, mod)
	}
	return v
}
