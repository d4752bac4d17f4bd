package bnum

import "testing"

func TestParseAndString(t *testing.T) {
	cases := []string{"0", "1", "-1", "100.000001", "0.1", "-0.1", "123456789.123456789"}
	for _, s := range cases {
		d, err := ParseDecimal(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := d.String(); got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestArithmetic(t *testing.T) {
	a, _ := ParseDecimal("10")
	b, _ := ParseDecimal("3")
	if got := a.Add(b).String(); got != "13" {
		t.Errorf("10+3 = %s, want 13", got)
	}
	if got := a.Sub(b).String(); got != "7" {
		t.Errorf("10-3 = %s, want 7", got)
	}
	if got := a.Mul(b).String(); got != "30" {
		t.Errorf("10*3 = %s, want 30", got)
	}
	q, err := a.Div(b)
	if err != nil {
		t.Fatalf("div: %v", err)
	}
	if got := q.String(); got != "3.333333333333333333" {
		t.Errorf("10/3 = %s", got)
	}
	if _, err := a.Div(Zero()); err != ErrDivisionByZero {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestGranularity(t *testing.T) {
	whole, _ := ParseDecimal("5")
	if !whole.IsMultipleOf10To(0) {
		t.Errorf("5 should be a multiple of granularity 0")
	}
	frac, _ := ParseDecimal("0.1")
	if frac.IsMultipleOf10To(0) {
		t.Errorf("0.1 should not be a multiple of granularity 0")
	}
	if !frac.IsMultipleOf10To(1) {
		t.Errorf("0.1 should be a multiple of granularity 1")
	}
}

func TestSBORRoundTrip(t *testing.T) {
	d, _ := ParseDecimal("-42.5")
	v := d.MarshalSBOR()
	got, err := UnmarshalSBORDecimal(v)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Cmp(d) != 0 {
		t.Errorf("round trip mismatch: got %s, want %s", got.String(), d.String())
	}
}
