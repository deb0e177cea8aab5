package perbill

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
)

func bi(v int64) *big.Int {
	return big.NewInt(v)
}

func bigFromString(t *testing.T, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("Bad big.Int literal: %s", s)
	}

	return v
}

func TestFromRationalInvalid(t *testing.T) {

	cases := []struct {
		name string
		n, d *big.Int
	}{
		{"zero denominator", bi(1), bi(0)},
		{"improper fraction", bi(11), bi(10)},
		{"negative numerator", bi(-1), bi(10)},
		{"negative denominator", bi(1), bi(-10)},
		{"both negative", bi(-1), bi(-10)},
	}

	for _, c := range cases {
		if _, err := FromRational(c.n, c.d); err == nil {
			t.Errorf("%s: expected error, got none", c.name)
		} else if errors.Cause(err) != ErrInvalidRatio {
			t.Errorf("%s: expected ErrInvalidRatio, got %s", c.name, err)
		}
	}
}

func TestFromRationalZeroNumerator(t *testing.T) {

	for _, d := range []int64{1, 7, 1_000_000_000, 1_000_000_001} {
		p, err := FromRational(bi(0), bi(d))
		if err != nil {
			t.Fatalf("FromRational(0, %d): %s", d, err)
		}

		if got := p.MulInt(bi(123_456_789)); got.Sign() != 0 {
			t.Errorf("Zero ratio over %d produced %s, want 0", d, got)
		}
	}
}

func TestFromRationalIdentity(t *testing.T) {

	// Includes denominators large enough that the internal reduction
	// factor exceeds one; the identity must survive the reduction.
	dens := []*big.Int{
		bi(1),
		bi(999),
		bi(1_000_000_000),
		bigFromString(t, "1000000000000000000"),
		bigFromString(t, "340282366920938463463374607431768211455"),
	}

	amount := bigFromString(t, "1000000000000000000")

	for _, d := range dens {
		p, err := FromRational(d, d)
		if err != nil {
			t.Fatalf("FromRational(%s, %s): %s", d, d, err)
		}

		if p.Parts() != Accuracy {
			t.Errorf("Identity ratio for d=%s has %d parts, want %d", d, p.Parts(), Accuracy)
		}

		if got := p.MulInt(amount); got.Cmp(amount) != 0 {
			t.Errorf("Identity ratio for d=%s maps %s to %s", d, amount, got)
		}
	}
}

func TestFromRationalMonotonic(t *testing.T) {

	d := bi(997)
	amount := bi(1_000_000_000_000)

	prev := bi(-1)

	for n := int64(0); n <= 997; n++ {
		p, err := FromRational(bi(n), d)
		if err != nil {
			t.Fatalf("FromRational(%d, 997): %s", n, err)
		}

		got := p.MulInt(amount)
		if got.Cmp(prev) < 0 {
			t.Fatalf("Non-monotonic at n=%d: %s < %s", n, got, prev)
		}
		prev = got
	}
}

func TestFromRationalLargeOperands(t *testing.T) {

	// Realistic chain magnitudes: 18-decimal balances well past uint64.
	n := bigFromString(t, "2500000000000000000000000")
	d := bigFromString(t, "10000000000000000000000000")

	p, err := FromRational(n, d)
	if err != nil {
		t.Fatalf("FromRational: %s", err)
	}

	// 1/4 of a billion parts
	if p.Parts() != 250_000_000 {
		t.Errorf("Got %d parts, want 250000000", p.Parts())
	}
}

func TestMul(t *testing.T) {

	half := FromParts(500_000_000)
	tenth := FromParts(100_000_000)

	if got := half.Mul(tenth).Parts(); got != 50_000_000 {
		t.Errorf("0.5 * 0.1 = %d parts, want 50000000", got)
	}

	one := FromParts(Accuracy)
	if got := one.Mul(half).Parts(); got != 500_000_000 {
		t.Errorf("1.0 * 0.5 = %d parts, want 500000000", got)
	}
}

func TestMulIntRoundsDown(t *testing.T) {

	third, err := FromRational(bi(1), bi(3))
	if err != nil {
		t.Fatal(err)
	}

	// 1/3 truncates to 333333333 parts; applying it to 3 must floor to 0.999... -> 0
	if got := third.MulInt(bi(3)); got.Cmp(bi(0)) != 0 {
		t.Errorf("floor(3 * 1/3-ish) = %s, want 0", got)
	}

	if got := third.MulInt(bi(3_000_000_000)); got.Cmp(bi(999_999_999)) != 0 {
		t.Errorf("floor(3e9 * 333333333/1e9) = %s, want 999999999", got)
	}
}

func TestString(t *testing.T) {

	if got := FromParts(125_000_000).String(); got != "12.5000000%" {
		t.Errorf("Got %s", got)
	}

	if got := FromParts(Accuracy).String(); got != "100.0000000%" {
		t.Errorf("Got %s", got)
	}
}
