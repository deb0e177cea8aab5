package perbill

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// Accuracy is the implicit denominator: one billion parts make a whole.
const Accuracy uint64 = 1_000_000_000

// ErrInvalidRatio is returned by FromRational for a zero denominator, an
// improper fraction, or a negative operand. Callers must abort the
// calculation in progress; substituting a default ratio would silently
// diverge from the on-chain result.
var ErrInvalidRatio = errors.New("invalid ratio")

var accuracyBig = new(big.Int).SetUint64(Accuracy)

// Perbill is a parts-per-billion fixed-point ratio, mirroring the substrate
// runtime type of the same name. Every construction and multiplication
// rounds exactly the way the runtime does, so reward amounts computed here
// match the chain bit-for-bit.
//
// A Perbill normally represents a ratio in [0, 1]. Values above Accuracy
// only appear as transient products inside Mul and must not be treated as
// standalone ratios.
type Perbill struct {
	parts uint64
}

// FromParts wraps a raw parts-per-billion numerator verbatim. The caller
// guarantees the scale.
func FromParts(parts uint64) Perbill {
	return Perbill{parts: parts}
}

// FromPercent builds the ratio pct/100.
func FromPercent(pct uint64) (Perbill, error) {
	return FromRational(new(big.Int).SetUint64(pct), big.NewInt(100))
}

// FromRational computes n/d as parts-per-billion.
//
// The runtime avoids overflowing n*Accuracy on large stake values by first
// shrinking both operands by factor = ceil(d/Accuracy) and only then
// cross-multiplying. The reduction costs at most one unit of precision, and
// every division below rounds down except the single ceiling division that
// produces the factor. Operands are big.Ints because chain balances are
// u128; the result always fits uint64 since it never exceeds Accuracy.
func FromRational(n, d *big.Int) (Perbill, error) {
	if d.Sign() == 0 {
		return Perbill{}, errors.Wrap(ErrInvalidRatio, "denominator is zero")
	}

	if n.Sign() < 0 || d.Sign() < 0 {
		return Perbill{}, errors.Wrap(ErrInvalidRatio, "negative operand")
	}

	if n.Cmp(d) > 0 {
		return Perbill{}, errors.Wrapf(ErrInvalidRatio, "numerator %s exceeds denominator %s", n, d)
	}

	// factor = max(ceil(d / Accuracy), 1)
	factor := new(big.Int).Add(d, new(big.Int).Sub(accuracyBig, big.NewInt(1)))
	factor.Quo(factor, accuracyBig)
	if factor.Sign() == 0 {
		factor.SetUint64(1)
	}

	nReduce := new(big.Int).Quo(n, factor)
	dReduce := new(big.Int).Quo(d, factor)

	parts := new(big.Int).Mul(nReduce, accuracyBig)
	parts.Quo(parts, dReduce)

	return Perbill{parts: parts.Uint64()}, nil
}

// Parts returns the raw parts-per-billion numerator.
func (p Perbill) Parts() uint64 {
	return p.parts
}

// Mul composes two ratios: floor(p * o / Accuracy), renormalized through
// FromParts.
func (p Perbill) Mul(o Perbill) Perbill {
	product := new(big.Int).SetUint64(p.parts)
	product.Mul(product, new(big.Int).SetUint64(o.parts))
	product.Quo(product, accuracyBig)

	return FromParts(product.Uint64())
}

// MulInt applies the ratio to an integer amount: floor(parts * amount /
// Accuracy). This is the step that turns a ratio into an actual reward
// amount and always rounds down; rounding up would mint value not backed
// by the payout pool.
func (p Perbill) MulInt(amount *big.Int) *big.Int {
	out := new(big.Int).SetUint64(p.parts)
	out.Mul(out, amount)

	return out.Quo(out, accuracyBig)
}

// IsZero reports whether the ratio is exactly zero.
func (p Perbill) IsZero() bool {
	return p.parts == 0
}

// String renders the ratio as a percentage with seven decimal places,
// e.g. FromParts(125_000_000) -> "12.5000000%".
func (p Perbill) String() string {
	return fmt.Sprintf("%d.%07d%%", p.parts/10_000_000, p.parts%10_000_000)
}
