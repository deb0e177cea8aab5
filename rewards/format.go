package rewards

import (
	"fmt"
	"math/big"
	"strings"
)

// CTCDecimals is the number of integer subunits per display CTC: 10^18.
const CTCDecimals = 18

var ctcSubunits = new(big.Int).Exp(big.NewInt(10), big.NewInt(CTCDecimals), nil)

// ToCTC converts an integer subunit amount to a floating-point CTC value
// for human display. The conversion is lossy and must never feed back into
// reward computation.
func ToCTC(amount *big.Int) float64 {

	quo, rem := new(big.Int).QuoRem(amount, ctcSubunits, new(big.Int))

	intPart, _ := new(big.Float).SetInt(quo).Float64()

	// rem < 10^18 always fits uint64
	return intPart + float64(rem.Uint64())/1e18
}

// FormatCTC renders an integer subunit amount as an exact decimal CTC
// string, trimming trailing zeros.
func FormatCTC(amount *big.Int) string {

	quo, rem := new(big.Int).QuoRem(amount, ctcSubunits, new(big.Int))

	if rem.Sign() == 0 {
		return fmt.Sprintf("%s CTC", quo)
	}

	frac := strings.TrimRight(fmt.Sprintf("%018s", rem), "0")

	return fmt.Sprintf("%s.%s CTC", quo, frac)
}
