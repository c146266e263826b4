package types

import "math/big"

// twoPow returns 2^width, or 2^width - 1 when inclusive is true, as a
// decimal string. Widths run up to 256 bits so this must use big.Int
// rather than a machine integer.
func twoPow(width int, inclusive bool) string {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width))
	if inclusive {
		v.Sub(v, big.NewInt(1))
	}
	return v.String()
}

// negTwoPow returns -(2^width) as a decimal string, used for the lower
// bound of a signed integer type.
func negTwoPow(width int) string {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width))
	v.Neg(v)
	return v.String()
}
