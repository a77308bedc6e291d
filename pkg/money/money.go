// Package money handles amounts in minor currency units. Arithmetic stays in
// int64; shopspring/decimal is only used to render amounts for humans.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// exponents maps ISO 4217 codes to their number of minor-unit digits.
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"AUD": 2,
	"CAD": 2,
	"SGD": 2,
	"HKD": 2,
	"TWD": 2,
	"THB": 2,
	"CNY": 2,
	"KWD": 3,
	"BHD": 3,
}

// NormalizeCurrency upper-cases code and reports whether it is supported.
func NormalizeCurrency(code string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	_, ok := exponents[c]
	return c, ok
}

func Exponent(code string) (int32, error) {
	exp, ok := exponents[strings.ToUpper(code)]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", code)
	}
	return exp, nil
}

// Format renders minor units as a fixed-point string, e.g. 5000 USD -> "50.00".
func Format(amountMinor int64, code string) (string, error) {
	exp, err := Exponent(code)
	if err != nil {
		return "", err
	}
	return decimal.New(amountMinor, -exp).StringFixed(exp), nil
}

// MulDivFloor returns floor(amount * num / den) for non-negative inputs without
// overflowing int64 on the intermediate product.
func MulDivFloor(amount, num, den int64) int64 {
	if den == 0 {
		panic("money: division by zero")
	}
	q, r := amount/den, amount%den
	return q*num + (r*num)/den
}
