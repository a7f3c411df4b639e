package utils

import (
	"math"
	"strings"
)

// minorUnitExponents lists currencies whose minor unit is not the usual
// two decimal places (ISO 4217).
var minorUnitExponents = map[string]int{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "MGA": 0, "PYG": 0, "RWF": 0, "UGX": 0, "VND": 0,
	"VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// MinorUnits converts a decimal amount to the currency's smallest unit,
// e.g. 12.50 USD -> 1250, 1200 JPY -> 1200.
func MinorUnits(amount float64, currency string) int64 {
	exp, ok := minorUnitExponents[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	return int64(math.Round(amount * math.Pow10(exp)))
}

// FromMinorUnits converts a smallest-unit amount back to its decimal form.
func FromMinorUnits(minor int64, currency string) float64 {
	exp, ok := minorUnitExponents[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	return float64(minor) / math.Pow10(exp)
}
