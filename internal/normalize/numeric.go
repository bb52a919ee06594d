package normalize

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

var (
	prorateCleaner = strings.NewReplacer(",", "", "₹", "", "INR", "")
	totalCleaner   = strings.NewReplacer(",", "", "₹", "", "INR", "", "USD", "")
)

// Round2 rounds half to even on the exact binary value, matching spreadsheet-facing output.
func Round2(f float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return r
}

// CleanFloat coerces an amount cell to a number. Falsy or unparsable values yield 0.
func CleanFloat(v invoice.Value) float64 {
	if !v.Truthy() {
		return 0
	}
	if f, ok := v.Float(); ok {
		return f
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(totalCleaner.Replace(v.String())), 64)
	if err != nil {
		return 0
	}
	return f
}

// SafeDivide splits an amount across divisor units, rounded to 2 decimals.
// A divisor <= 1 or an unparsable value returns v unchanged.
func SafeDivide(v invoice.Value, divisor float64) invoice.Value {
	if divisor <= 1 {
		return v
	}
	f, ok := v.Float()
	if !ok {
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(prorateCleaner.Replace(v.String())), 64)
		if err != nil {
			return v
		}
	}
	return invoice.Number(Round2(f / divisor))
}
