// Package normalize implements the two canonicalization primitives the
// reconciliation engine depends on: parsing Brazilian-formatted monetary
// strings and reducing heterogeneous document references to a canonical
// matching key.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a monetary string in the Brazilian convention
// (thousands separator '.', decimal separator ',') into a decimal amount.
// Example: "1.574,00" -> 1574.00.
//
// The convention is fixed; no attempt is made to detect the locale of the
// input. A value that cannot be parsed returns an error, which callers must
// treat as "drop this entry", never as a fatal failure.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}

	return amount, nil
}
