package erpsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds a monetary amount to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ComputeAmountTTC derives the tax-inclusive amount from a net amount and a
// VAT percentage: round2(amountHT * (1 + vatRate/100)).
func ComputeAmountTTC(amountHT, vatRate float64) float64 {
	ht := decimal.NewFromFloat(amountHT)
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(vatRate).Div(decimal.NewFromInt(100)))
	return ht.Mul(factor).Round(2).InexactFloat64()
}

// ParseAmount parses a user-entered amount, accepting both "250.50" and the
// French "250,50" form.
func ParseAmount(s string) (float64, error) {
	normalized := strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if normalized == "" {
		return 0, fmt.Errorf("montant vide")
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("montant invalide: %q", s)
	}
	return v, nil
}

// ValidatePurchaseForm checks the required purchase fields and parses the
// amount. Validation errors are local: nothing is sent to the backend until
// the form passes.
func ValidatePurchaseForm(vendor, date, amount string) (float64, error) {
	if strings.TrimSpace(vendor) == "" {
		return 0, fmt.Errorf("le fournisseur est obligatoire")
	}
	if strings.TrimSpace(date) == "" {
		return 0, fmt.Errorf("la date est obligatoire")
	}
	return ParseAmount(amount)
}
