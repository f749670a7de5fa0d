package core

import (
	"fmt"
	"sort"
)

// BaseCurrency is the currency every amount is normalized to before display
// conversion. Rates are expressed relative to it.
const BaseCurrency = "GBP"

// Static conversion table. Rates are deliberately constant; fetching live
// rates is out of scope.
var currencyRates = map[string]float64{
	"GBP": 1.0,
	"USD": 1.25,
	"RMB": 9.2,
}

var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"RMB": "¥",
}

// Rate returns the conversion rate of code relative to the base currency.
// Unknown codes are rejected, never defaulted.
func Rate(code string) (float64, error) {
	rate, ok := currencyRates[code]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return rate, nil
}

// Symbol returns the display symbol for a currency code.
func Symbol(code string) (string, error) {
	sym, ok := currencySymbols[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return sym, nil
}

// Currencies returns the supported currency codes, sorted.
func Currencies() []string {
	codes := make([]string, 0, len(currencyRates))
	for code := range currencyRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ToBase converts an amount in the given currency to base-currency cents,
// half-up rounded.
func ToBase(m Money, code string) (Money, error) {
	rate, err := Rate(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: roundHalfUp(float64(m.Cents) / rate)}, nil
}

// FromBase converts base-currency cents to an amount in the given display
// currency, half-up rounded.
func FromBase(m Money, code string) (Money, error) {
	rate, err := Rate(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: roundHalfUp(float64(m.Cents) * rate)}, nil
}
