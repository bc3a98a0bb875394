// Package currency provides FX conversion to USD and the per-account display
// currency preference store.
package currency

import "strings"

// Rates maps an upper-case ISO currency code to units per US dollar.
type Rates map[string]float64

// Convert converts amount from the given currency to USD. It returns nil
// when the code is absent from the table or maps to a zero rate; a missing
// rate must surface as "unknown", never as a 1:1 conversion.
func Convert(rates Rates, amount float64, from string) *float64 {
	code := strings.ToUpper(strings.TrimSpace(from))
	if code == "" || code == "USD" {
		v := amount
		return &v
	}
	rate, ok := rates[code]
	if !ok || rate == 0 {
		return nil
	}
	v := amount / rate
	return &v
}
