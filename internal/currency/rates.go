package currency

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRates returns the embedded fallback FX table, used when no rates
// file is configured or the configured file cannot be read at startup.
// Values are units per USD.
func DefaultRates() Rates {
	return Rates{
		"EUR": 0.92,
		"GBP": 0.79,
		"JPY": 155.0,
		"CNY": 7.25,
		"KRW": 1380.0,
		"INR": 86.0,
		"CAD": 1.37,
		"AUD": 1.52,
		"CHF": 0.88,
		"HKD": 7.8,
	}
}

type ratesFile struct {
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRates reads an FX table from a YAML file of the form:
//
//	rates:
//	  EUR: 0.92
//	  JPY: 155.0
//
// Codes are upper-cased; non-positive rates are rejected rather than
// silently clamped.
func LoadRates(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rates file: %w", err)
	}

	var parsed ratesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rates file: %w", err)
	}

	rates := make(Rates, len(parsed.Rates))
	for code, rate := range parsed.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("invalid rate for %s: %v", code, rate)
		}
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}
