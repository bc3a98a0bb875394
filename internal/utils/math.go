package utils

import "math"

// SafeDiv divides num by den, returning nil when den is zero or the result
// is not finite. Every ratio in the aggregation layer goes through this so
// divide-by-zero guards live in exactly one place.
func SafeDiv(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
