// Package money converts between the decimal amounts spoken on the wire and
// the integer cents used everywhere inside the service. Every boundary that
// accepts a float must go through ToCents so a binary-inexact amount like
// 19.99 never loses a cent.
package money

import "math"

// ToCents converts a decimal amount to cents, rounding half away from zero.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts cents back to a decimal amount for responses.
func FromCents(cents int64) float64 {
	return float64(cents) / 100.0
}
