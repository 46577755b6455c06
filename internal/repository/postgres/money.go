package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cassiomorais/banksim/internal/domain/money"
)

// The shoppers.balance and payments.amount columns are NUMERIC(12,2); in Go
// both are int64 cents. These helpers convert at the SQL boundary, reusing
// the domain money rounding so the persisted value always matches what the
// evaluator and the debit see.

func numericStringToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric string")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}

	return money.ToCents(f), nil
}

func centsToNumericString(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
}
