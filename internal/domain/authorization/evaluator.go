// Package authorization holds the payment authorization decision logic.
package authorization

// Decision reasons reported to the calling party.
const (
	ReasonSuccess              = "success"
	ReasonNotEnoughBalance     = "not enough balance"
	ReasonMerchantUnauthorized = "merchant unauthorized"
)

// Evaluate decides whether a payment should be approved. The balance check
// takes precedence over the merchant whitelist. Amounts are fixed-precision
// cents, the same representation the ledger persists, so the comparison here
// is exactly the comparison the debit will make.
func Evaluate(balanceCents, amountCents int64, merchant string, approved map[string]struct{}) (bool, string) {
	if balanceCents < amountCents {
		return false, ReasonNotEnoughBalance
	}
	if _, ok := approved[merchant]; !ok {
		return false, ReasonMerchantUnauthorized
	}
	return true, ReasonSuccess
}
