package shopper

// Shopper is an account holder whose balance is debited by successful payments.
// Shoppers are loaded from seed data at startup; the core never creates or
// destroys them, and mutates the balance only through Repository.Debit.
type Shopper struct {
	ID           int64
	Name         string
	Description  string
	Currency     string
	BalanceCents int64
}

// Card is a payment credential. It carries no lifecycle of its own: it is a
// lookup key matched field-by-field against the pre-provisioned cards.
type Card struct {
	Number      string
	Name        string
	ExpireMonth int
	ExpireYear  int
	CVV         int
}
