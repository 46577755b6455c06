package shopper

import "context"

// Repository defines the ledger-store operations for shoppers, cards and
// authorization lists. Lookups that find nothing return the corresponding
// sentinel from the errors package; that is a normal outcome, not a fault.
type Repository interface {
	// LookupCard resolves a card credential to its internal ID by exact match
	// of all fields. Returns errors.ErrCardNotFound when no card matches.
	LookupCard(ctx context.Context, card Card) (int64, error)

	// GetByID retrieves a shopper by ID.
	GetByID(ctx context.Context, id int64) (*Shopper, error)

	// GetByCard retrieves the shopper that owns the given card.
	GetByCard(ctx context.Context, cardID int64) (*Shopper, error)

	// ApprovedMerchants returns the set of merchant names the shopper has
	// pre-authorized for automatic approval.
	ApprovedMerchants(ctx context.Context, shopperID int64) (map[string]struct{}, error)

	// Debit decreases the shopper's balance by amountCents. The store rejects
	// the debit with errors.ErrInsufficientBalance when it would overdraw the
	// balance; callers hold the shopper lock, so hitting that guard indicates
	// a concurrency bug upstream.
	Debit(ctx context.Context, shopperID int64, amountCents int64) error

	// Seed-time inserts. Used only by the seed loader, never by the core.
	CreateShopper(ctx context.Context, s *Shopper) error
	CreateCard(ctx context.Context, shopperID int64, card Card) (int64, error)
	AddApprovedMerchant(ctx context.Context, shopperID int64, merchant string) error
}
