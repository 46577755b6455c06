package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShopperRepository implements shopper.Repository using PostgreSQL.
type ShopperRepository struct {
	pool *pgxpool.Pool
}

// NewShopperRepository creates a new ShopperRepository.
func NewShopperRepository(pool *pgxpool.Pool) *ShopperRepository {
	return &ShopperRepository{pool: pool}
}

func (r *ShopperRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// LookupCard resolves a card credential by exact match of all fields.
func (r *ShopperRepository) LookupCard(ctx context.Context, card shopper.Card) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id FROM cards
		 WHERE number = $1 AND name = $2 AND expire_month = $3 AND expire_year = $4 AND cvv = $5`,
		card.Number, card.Name, card.ExpireMonth, card.ExpireYear, card.CVV,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrCardNotFound
		}
		return 0, fmt.Errorf("lookup card: %w", err)
	}
	return id, nil
}

// GetByID retrieves a shopper by ID.
func (r *ShopperRepository) GetByID(ctx context.Context, id int64) (*shopper.Shopper, error) {
	return r.scanShopper(r.db(ctx).QueryRow(ctx,
		`SELECT id, name, description, currency, balance FROM shoppers WHERE id = $1`, id))
}

// GetByCard retrieves the shopper that owns the given card.
func (r *ShopperRepository) GetByCard(ctx context.Context, cardID int64) (*shopper.Shopper, error) {
	return r.scanShopper(r.db(ctx).QueryRow(ctx,
		`SELECT s.id, s.name, s.description, s.currency, s.balance
		 FROM shoppers s JOIN cards c ON c.shopper_id = s.id
		 WHERE c.id = $1`, cardID))
}

// ApprovedMerchants returns the shopper's pre-authorized merchant set.
func (r *ShopperRepository) ApprovedMerchants(ctx context.Context, shopperID int64) (map[string]struct{}, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT merchant FROM auto_approve_merchants WHERE shopper_id = $1`, shopperID)
	if err != nil {
		return nil, fmt.Errorf("list approved merchants: %w", err)
	}
	defer rows.Close()

	merchants := make(map[string]struct{})
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		merchants[m] = struct{}{}
	}
	return merchants, rows.Err()
}

// Debit decreases the shopper's balance. The balance guard in the WHERE
// clause refuses an overdraw even if a caller got here without the lock.
func (r *ShopperRepository) Debit(ctx context.Context, shopperID int64, amountCents int64) error {
	amount := centsToNumericString(amountCents)
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE shoppers SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		amount, shopperID)
	if err != nil {
		return fmt.Errorf("debit shopper: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, shopperID)
		if err != nil {
			return err
		}
		if !exists {
			return domainErrors.ErrShopperNotFound
		}
		return domainErrors.ErrInsufficientBalance
	}
	return nil
}

// CreateShopper inserts a shopper and assigns its ID. Seed-time only.
func (r *ShopperRepository) CreateShopper(ctx context.Context, s *shopper.Shopper) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO shoppers (name, description, currency, balance)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Name, s.Description, s.Currency, centsToNumericString(s.BalanceCents),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert shopper: %w", err)
	}
	return nil
}

// CreateCard inserts a card for a shopper. Seed-time only.
func (r *ShopperRepository) CreateCard(ctx context.Context, shopperID int64, card shopper.Card) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO cards (number, name, expire_month, expire_year, cvv, shopper_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		card.Number, card.Name, card.ExpireMonth, card.ExpireYear, card.CVV, shopperID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return id, nil
}

// AddApprovedMerchant whitelists a merchant for a shopper. Seed-time only.
func (r *ShopperRepository) AddApprovedMerchant(ctx context.Context, shopperID int64, merchant string) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO auto_approve_merchants (merchant, shopper_id) VALUES ($1, $2)`,
		merchant, shopperID)
	if err != nil {
		return fmt.Errorf("insert approved merchant: %w", err)
	}
	return nil
}

func (r *ShopperRepository) exists(ctx context.Context, shopperID int64) (bool, error) {
	var one int
	err := r.db(ctx).QueryRow(ctx, `SELECT 1 FROM shoppers WHERE id = $1`, shopperID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check shopper: %w", err)
	}
	return true, nil
}

func (r *ShopperRepository) scanShopper(row pgx.Row) (*shopper.Shopper, error) {
	s := &shopper.Shopper{}
	var balanceStr string
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Currency, &balanceStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrShopperNotFound
		}
		return nil, fmt.Errorf("scan shopper: %w", err)
	}

	cents, err := numericStringToCents(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	s.BalanceCents = cents
	return s, nil
}
