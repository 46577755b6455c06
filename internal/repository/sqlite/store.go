// Package sqlite implements the ledger store on an in-memory SQLite database.
// It is the simulator's default backend: the whole ledger lives for the
// lifetime of the process and is rebuilt from the seed file on every start.
// Balances and amounts are stored as integer cents, so arithmetic is exact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS shoppers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    currency    TEXT NOT NULL,
    balance     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cards (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    number       TEXT NOT NULL,
    name         TEXT NOT NULL,
    expire_month INTEGER NOT NULL,
    expire_year  INTEGER NOT NULL,
    cvv          INTEGER NOT NULL,
    shopper_id   INTEGER NOT NULL REFERENCES shoppers(id)
);

CREATE TABLE IF NOT EXISTS payments (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id       TEXT NOT NULL UNIQUE,
    amount            INTEGER NOT NULL,
    purchase_time     TEXT NOT NULL,
    validation_method TEXT NOT NULL DEFAULT '',
    card_id           INTEGER NOT NULL REFERENCES cards(id),
    merchant          TEXT NOT NULL,
    shopper_id        INTEGER NOT NULL REFERENCES shoppers(id),
    status            TEXT NOT NULL,
    decision_reason   TEXT,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL,
    finalized_at      TEXT
);

CREATE TABLE IF NOT EXISTS auto_approve_merchants (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    merchant   TEXT NOT NULL,
    shopper_id INTEGER NOT NULL REFERENCES shoppers(id)
);
`

// Store owns the database handle and transaction plumbing. The repository
// facades returned by Shoppers and Payments share it.
type Store struct {
	db *sql.DB
}

// Open creates an in-memory store with the schema applied.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A :memory: database exists per connection; the pool must stay at one.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Shoppers returns the shopper repository backed by this store.
func (s *Store) Shoppers() *ShopperRepository {
	return &ShopperRepository{store: s}
}

// Payments returns the payment repository backed by this store.
func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{store: s}
}

// --- transaction management ---

type ctxKey int

const txKey ctxKey = iota

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTransaction executes fn inside a database transaction, committing on
// nil and rolling back otherwise.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed (%v) after error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// ShopperRepository implements shopper.Repository over the store.
type ShopperRepository struct {
	store *Store
}

func (r *ShopperRepository) LookupCard(ctx context.Context, card shopper.Card) (int64, error) {
	var id int64
	err := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT id FROM cards
		 WHERE number = ? AND name = ? AND expire_month = ? AND expire_year = ? AND cvv = ?`,
		card.Number, card.Name, card.ExpireMonth, card.ExpireYear, card.CVV,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domainErrors.ErrCardNotFound
		}
		return 0, fmt.Errorf("lookup card: %w", err)
	}
	return id, nil
}

func (r *ShopperRepository) GetByID(ctx context.Context, id int64) (*shopper.Shopper, error) {
	return scanShopper(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, description, currency, balance FROM shoppers WHERE id = ?`, id))
}

func (r *ShopperRepository) GetByCard(ctx context.Context, cardID int64) (*shopper.Shopper, error) {
	return scanShopper(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT s.id, s.name, s.description, s.currency, s.balance
		 FROM shoppers s JOIN cards c ON c.shopper_id = s.id
		 WHERE c.id = ?`, cardID))
}

func (r *ShopperRepository) ApprovedMerchants(ctx context.Context, shopperID int64) (map[string]struct{}, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT merchant FROM auto_approve_merchants WHERE shopper_id = ?`, shopperID)
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

func (r *ShopperRepository) Debit(ctx context.Context, shopperID int64, amountCents int64) error {
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`UPDATE shoppers SET balance = balance - ? WHERE id = ? AND balance >= ?`,
		amountCents, shopperID, amountCents)
	if err != nil {
		return fmt.Errorf("debit shopper: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit shopper: %w", err)
	}
	if affected == 0 {
		var one int
		err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM shoppers WHERE id = ?`, shopperID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domainErrors.ErrShopperNotFound
		}
		if err != nil {
			return fmt.Errorf("check shopper: %w", err)
		}
		return domainErrors.ErrInsufficientBalance
	}
	return nil
}

func (r *ShopperRepository) CreateShopper(ctx context.Context, sh *shopper.Shopper) error {
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO shoppers (name, description, currency, balance) VALUES (?, ?, ?, ?)`,
		sh.Name, sh.Description, sh.Currency, sh.BalanceCents)
	if err != nil {
		return fmt.Errorf("insert shopper: %w", err)
	}
	sh.ID, err = res.LastInsertId()
	return err
}

func (r *ShopperRepository) CreateCard(ctx context.Context, shopperID int64, card shopper.Card) (int64, error) {
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO cards (number, name, expire_month, expire_year, cvv, shopper_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		card.Number, card.Name, card.ExpireMonth, card.ExpireYear, card.CVV, shopperID)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return res.LastInsertId()
}

func (r *ShopperRepository) AddApprovedMerchant(ctx context.Context, shopperID int64, merchant string) error {
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO auto_approve_merchants (merchant, shopper_id) VALUES (?, ?)`,
		merchant, shopperID)
	if err != nil {
		return fmt.Errorf("insert approved merchant: %w", err)
	}
	return nil
}

// PaymentRepository implements payment.Repository over the store.
type PaymentRepository struct {
	store *Store
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO payments
		 (external_id, amount, purchase_time, validation_method, card_id,
		  merchant, shopper_id, status, decision_reason, created_at, updated_at, finalized_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ExternalID.String(), p.AmountCents, formatTime(p.PurchaseTime), p.ValidationMethod, p.CardID,
		p.Merchant, p.ShopperID, string(p.Status), p.DecisionReason,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), formatTimePtr(p.FinalizedAt))
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	return scanPayment(r.store.conn(ctx).QueryRowContext(ctx,
		selectPayment+` WHERE id = ?`, id))
}

func (r *PaymentRepository) GetByExternalID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return scanPayment(r.store.conn(ctx).QueryRowContext(ctx,
		selectPayment+` WHERE external_id = ?`, id.String()))
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`UPDATE payments SET status = ?, decision_reason = ?, updated_at = ?, finalized_at = ?
		 WHERE id = ?`,
		string(p.Status), p.DecisionReason, formatTime(p.UpdatedAt), formatTimePtr(p.FinalizedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if affected == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

const selectPayment = `SELECT id, external_id, amount, purchase_time, validation_method, card_id,
         merchant, shopper_id, status, decision_reason, created_at, updated_at, finalized_at
  FROM payments`

// --- scanning helpers ---

func scanShopper(row *sql.Row) (*shopper.Shopper, error) {
	s := &shopper.Shopper{}
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Currency, &s.BalanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrShopperNotFound
		}
		return nil, fmt.Errorf("scan shopper: %w", err)
	}
	return s, nil
}

func scanPayment(row *sql.Row) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		externalID   string
		status       string
		purchaseTime string
		createdAt    string
		updatedAt    string
		finalizedAt  sql.NullString
		reason       sql.NullString
	)
	err := row.Scan(
		&p.ID, &externalID, &p.AmountCents, &purchaseTime, &p.ValidationMethod, &p.CardID,
		&p.Merchant, &p.ShopperID, &status, &reason, &createdAt, &updatedAt, &finalizedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.ExternalID, err = uuid.Parse(externalID)
	if err != nil {
		return nil, fmt.Errorf("parse external id: %w", err)
	}
	p.Status = payment.Status(status)
	if reason.Valid {
		p.DecisionReason = &reason.String
	}
	if p.PurchaseTime, err = parseTime(purchaseTime); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if finalizedAt.Valid {
		t, err := parseTime(finalizedAt.String)
		if err != nil {
			return nil, err
		}
		p.FinalizedAt = &t
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
