package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new payment and fills in its internal ID.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO payments
		 (external_id, amount, purchase_time, validation_method, card_id,
		  merchant, shopper_id, status, decision_reason, created_at, updated_at, finalized_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING id`,
		p.ExternalID, centsToNumericString(p.AmountCents), p.PurchaseTime, p.ValidationMethod, p.CardID,
		p.Merchant, p.ShopperID, string(p.Status), p.DecisionReason, p.CreatedAt, p.UpdatedAt, p.FinalizedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its internal ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		selectPayment+` WHERE id = $1`, id))
}

// GetByExternalID retrieves a payment by its externally-visible ID.
func (r *PaymentRepository) GetByExternalID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		selectPayment+` WHERE external_id = $1`, id))
}

// UpdateStatus persists the payment's status, decision reason and timestamps.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments SET status=$1, decision_reason=$2, updated_at=$3, finalized_at=$4
		 WHERE id=$5`,
		string(p.Status), p.DecisionReason, p.UpdatedAt, p.FinalizedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

const selectPayment = `SELECT id, external_id, amount, purchase_time, validation_method, card_id,
         merchant, shopper_id, status, decision_reason, created_at, updated_at, finalized_at
  FROM payments`

func (r *PaymentRepository) scanPayment(s scanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		amountStr string
		status    string
	)
	err := s.Scan(
		&p.ID, &p.ExternalID, &amountStr, &p.PurchaseTime, &p.ValidationMethod, &p.CardID,
		&p.Merchant, &p.ShopperID, &status, &p.DecisionReason, &p.CreatedAt, &p.UpdatedAt, &p.FinalizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	p.AmountCents = cents
	p.Status = payment.Status(status)
	return p, nil
}
