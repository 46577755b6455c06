package payment

import (
	"time"

	"github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Payment represents a payment authorization request against a shopper's balance.
// The internal ID is assigned by the store and never leaves the process; the
// ExternalID is the only identifier shared with the outside world.
type Payment struct {
	ID               int64
	ExternalID       uuid.UUID
	AmountCents      int64
	PurchaseTime     time.Time
	ValidationMethod string
	CardID           int64
	Merchant         string
	ShopperID        int64
	Status           Status
	DecisionReason   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FinalizedAt      *time.Time
}

// NewPayment creates a new payment in the created state.
func NewPayment(
	shopperID int64,
	cardID int64,
	amountCents int64,
	purchaseTime time.Time,
	validationMethod string,
	merchant string,
) (*Payment, error) {
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if merchant == "" {
		return nil, errors.NewValidationError("merchant", "cannot be empty")
	}

	now := time.Now()
	return &Payment{
		ExternalID:       uuid.New(),
		AmountCents:      amountCents,
		PurchaseTime:     purchaseTime,
		ValidationMethod: validationMethod,
		CardID:           cardID,
		Merchant:         merchant,
		ShopperID:        shopperID,
		Status:           StatusCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CanTransitionTo checks if the payment can transition to the given status
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusCreated: {
			StatusPending,
		},
		StatusPending: {
			StatusSucceeded,
			StatusFailed,
		},
		StatusSucceeded: {}, // Terminal state
		StatusFailed:    {}, // Terminal state
	}

	allowed, exists := transitions[p.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the payment to a new status. All status writes go
// through here so the forward-only invariant is enforced in one place.
func (p *Payment) TransitionTo(newStatus Status) error {
	if !p.CanTransitionTo(newStatus) {
		if p.IsTerminal() {
			return errors.NewDomainError(
				"payment_finalized",
				"payment "+p.ExternalID.String()+" is already "+string(p.Status),
				errors.ErrPaymentFinalized,
			)
		}
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	p.Status = newStatus
	p.UpdatedAt = time.Now()

	if newStatus == StatusSucceeded || newStatus == StatusFailed {
		now := time.Now()
		p.FinalizedAt = &now
	}

	return nil
}

// MarkPending transitions the payment to pending status
func (p *Payment) MarkPending() error {
	return p.TransitionTo(StatusPending)
}

// MarkSucceeded transitions the payment to its successful terminal state.
func (p *Payment) MarkSucceeded(reason string) error {
	if err := p.TransitionTo(StatusSucceeded); err != nil {
		return err
	}
	p.DecisionReason = &reason
	return nil
}

// MarkFailed transitions the payment to its failed terminal state.
func (p *Payment) MarkFailed(reason string) error {
	if err := p.TransitionTo(StatusFailed); err != nil {
		return err
	}
	p.DecisionReason = &reason
	return nil
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusSucceeded || p.Status == StatusFailed
}
