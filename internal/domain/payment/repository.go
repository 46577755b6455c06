package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create inserts a new payment and assigns its internal ID.
	Create(ctx context.Context, payment *Payment) error

	// GetByID retrieves a payment by internal ID
	GetByID(ctx context.Context, id int64) (*Payment, error)

	// GetByExternalID retrieves a payment by its externally-visible ID
	GetByExternalID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// UpdateStatus persists the payment's status and decision reason.
	UpdateStatus(ctx context.Context, payment *Payment) error
}
