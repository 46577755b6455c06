package controller

import (
	"time"

	"github.com/cassiomorais/banksim/internal/domain/money"
	"github.com/cassiomorais/banksim/internal/domain/payment"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, validation tags).
// Controllers convert these to application layer types before calling
// business logic.

// CardRequest is the card credential as merchants submit it.
type CardRequest struct {
	Number      string `json:"number" validate:"required"`
	Name        string `json:"name" validate:"required"`
	ExpireMonth int    `json:"expire_month" validate:"required,min=1,max=12"`
	ExpireYear  int    `json:"expire_year" validate:"required"`
	CVV         int    `json:"cvv" validate:"required"`
}

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	Amount           float64     `json:"amount" validate:"required,gt=0"`
	Currency         string      `json:"currency" validate:"required"`
	PurchaseTime     time.Time   `json:"purchase_time" validate:"required"`
	ValidationMethod string      `json:"validation_method"`
	Card             CardRequest `json:"card" validate:"required"`
	Merchant         string      `json:"merchant" validate:"required"`
}

// AcknowledgeRequest is the body of an inbound confirmation callback.
type AcknowledgeRequest struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// --- Response DTOs ---

// CreatePaymentResponse is returned for every create attempt, success or not.
// The id is the externally-visible UUID; it is empty when nothing was created.
type CreatePaymentResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AcknowledgeResponse confirms receipt of a confirmation callback.
type AcknowledgeResponse struct {
	Acknowledge bool `json:"acknowledge"`
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID               string     `json:"id"`
	Amount           float64    `json:"amount"`
	PurchaseTime     time.Time  `json:"purchase_time"`
	ValidationMethod string     `json:"validation_method"`
	Merchant         string     `json:"merchant"`
	Status           string     `json:"status"`
	DecisionReason   *string    `json:"decision_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromPayment converts a domain payment to API response.
func FromPayment(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:               p.ExternalID.String(),
		Amount:           money.FromCents(p.AmountCents),
		PurchaseTime:     p.PurchaseTime,
		ValidationMethod: p.ValidationMethod,
		Merchant:         p.Merchant,
		Status:           string(p.Status),
		DecisionReason:   p.DecisionReason,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		FinalizedAt:      p.FinalizedAt,
	}
}
