package testutil

import (
	"time"

	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/google/uuid"
)

func NewTestShopper(id int64, balanceCents int64, currency string) *shopper.Shopper {
	return &shopper.Shopper{
		ID:           id,
		Name:         "Test Shopper",
		Description:  "fixture",
		Currency:     currency,
		BalanceCents: balanceCents,
	}
}

func NewTestCard() shopper.Card {
	return shopper.Card{
		Number:      "4111111111111111",
		Name:        "Test Shopper",
		ExpireMonth: 12,
		ExpireYear:  2030,
		CVV:         123,
	}
}

func NewPendingPayment(id int64, shopperID int64, cardID int64, amountCents int64, merchant string) *payment.Payment {
	now := time.Now()
	return &payment.Payment{
		ID:               id,
		ExternalID:       uuid.New(),
		AmountCents:      amountCents,
		PurchaseTime:     now,
		ValidationMethod: "3ds",
		CardID:           cardID,
		Merchant:         merchant,
		ShopperID:        shopperID,
		Status:           payment.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func NewFinalizedPayment(id int64, shopperID int64, cardID int64, amountCents int64, merchant string, succeeded bool, reason string) *payment.Payment {
	p := NewPendingPayment(id, shopperID, cardID, amountCents, merchant)
	if succeeded {
		p.Status = payment.StatusSucceeded
	} else {
		p.Status = payment.StatusFailed
	}
	p.DecisionReason = &reason
	finalizedAt := time.Now()
	p.FinalizedAt = &finalizedAt
	return p
}
