package payment

import (
	"context"
	"time"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
)

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	AmountCents      int64
	Currency         string
	PurchaseTime     time.Time
	ValidationMethod string
	Card             shopper.Card
	Merchant         string
}

// CreatePaymentUseCase orchestrates the synchronous part of the payment
// lifecycle: credential resolution, shopper resolution, the currency check and
// the created -> pending transition. It runs entirely within the request that
// produced the creation response; on any failure no payment row exists.
type CreatePaymentUseCase struct {
	paymentRepo payment.Repository
	shopperRepo shopper.Repository
	txManager   TransactionManager
}

// NewCreatePaymentUseCase creates a new CreatePaymentUseCase.
func NewCreatePaymentUseCase(
	paymentRepo payment.Repository,
	shopperRepo shopper.Repository,
	txManager TransactionManager,
) *CreatePaymentUseCase {
	return &CreatePaymentUseCase{
		paymentRepo: paymentRepo,
		shopperRepo: shopperRepo,
		txManager:   txManager,
	}
}

// Execute creates a payment in the pending state, ready to be finalized.
func (uc *CreatePaymentUseCase) Execute(ctx context.Context, req CreatePaymentRequest) (*payment.Payment, error) {
	// 1. Resolve the card credential. A miss is a normal outcome.
	cardID, err := uc.shopperRepo.LookupCard(ctx, req.Card)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the shopper that owns the card.
	sh, err := uc.shopperRepo.GetByCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	// 3. The caller's declared currency must match the shopper's.
	if sh.Currency != req.Currency {
		return nil, domainErrors.ErrCurrencyMismatch
	}

	p, err := payment.NewPayment(
		sh.ID,
		cardID,
		req.AmountCents,
		req.PurchaseTime,
		req.ValidationMethod,
		req.Merchant,
	)
	if err != nil {
		return nil, err
	}

	// 4. Persist the created row and mark it pending in one transaction, so a
	// failure at either step leaves no record behind. Pending is committed
	// before the finalize step is scheduled; a crash between the two leaves an
	// observable non-terminal state rather than a stuck created row.
	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.paymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		if err := p.MarkPending(); err != nil {
			return err
		}
		return uc.paymentRepo.UpdateStatus(txCtx, p)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}
