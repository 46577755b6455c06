package payment

import (
	"context"
	"fmt"

	"github.com/cassiomorais/banksim/internal/domain/authorization"
	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
)

// reasonNotAcknowledged is recorded when the local decision approved the
// payment but the remote party did not acknowledge the confirmation call.
const reasonNotAcknowledged = "confirmation not acknowledged"

// reasonCommitFailed is recorded when the success transaction could not be
// committed. The debit rolled back with it, so failing is balance-consistent.
const reasonCommitFailed = "could not complete payment"

// FinalizePaymentUseCase carries a pending payment to its terminal state. It
// runs independently of the request that created the payment and always ends
// with the payment succeeded or failed.
type FinalizePaymentUseCase struct {
	paymentRepo payment.Repository
	shopperRepo shopper.Repository
	txManager   TransactionManager
	confirmer   Confirmer
	locker      ShopperLocker
}

// NewFinalizePaymentUseCase creates a new FinalizePaymentUseCase.
func NewFinalizePaymentUseCase(
	paymentRepo payment.Repository,
	shopperRepo shopper.Repository,
	txManager TransactionManager,
	confirmer Confirmer,
	locker ShopperLocker,
) *FinalizePaymentUseCase {
	return &FinalizePaymentUseCase{
		paymentRepo: paymentRepo,
		shopperRepo: shopperRepo,
		txManager:   txManager,
		confirmer:   confirmer,
		locker:      locker,
	}
}

// Execute finalizes a single payment. The shopper lock is held from the
// balance read that feeds the decision until the debit that commits it, so
// concurrent finalizations against the same shopper cannot lose updates. A
// payment succeeds only when the evaluator approved AND the remote party
// acknowledged; every other combination fails with no balance change.
func (uc *FinalizePaymentUseCase) Execute(ctx context.Context, paymentID int64, callbackHost string) (*payment.Payment, error) {
	p, err := uc.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	// A duplicate schedule is a bug, not a condition to paper over.
	if p.IsTerminal() {
		return p, domainErrors.NewDomainError(
			"payment_finalized",
			"finalize called twice for payment "+p.ExternalID.String(),
			domainErrors.ErrPaymentFinalized,
		)
	}
	if p.Status != payment.StatusPending {
		return p, domainErrors.NewDomainError(
			"invalid_transition",
			"finalize called for payment "+p.ExternalID.String()+" in state "+string(p.Status),
			domainErrors.ErrInvalidStateTransition,
		)
	}

	unlock, err := uc.locker.Lock(ctx, p.ShopperID)
	if err != nil {
		// Without the lock no balance-consistent decision is possible. The
		// payment still reaches a terminal state; the balance is untouched.
		if failErr := uc.fail(ctx, p, "could not acquire shopper lock"); failErr != nil {
			return p, failErr
		}
		return p, fmt.Errorf("lock shopper %d: %w", p.ShopperID, err)
	}
	defer unlock()

	// Fresh reads under the lock: balances may have changed since creation.
	sh, err := uc.shopperRepo.GetByID(ctx, p.ShopperID)
	if err != nil {
		return p, fmt.Errorf("load shopper: %w", err)
	}
	approvedMerchants, err := uc.shopperRepo.ApprovedMerchants(ctx, p.ShopperID)
	if err != nil {
		return p, fmt.Errorf("load approved merchants: %w", err)
	}

	approved, reason := authorization.Evaluate(sh.BalanceCents, p.AmountCents, p.Merchant, approvedMerchants)

	// The outcome is reported to the caller whether approved or declined.
	acknowledged := uc.confirmer.Notify(ctx, p.ExternalID, approved, reason, callbackHost)

	if approved && acknowledged {
		// The success transition is applied to a copy so that a failed
		// commit leaves the in-memory payment pending and free to fail.
		succeeded := *p
		err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := uc.shopperRepo.Debit(txCtx, sh.ID, p.AmountCents); err != nil {
				return err
			}
			if err := succeeded.MarkSucceeded(reason); err != nil {
				return err
			}
			return uc.paymentRepo.UpdateStatus(txCtx, &succeeded)
		})
		if err == nil {
			*p = succeeded
			return p, nil
		}
		// The debit rolled back with the transaction. Failing here keeps
		// the payment out of a permanent pending state.
		if failErr := uc.fail(ctx, p, reasonCommitFailed); failErr != nil {
			return p, failErr
		}
		return p, fmt.Errorf("commit success for payment %s: %w", p.ExternalID, err)
	}

	if approved && !acknowledged {
		reason = reasonNotAcknowledged
	}
	if err := uc.fail(ctx, p, reason); err != nil {
		return p, err
	}
	return p, nil
}

func (uc *FinalizePaymentUseCase) fail(ctx context.Context, p *payment.Payment, reason string) error {
	if err := p.MarkFailed(reason); err != nil {
		return err
	}
	return uc.paymentRepo.UpdateStatus(ctx, p)
}
