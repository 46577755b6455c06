package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	paymentApp "github.com/cassiomorais/banksim/internal/application/payment"
	"github.com/cassiomorais/banksim/internal/domain/authorization"
	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/locking"
	"github.com/cassiomorais/banksim/internal/testutil"
	"github.com/google/uuid"
)

type finalizeFixture struct {
	paymentRepo *testutil.MockPaymentRepository
	shopperRepo *testutil.MockShopperRepository
	txManager   *testutil.MockTxManager
	confirmer   *testutil.MockConfirmer
	uc          *paymentApp.FinalizePaymentUseCase
}

func newFinalizeFixture(t *testing.T) *finalizeFixture {
	t.Helper()
	f := &finalizeFixture{
		paymentRepo: testutil.NewMockPaymentRepository(),
		shopperRepo: testutil.NewMockShopperRepository(),
		txManager:   &testutil.MockTxManager{},
		confirmer:   &testutil.MockConfirmer{},
	}
	f.uc = paymentApp.NewFinalizePaymentUseCase(
		f.paymentRepo, f.shopperRepo, f.txManager, f.confirmer, locking.NewLocalLocker(),
	)
	return f
}

// seedPending creates a shopper with the given balance and whitelist, plus a
// pending payment against it.
func (f *finalizeFixture) seedPending(t *testing.T, balanceCents, amountCents int64, merchant string, whitelist ...string) *payment.Payment {
	t.Helper()
	ctx := context.Background()

	sh := testutil.NewTestShopper(0, balanceCents, "EUR")
	if err := f.shopperRepo.CreateShopper(ctx, sh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cardID, err := f.shopperRepo.CreateCard(ctx, sh.ID, testutil.NewTestCard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range whitelist {
		if err := f.shopperRepo.AddApprovedMerchant(ctx, sh.ID, m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	p := testutil.NewPendingPayment(0, sh.ID, cardID, amountCents, merchant)
	p.ID = 0
	if err := f.paymentRepo.Create(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func (f *finalizeFixture) balance(t *testing.T, shopperID int64) int64 {
	t.Helper()
	sh, err := f.shopperRepo.GetByID(context.Background(), shopperID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sh.BalanceCents
}

func TestFinalizePayment_ApprovedAndAcknowledged(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	got, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != payment.StatusSucceeded {
		t.Errorf("expected status succeeded, got %s", got.Status)
	}
	if got.DecisionReason == nil || *got.DecisionReason != authorization.ReasonSuccess {
		t.Errorf("expected reason %q, got %v", authorization.ReasonSuccess, got.DecisionReason)
	}
	if balance := f.balance(t, p.ShopperID); balance != 50_00 {
		t.Errorf("expected balance 5000 after debit, got %d", balance)
	}

	calls := f.confirmer.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 confirmation, got %d", len(calls))
	}
	if !calls[0].Approved || calls[0].Reason != authorization.ReasonSuccess {
		t.Errorf("unexpected confirmation: %+v", calls[0])
	}
	if calls[0].Host != "127.0.0.1" {
		t.Errorf("expected callback host 127.0.0.1, got %s", calls[0].Host)
	}
}

func TestFinalizePayment_InsufficientBalance(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 10_00, 50_00, "bol.com", "bol.com")

	got, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.DecisionReason == nil || *got.DecisionReason != authorization.ReasonNotEnoughBalance {
		t.Errorf("expected reason %q, got %v", authorization.ReasonNotEnoughBalance, got.DecisionReason)
	}
	if balance := f.balance(t, p.ShopperID); balance != 10_00 {
		t.Errorf("expected balance untouched, got %d", balance)
	}

	calls := f.confirmer.Calls()
	if len(calls) != 1 || calls[0].Approved {
		t.Errorf("expected one declined confirmation, got %+v", calls)
	}
}

func TestFinalizePayment_MerchantUnauthorized(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "webshop.io", "bol.com")

	got, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.DecisionReason == nil || *got.DecisionReason != authorization.ReasonMerchantUnauthorized {
		t.Errorf("expected reason %q, got %v", authorization.ReasonMerchantUnauthorized, got.DecisionReason)
	}
	if balance := f.balance(t, p.ShopperID); balance != 100_00 {
		t.Errorf("expected balance untouched, got %d", balance)
	}
}

func TestFinalizePayment_ApprovedButNotAcknowledged(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	f.confirmer.NotifyFunc = func(_ context.Context, _ uuid.UUID, _ bool, _ string, _ string) bool {
		return false
	}

	got, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.DecisionReason == nil || *got.DecisionReason != "confirmation not acknowledged" {
		t.Errorf("expected not-acknowledged reason, got %v", got.DecisionReason)
	}
	if balance := f.balance(t, p.ShopperID); balance != 100_00 {
		t.Errorf("expected no debit without acknowledgement, got %d", balance)
	}
}

func TestFinalizePayment_AlreadyFinalized(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	if _, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if !errors.Is(err, domainErrors.ErrPaymentFinalized) {
		t.Errorf("expected ErrPaymentFinalized, got %v", err)
	}

	if len(f.confirmer.Calls()) != 1 {
		t.Errorf("expected no second confirmation, got %d", len(f.confirmer.Calls()))
	}
	if balance := f.balance(t, p.ShopperID); balance != 50_00 {
		t.Errorf("expected a single debit, got balance %d", balance)
	}
}

func TestFinalizePayment_CreatedPaymentRejected(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	// Force the stored payment back to created.
	f.paymentRepo.GetByIDFunc = func(_ context.Context, id int64) (*payment.Payment, error) {
		cp := *p
		cp.Status = payment.StatusCreated
		return &cp, nil
	}

	_, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestFinalizePayment_LockFailureFailsPayment(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	f.uc = paymentApp.NewFinalizePaymentUseCase(
		f.paymentRepo, f.shopperRepo, f.txManager, f.confirmer,
		failingLocker{},
	)

	_, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if !errors.Is(err, domainErrors.ErrLockAcquisitionFailed) {
		t.Errorf("expected ErrLockAcquisitionFailed, got %v", err)
	}

	stored, getErr := f.paymentRepo.GetByID(context.Background(), p.ID)
	if getErr != nil {
		t.Fatalf("unexpected error: %v", getErr)
	}
	if stored.Status != payment.StatusFailed {
		t.Errorf("expected payment failed after lock failure, got %s", stored.Status)
	}
	if len(f.confirmer.Calls()) != 0 {
		t.Error("expected no confirmation without a lock")
	}
	if balance := f.balance(t, p.ShopperID); balance != 100_00 {
		t.Errorf("expected balance untouched, got %d", balance)
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, int64) (func(), error) {
	return nil, domainErrors.ErrLockAcquisitionFailed
}

// Concurrent finalizations against the same shopper must not lose balance
// updates: with a real locker every debit happens against the balance the
// previous one left behind.
func TestFinalizePayment_ConcurrentSameShopper(t *testing.T) {
	f := newFinalizeFixture(t)
	ctx := context.Background()

	sh := testutil.NewTestShopper(0, 100_00, "EUR")
	if err := f.shopperRepo.CreateShopper(ctx, sh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cardID, err := f.shopperRepo.CreateCard(ctx, sh.ID, testutil.NewTestCard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.shopperRepo.AddApprovedMerchant(ctx, sh.ID, "bol.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers = 5
	ids := make([]int64, 0, workers)
	for i := 0; i < workers; i++ {
		p := testutil.NewPendingPayment(0, sh.ID, cardID, 30_00, "bol.com")
		p.ID = 0
		if err := f.paymentRepo.Create(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, p.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := f.uc.Execute(ctx, id, "127.0.0.1"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	var succeeded int
	for _, id := range ids {
		p, err := f.paymentRepo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status == payment.StatusSucceeded {
			succeeded++
		} else if p.DecisionReason == nil || *p.DecisionReason != authorization.ReasonNotEnoughBalance {
			t.Errorf("expected declined payment to report balance, got %v", p.DecisionReason)
		}
	}

	// 100.00 funds only three 30.00 payments.
	if succeeded != 3 {
		t.Errorf("expected 3 successes, got %d", succeeded)
	}
	if balance := f.balance(t, sh.ID); balance != 10_00 {
		t.Errorf("expected final balance 1000, got %d", balance)
	}
}

func TestFinalizePayment_CommitFailureStillFailsPayment(t *testing.T) {
	f := newFinalizeFixture(t)
	p := f.seedPending(t, 100_00, 50_00, "bol.com", "bol.com")

	f.txManager.WithTransactionFunc = func(_ context.Context, _ func(ctx context.Context) error) error {
		return errors.New("connection reset by peer")
	}

	got, err := f.uc.Execute(context.Background(), p.ID, "127.0.0.1")
	if err == nil {
		t.Fatal("expected commit error")
	}

	// The payment must not stay pending when the success write is lost.
	stored, storeErr := f.paymentRepo.GetByID(context.Background(), p.ID)
	if storeErr != nil {
		t.Fatalf("unexpected error: %v", storeErr)
	}
	if stored.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", stored.Status)
	}
	if stored.DecisionReason == nil || *stored.DecisionReason != "could not complete payment" {
		t.Errorf("unexpected reason: %v", stored.DecisionReason)
	}
	if got.Status != payment.StatusFailed {
		t.Errorf("expected returned payment failed, got %s", got.Status)
	}
	if balance := f.balance(t, p.ShopperID); balance != 100_00 {
		t.Errorf("expected untouched balance 10000, got %d", balance)
	}
}
