package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/cassiomorais/banksim/internal/repository/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedShopper(t *testing.T, store *sqlite.Store, balanceCents int64) (*shopper.Shopper, int64) {
	t.Helper()
	ctx := context.Background()

	sh := &shopper.Shopper{Name: "Alice", Currency: "EUR", BalanceCents: balanceCents}
	if err := store.Shoppers().CreateShopper(ctx, sh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cardID, err := store.Shoppers().CreateCard(ctx, sh.ID, shopper.Card{
		Number: "4111111111111111", Name: "Alice", ExpireMonth: 4, ExpireYear: 2028, CVV: 314,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sh, cardID
}

func TestShopperRepository_CardLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, cardID := seedShopper(t, store, 100_00)

	got, err := store.Shoppers().LookupCard(ctx, shopper.Card{
		Number: "4111111111111111", Name: "Alice", ExpireMonth: 4, ExpireYear: 2028, CVV: 314,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cardID {
		t.Errorf("expected card id %d, got %d", cardID, got)
	}

	owner, err := store.Shoppers().GetByCard(ctx, cardID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.ID != sh.ID {
		t.Errorf("expected shopper %d, got %d", sh.ID, owner.ID)
	}

	// Any field mismatch misses.
	_, err = store.Shoppers().LookupCard(ctx, shopper.Card{
		Number: "4111111111111111", Name: "Alice", ExpireMonth: 4, ExpireYear: 2028, CVV: 999,
	})
	if !errors.Is(err, domainErrors.ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestShopperRepository_Debit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, _ := seedShopper(t, store, 100_00)

	if err := store.Shoppers().Debit(ctx, sh.ID, 30_00); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Shoppers().GetByID(ctx, sh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BalanceCents != 70_00 {
		t.Errorf("expected balance 7000, got %d", got.BalanceCents)
	}

	// Overdraw is refused and the balance is untouched.
	err = store.Shoppers().Debit(ctx, sh.ID, 80_00)
	if !errors.Is(err, domainErrors.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	got, _ = store.Shoppers().GetByID(ctx, sh.ID)
	if got.BalanceCents != 70_00 {
		t.Errorf("expected balance unchanged, got %d", got.BalanceCents)
	}

	err = store.Shoppers().Debit(ctx, 999, 10_00)
	if !errors.Is(err, domainErrors.ErrShopperNotFound) {
		t.Errorf("expected ErrShopperNotFound, got %v", err)
	}
}

func TestShopperRepository_ApprovedMerchants(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, _ := seedShopper(t, store, 100_00)

	for _, m := range []string{"bol.com", "coolblue"} {
		if err := store.Shoppers().AddApprovedMerchant(ctx, sh.ID, m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	merchants, err := store.Shoppers().ApprovedMerchants(ctx, sh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merchants) != 2 {
		t.Errorf("expected 2 merchants, got %d", len(merchants))
	}
	if _, ok := merchants["bol.com"]; !ok {
		t.Error("expected bol.com in the set")
	}
}

func TestPaymentRepository_Lifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, cardID := seedShopper(t, store, 100_00)

	p, err := payment.NewPayment(sh.ID, cardID, 50_00, time.Now(), "3ds", "bol.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Payments().Create(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected internal id to be assigned")
	}

	byID, err := store.Payments().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byID.ExternalID != p.ExternalID || byID.AmountCents != 50_00 || byID.Status != payment.StatusCreated {
		t.Errorf("unexpected stored payment: %+v", byID)
	}

	byExternal, err := store.Payments().GetByExternalID(ctx, p.ExternalID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byExternal.ID != p.ID {
		t.Errorf("expected id %d, got %d", p.ID, byExternal.ID)
	}

	if err := p.MarkPending(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.MarkFailed("not enough balance"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Payments().UpdateStatus(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final, err := store.Payments().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", final.Status)
	}
	if final.DecisionReason == nil || *final.DecisionReason != "not enough balance" {
		t.Errorf("expected decision reason, got %v", final.DecisionReason)
	}
	if final.FinalizedAt == nil {
		t.Error("expected finalized timestamp")
	}
}

func TestPaymentRepository_NotFound(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Payments().GetByID(ctx, 42); !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}

	p := &payment.Payment{ID: 42, Status: payment.StatusFailed, UpdatedAt: time.Now()}
	if err := store.Payments().UpdateStatus(ctx, p); !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestStore_TransactionRollback(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, _ := seedShopper(t, store, 100_00)

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := store.Shoppers().Debit(txCtx, sh.ID, 30_00); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := store.Shoppers().GetByID(ctx, sh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BalanceCents != 100_00 {
		t.Errorf("expected rollback to keep balance 10000, got %d", got.BalanceCents)
	}
}

func TestStore_TransactionCommit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sh, _ := seedShopper(t, store, 100_00)

	err := store.WithTransaction(ctx, func(txCtx context.Context) error {
		return store.Shoppers().Debit(txCtx, sh.ID, 30_00)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Shoppers().GetByID(ctx, sh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BalanceCents != 70_00 {
		t.Errorf("expected balance 7000 after commit, got %d", got.BalanceCents)
	}
}
