package payment_test

import (
	"errors"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
)

func newPayment(t *testing.T) *payment.Payment {
	t.Helper()
	p, err := payment.NewPayment(1, 1, 50_00, time.Now(), "3ds", "bol.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNewPayment_StartsCreated(t *testing.T) {
	p := newPayment(t)

	if p.Status != payment.StatusCreated {
		t.Errorf("expected status created, got %s", p.Status)
	}
	if p.ExternalID.String() == "" {
		t.Error("expected external id to be assigned")
	}
	if p.FinalizedAt != nil {
		t.Error("expected no finalized timestamp on a new payment")
	}
}

func TestNewPayment_RejectsInvalidInput(t *testing.T) {
	if _, err := payment.NewPayment(1, 1, 0, time.Now(), "3ds", "bol.com"); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := payment.NewPayment(1, 1, -100, time.Now(), "3ds", "bol.com"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := payment.NewPayment(1, 1, 50_00, time.Now(), "3ds", ""); err == nil {
		t.Error("expected error for empty merchant")
	}
}

func TestPayment_ForwardOnlyLifecycle(t *testing.T) {
	p := newPayment(t)

	// created cannot jump straight to a terminal state
	if err := p.MarkSucceeded("success"); err == nil {
		t.Error("expected error marking created payment succeeded")
	}
	if err := p.MarkFailed("not enough balance"); err == nil {
		t.Error("expected error marking created payment failed")
	}

	if err := p.MarkPending(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != payment.StatusPending {
		t.Errorf("expected status pending, got %s", p.Status)
	}

	// pending cannot go back
	if err := p.TransitionTo(payment.StatusCreated); err == nil {
		t.Error("expected error transitioning pending back to created")
	}

	if err := p.MarkSucceeded("success"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsTerminal() {
		t.Error("expected succeeded payment to be terminal")
	}
	if p.FinalizedAt == nil {
		t.Error("expected finalized timestamp to be set")
	}
	if p.DecisionReason == nil || *p.DecisionReason != "success" {
		t.Errorf("expected decision reason %q, got %v", "success", p.DecisionReason)
	}
}

func TestPayment_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []payment.Status{payment.StatusSucceeded, payment.StatusFailed} {
		p := newPayment(t)
		if err := p.MarkPending(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.TransitionTo(terminal); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, next := range []payment.Status{
			payment.StatusCreated, payment.StatusPending,
			payment.StatusSucceeded, payment.StatusFailed,
		} {
			err := p.TransitionTo(next)
			if err == nil {
				t.Errorf("expected error transitioning %s to %s", terminal, next)
				continue
			}
			if !errors.Is(err, domainErrors.ErrPaymentFinalized) {
				t.Errorf("expected ErrPaymentFinalized, got %v", err)
			}
		}
		if p.Status != terminal {
			t.Errorf("expected status to stay %s, got %s", terminal, p.Status)
		}
	}
}

func TestPayment_InvalidTransitionError(t *testing.T) {
	p := newPayment(t)

	err := p.TransitionTo(payment.StatusSucceeded)
	if !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}

	var domainErr *domainErrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected a DomainError, got %T", err)
	}
	if domainErr.Code != "invalid_transition" {
		t.Errorf("expected code invalid_transition, got %s", domainErr.Code)
	}
}
