package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Finalizer supervises the asynchronous finalize step. Every created payment
// is scheduled exactly once; the goroutines are tracked, not detached, so
// shutdown and tests can drain them deterministically and failures land in the
// log instead of vanishing.
type Finalizer struct {
	uc      *FinalizePaymentUseCase
	logger  zerolog.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

// NewFinalizer creates a new Finalizer.
func NewFinalizer(uc *FinalizePaymentUseCase, logger zerolog.Logger, metrics *observability.Metrics) *Finalizer {
	return &Finalizer{
		uc:      uc,
		logger:  logger,
		metrics: metrics,
	}
}

// Schedule runs the finalize step for one payment in the background. The task
// uses a fresh context: once started it runs to a terminal state even if the
// request that created the payment has been abandoned.
func (f *Finalizer) Schedule(paymentID int64, externalID uuid.UUID, callbackHost string) {
	f.wg.Add(1)
	f.metrics.ActiveFinalizations.Inc()

	go func() {
		defer f.wg.Done()
		defer f.metrics.ActiveFinalizations.Dec()

		start := time.Now()
		p, err := f.uc.Execute(context.Background(), paymentID, callbackHost)
		f.metrics.FinalizeDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			f.logger.Error().
				Err(err).
				Str("payment_id", externalID.String()).
				Msg("Finalize failed")
			f.metrics.PaymentsFinalized.WithLabelValues("error", "internal").Inc()
			return
		}

		reason := ""
		if p.DecisionReason != nil {
			reason = *p.DecisionReason
		}

		// A non-acknowledged payment was approved locally but failed all the
		// same; it gets its own outcome so the counter does not read as an
		// approval that succeeded.
		outcome := "declined"
		switch {
		case p.Status == payment.StatusSucceeded:
			outcome = "approved"
		case reason == reasonNotAcknowledged:
			outcome = "not_acknowledged"
		}
		f.metrics.AuthorizationsTotal.WithLabelValues(outcome, reason).Inc()

		f.logger.Info().
			Str("payment_id", p.ExternalID.String()).
			Str("reason", reason).
			Msgf("%s - %s", p.ExternalID, strings.ToUpper(string(p.Status)))
		f.metrics.PaymentsFinalized.WithLabelValues(string(p.Status), reason).Inc()
	}()
}

// Wait blocks until every scheduled finalization has reached a terminal state.
func (f *Finalizer) Wait() {
	f.wg.Wait()
}
