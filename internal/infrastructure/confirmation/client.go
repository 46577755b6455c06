// Package confirmation implements the outbound leg of the confirmation
// protocol: reporting an authorization outcome to the party that requested the
// payment and interpreting its acknowledgement.
package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cassiomorais/banksim/internal/infrastructure/config"
	"github.com/cassiomorais/banksim/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type outcomeBody struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ackBody struct {
	Acknowledge bool `json:"acknowledge"`
}

// Client delivers authorization outcomes over HTTP. It fails closed: any
// transport error, non-2xx status, unparsable body or open circuit breaker is
// reported as a non-acknowledgement. It never retries; the payment fails and
// that is the end of it.
type Client struct {
	httpClient *http.Client
	port       int
	breaker    *gobreaker.CircuitBreaker[bool]
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a confirmation client. The breaker trips when the remote
// party keeps failing, shedding the timeout wait for subsequent payments.
func NewClient(cfg config.ConfirmationConfig, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		port:       cfg.CallbackPort,
		logger:     logger,
		metrics:    metrics,
	}

	threshold := cfg.CircuitBreakerThreshold
	if threshold == 0 {
		threshold = 10
	}
	c.breaker = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        "confirmation",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Confirmation circuit breaker state changed")
		},
	})

	return c
}

// Notify sends the outcome for one payment and returns whether the remote
// party acknowledged it.
func (c *Client) Notify(ctx context.Context, externalID uuid.UUID, approved bool, reason string, host string) bool {
	acknowledged, err := c.breaker.Execute(func() (bool, error) {
		return c.send(ctx, externalID, approved, reason, host)
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("payment_id", externalID.String()).
			Str("host", host).
			Msg("Confirmation call failed")
		c.metrics.ConfirmationRequests.WithLabelValues("error").Inc()
		return false
	}

	if acknowledged {
		c.metrics.ConfirmationRequests.WithLabelValues("acknowledged").Inc()
	} else {
		c.metrics.ConfirmationRequests.WithLabelValues("rejected").Inc()
	}
	return acknowledged
}

func (c *Client) send(ctx context.Context, externalID uuid.UUID, approved bool, reason string, host string) (bool, error) {
	body, err := json.Marshal(outcomeBody{
		ID:      externalID.String(),
		Success: approved,
		Message: reason,
	})
	if err != nil {
		return false, fmt.Errorf("marshal outcome: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/payment", host, c.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("confirmation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("confirmation returned status %d", resp.StatusCode)
	}

	var ack ackBody
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return false, fmt.Errorf("decode acknowledgement: %w", err)
	}

	return ack.Acknowledge, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
