package controller

import (
	"errors"
	"net"
	"net/http"
	"strings"

	appPayment "github.com/cassiomorais/banksim/internal/application/payment"
	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/money"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/cassiomorais/banksim/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	createUC    *appPayment.CreatePaymentUseCase
	finalizer   *appPayment.Finalizer
	paymentRepo payment.Repository
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	createUC *appPayment.CreatePaymentUseCase,
	finalizer *appPayment.Finalizer,
	paymentRepo payment.Repository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PaymentController {
	return &PaymentController{
		createUC:    createUC,
		finalizer:   finalizer,
		paymentRepo: paymentRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreatePayment handles POST /payment. Whatever happens, the response body is
// a CreatePaymentResponse; failures carry a human-readable message and an
// empty id, matching what merchant processors integrate against.
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.rejectCreate(w, err.Error())
		return
	}

	p, err := h.createUC.Execute(r.Context(), appPayment.CreatePaymentRequest{
		AmountCents:      money.ToCents(req.Amount),
		Currency:         req.Currency,
		PurchaseTime:     req.PurchaseTime,
		ValidationMethod: req.ValidationMethod,
		Card: shopper.Card{
			Number:      req.Card.Number,
			Name:        req.Card.Name,
			ExpireMonth: req.Card.ExpireMonth,
			ExpireYear:  req.Card.ExpireYear,
			CVV:         req.Card.CVV,
		},
		Merchant: req.Merchant,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create payment rejected")
		h.rejectCreate(w, createFailureMessage(err))
		return
	}

	h.logger.Info().Msgf("%s - CREATED", p.ExternalID)

	// The finalize step calls the merchant processor back on the host that
	// sent this request.
	h.finalizer.Schedule(p.ID, p.ExternalID, callbackHost(r))

	h.metrics.PaymentsCreated.WithLabelValues("created").Inc()
	h.logger.Info().Msgf("%s - PENDING", p.ExternalID)

	writeJSON(w, http.StatusCreated, CreatePaymentResponse{
		ID:      p.ExternalID.String(),
		Success: true,
		Message: "payment request created",
	})
}

// AcknowledgePayment handles PUT /payment. The simulator plays both sides of
// the confirmation protocol in test setups; inbound confirmations are logged
// and always acknowledged.
func (h *PaymentController) AcknowledgePayment(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	// A malformed body still gets an acknowledgement; the caller only needs
	// to know the message arrived.
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("malformed confirmation callback")
	} else {
		h.logger.Info().Msgf("acknowledging message: (%s, %s)", req.ID, req.Message)
	}

	writeJSON(w, http.StatusOK, AcknowledgeResponse{Acknowledge: true})
}

// GetPayment handles GET /payment/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	p, err := h.paymentRepo.GetByExternalID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPayment(p))
}

func (h *PaymentController) rejectCreate(w http.ResponseWriter, message string) {
	h.metrics.PaymentsCreated.WithLabelValues("rejected").Inc()
	writeJSON(w, http.StatusBadRequest, CreatePaymentResponse{
		ID:      "",
		Success: false,
		Message: message,
	})
}

// createFailureMessage maps creation errors onto the fixed messages merchant
// processors match on.
func createFailureMessage(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrCardNotFound):
		return "card not found"
	case errors.Is(err, domainErrors.ErrShopperNotFound):
		return "card does not match a shopper"
	case errors.Is(err, domainErrors.ErrCurrencyMismatch):
		return "shopper currency is not correct"
	default:
		return "could not create payment"
	}
}

// callbackHost extracts the peer address the confirmation callback goes to.
func callbackHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in handler tests.
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
