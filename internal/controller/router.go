package controller

import (
	"time"

	appPayment "github.com/cassiomorais/banksim/internal/application/payment"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/infrastructure/config"
	"github.com/cassiomorais/banksim/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/banksim/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Store       Pinger
	RedisClient *redis.Client
	PaymentRepo payment.Repository
	CreateUC    *appPayment.CreatePaymentUseCase
	Finalizer   *appPayment.Finalizer
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
	CORSConfig  config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Store, deps.RedisClient)
	paymentH := NewPaymentController(deps.CreateUC, deps.Finalizer, deps.PaymentRepo, deps.Metrics, deps.Logger)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Post("/payment", paymentH.CreatePayment)
	r.Put("/payment", paymentH.AcknowledgePayment)
	r.Get("/payment/{id}", paymentH.GetPayment)

	return r
}
