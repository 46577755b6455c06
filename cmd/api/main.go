package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appPayment "github.com/cassiomorais/banksim/internal/application/payment"
	"github.com/cassiomorais/banksim/internal/bootstrap"
	"github.com/cassiomorais/banksim/internal/controller"
	"github.com/cassiomorais/banksim/internal/infrastructure/confirmation"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "banksim-api", "banksim")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Application services ---
	confirmer := confirmation.NewClient(app.Config.Confirmation, app.Logger, app.Metrics)
	createUC := appPayment.NewCreatePaymentUseCase(app.PaymentRepo, app.ShopperRepo, app.TxManager)
	finalizeUC := appPayment.NewFinalizePaymentUseCase(app.PaymentRepo, app.ShopperRepo, app.TxManager, confirmer, app.Locker)
	finalizer := appPayment.NewFinalizer(finalizeUC, app.Logger, app.Metrics)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Store:       app.StorePinger,
		RedisClient: app.Redis,
		PaymentRepo: app.PaymentRepo,
		CreateUC:    createUC,
		Finalizer:   finalizer,
		Metrics:     app.Metrics,
		Logger:      app.Logger,
		CORSConfig:  app.Config.Server.CORS,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		app.Logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// In-flight finalizations run to a terminal state before exit.
		finalizer.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
	app.Logger.Info().Msg("Server exited")
}
