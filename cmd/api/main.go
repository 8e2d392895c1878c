package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/minhtn89/bistro-backend/internal/config"
	"github.com/minhtn89/bistro-backend/internal/handler"
	"github.com/minhtn89/bistro-backend/internal/logging"
	"github.com/minhtn89/bistro-backend/internal/middleware"
	"github.com/minhtn89/bistro-backend/internal/repository"
	"github.com/minhtn89/bistro-backend/internal/service"
	"github.com/minhtn89/bistro-backend/internal/vnpay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("bistro-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orders := repository.NewOrderRepository(db)
	reservations := repository.NewReservationRepository(db)
	journal := repository.NewGatewayTransactionRepository(db)

	gatewayCfg := cfg.Gateway()
	if !gatewayCfg.Configured() {
		logger.Warn("payment gateway credentials missing; checkout will serve mock urls outside production")
	}

	builder := vnpay.NewURLBuilder(gatewayCfg)
	verifier := vnpay.NewVerifier(gatewayCfg)
	notifier := service.NewPaymentNotifier(db, logger)
	settlements := service.NewSettlementCoordinator(orders, reservations, journal, notifier, db, logger)

	healthHandler := handler.NewHealthHandler(db)
	paymentHandler := handler.NewPaymentHandler(orders, reservations, builder)
	callbackHandler := handler.NewCallbackHandler(verifier, settlements, cfg.ClientURL, cfg.AppDeepLink)

	authn := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	// Checkout requires an authenticated caller; the gateway callbacks are
	// unauthenticated and rely on signature verification instead.
	mux.Handle("POST /api/payments/checkout", authn(http.HandlerFunc(paymentHandler.CreateOrderCheckout)))
	mux.Handle("POST /api/payments/deposit", authn(http.HandlerFunc(paymentHandler.CreateOrderDeposit)))
	mux.Handle("POST /api/payments/reservation-deposit", authn(http.HandlerFunc(paymentHandler.CreateReservationDeposit)))
	mux.Handle("POST /api/app/payments/checkout", authn(http.HandlerFunc(paymentHandler.CreateOrderCheckout)))
	mux.Handle("POST /api/app/payments/deposit", authn(http.HandlerFunc(paymentHandler.CreateOrderDeposit)))
	mux.Handle("POST /api/app/payments/reservation-deposit", authn(http.HandlerFunc(paymentHandler.CreateReservationDeposit)))

	mux.HandleFunc("GET /api/payments/vnpay-return", callbackHandler.Return)
	mux.HandleFunc("GET /api/app/payments/vnpay-return", callbackHandler.AppReturn)
	mux.HandleFunc("POST /api/payments/vnpay-ipn", callbackHandler.Notify)
	mux.HandleFunc("POST /api/app/payments/vnpay-ipn", callbackHandler.Notify)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
