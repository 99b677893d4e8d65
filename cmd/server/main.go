package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/PaymentLedgerService/internal/api"
	"github.com/honeynil/PaymentLedgerService/internal/config"
	"github.com/honeynil/PaymentLedgerService/internal/handler"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/blob"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/ifsc"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	"github.com/honeynil/PaymentLedgerService/internal/observability"
	core "github.com/honeynil/PaymentLedgerService/internal/repository/postgres"
	service "github.com/honeynil/PaymentLedgerService/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	// Инициализируем логи, метрики, трейсы
	shutdownTracing := observability.Setup(cfg)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("failed to shut down tracing", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open Postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to connect to Postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		slog.Error("failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	evidence, err := blob.NewDiskStore(cfg.UploadDir)
	if err != nil {
		slog.Error("failed to prepare upload dir", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// Инициализируем зависимости
	userRepo := core.NewPostgresUserRepository(db)
	sequenceRepo := core.NewPostgresSequenceRepository(db, cfg.SequenceBase)
	transactionRepo := core.NewPostgresTransactionRepository(db, sequenceRepo)
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()
	validator := ifsc.NewHTTPValidator(cfg.IFSCBaseURL, cfg.IFSCTimeout, redisClient)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	loc := cfg.DisplayLocation()
	payments := service.NewPaymentService(transactionRepo, userRepo, redisClient, producer, cfg.KafkaEventsTopic, evidence, validator, loc)
	accounts := service.NewAccountService(userRepo, redisClient, producer, cfg.KafkaEventsTopic, tokens)

	resync := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaResyncTopic, cfg.KafkaGroupID, payments)
	defer resync.Close()
	go resync.Consume(ctx)

	if cfg.AdminSignupOpen {
		slog.Warn("admin signup is open to anyone, unset ADMIN_SIGNUP_OPEN once the first admin exists")
	}
	router := api.SetupRouter(handler.NewHandler(payments, accounts, loc), redisClient, tokens, cfg.AdminSignupOpen)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
