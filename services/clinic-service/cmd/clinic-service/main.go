package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpontes/clinicore/libs/auth"
	"github.com/mpontes/clinicore/libs/config"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/libs/httpx"
	"github.com/mpontes/clinicore/libs/kafkax"
	otelx "github.com/mpontes/clinicore/libs/otel"
	"github.com/mpontes/clinicore/libs/runtime"
	"github.com/mpontes/clinicore/services/clinic-service/internal/authz"
	"github.com/mpontes/clinicore/services/clinic-service/internal/handlers"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func roleFromRequest(r *http.Request) string {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Role
	}
	return ""
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	signer := auth.NewSigner(jwtSecret, config.Duration("JWT_TTL", 8*time.Hour))

	patientRepo := storage.NewPatientRepository(pool)
	doctorRepo := storage.NewDoctorRepository(pool)
	serviceRepo := storage.NewServiceRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	accountRepo := storage.NewBankAccountRepository(pool)
	ledgerRepo := storage.NewLedgerRepository(pool)
	transactionRepo := storage.NewTransactionRepository(pool)
	userRepo := storage.NewUserRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	authHandler := handlers.NewAuthHandler(userRepo, outboxRepo, signer, logger)
	patientHandler := handlers.NewPatientHandler(patientRepo, outboxRepo, logger)
	doctorHandler := handlers.NewDoctorHandler(doctorRepo, outboxRepo, logger)
	catalogHandler := handlers.NewCatalogHandler(serviceRepo, outboxRepo, logger)
	appointmentHandler := handlers.NewAppointmentHandler(
		appointmentRepo, patientRepo, serviceRepo, accountRepo, ledgerRepo, outboxRepo, logger)
	financialHandler := handlers.NewFinancialHandler(ledgerRepo, accountRepo, outboxRepo, logger)
	transactionHandler := handlers.NewTransactionHandler(transactionRepo, outboxRepo, logger)
	userHandler := handlers.NewUserHandler(userRepo, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	authed := auth.Require(signer)
	protected := func(capability authz.Capability, h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, authed, authz.Require(capability, roleFromRequest))
	}

	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.Handle("/api/v1/auth/me", httpx.Chain(http.HandlerFunc(authHandler.Me), authed))

	mux.Handle("/api/v1/patients", protected(authz.CapPatients, patientHandler.Collection))
	mux.Handle("/api/v1/patients/update", protected(authz.CapPatients, patientHandler.Update))
	mux.Handle("/api/v1/patients/delete", protected(authz.CapPatients, patientHandler.Delete))

	mux.Handle("/api/v1/doctors", protected(authz.CapDoctors, doctorHandler.Collection))
	mux.Handle("/api/v1/doctors/update", protected(authz.CapDoctors, doctorHandler.Update))
	mux.Handle("/api/v1/doctors/delete", protected(authz.CapDoctors, doctorHandler.Delete))

	mux.Handle("/api/v1/services", protected(authz.CapServices, catalogHandler.Collection))
	mux.Handle("/api/v1/services/update", protected(authz.CapServices, catalogHandler.Update))
	mux.Handle("/api/v1/services/delete", protected(authz.CapServices, catalogHandler.Delete))

	mux.Handle("/api/v1/appointments", protected(authz.CapAppointments, appointmentHandler.Collection))
	mux.Handle("/api/v1/appointments/update", protected(authz.CapAppointments, appointmentHandler.Update))
	mux.Handle("/api/v1/appointments/delete", protected(authz.CapAppointments, appointmentHandler.Delete))
	mux.Handle("/api/v1/appointments/status", protected(authz.CapAppointments, appointmentHandler.ChangeStatus))

	mux.Handle("/api/v1/bank-accounts", protected(authz.CapFinancial, financialHandler.BankAccounts))
	mux.Handle("/api/v1/bank-accounts/update", protected(authz.CapFinancial, financialHandler.UpdateBankAccount))
	mux.Handle("/api/v1/bank-accounts/delete", protected(authz.CapFinancial, financialHandler.DeleteBankAccount))
	mux.Handle("/api/v1/cash-movements", protected(authz.CapFinancial, financialHandler.CashMovements))
	mux.Handle("/api/v1/bank-movements", protected(authz.CapFinancial, financialHandler.BankMovements))

	mux.Handle("/api/v1/transactions", protected(authz.CapFinancial, transactionHandler.Collection))
	mux.Handle("/api/v1/transactions/pay", protected(authz.CapFinancial, transactionHandler.Pay))
	mux.Handle("/api/v1/transactions/cancel", protected(authz.CapFinancial, transactionHandler.Cancel))
	mux.Handle("/api/v1/transactions/sweep-overdue", protected(authz.CapFinancial, transactionHandler.SweepOverdue))

	mux.Handle("/api/v1/users", protected(authz.CapUsers, userHandler.Collection))
	mux.Handle("/api/v1/users/update", protected(authz.CapUsers, userHandler.Update))
	mux.Handle("/api/v1/users/delete", protected(authz.CapUsers, userHandler.Delete))

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
	}
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL, rate limiting disabled", "err", err)
		} else {
			rdb := redis.NewClient(opts)
			limiter := httpx.NewRedisRateLimiter(rdb,
				config.Int("RATE_LIMIT", 120), config.Duration("RATE_LIMIT_WINDOW", time.Minute), service)
			middlewares = append(middlewares, limiter.Middleware(logger, true))
		}
	} else {
		limiter := httpx.NewRateLimiter(
			config.Int("RATE_LIMIT", 120), config.Duration("RATE_LIMIT_WINDOW", time.Minute))
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
