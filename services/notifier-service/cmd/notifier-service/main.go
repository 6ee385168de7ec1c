package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpontes/clinicore/libs/config"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/libs/httpx"
	"github.com/mpontes/clinicore/libs/kafkax"
	otelx "github.com/mpontes/clinicore/libs/otel"
	"github.com/mpontes/clinicore/libs/runtime"
	"github.com/mpontes/clinicore/services/notifier-service/internal/consumer"
	"github.com/mpontes/clinicore/services/notifier-service/internal/email"
	"github.com/mpontes/clinicore/services/notifier-service/internal/feed"
	"github.com/mpontes/clinicore/services/notifier-service/internal/handlers"
	"github.com/mpontes/clinicore/services/notifier-service/internal/inbox"
	"github.com/mpontes/clinicore/services/notifier-service/internal/outbox"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "notifier-service")
	port, err := config.Port("PORT", "8081")
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
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	feedRepo := feed.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, brokers)
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@clinicore.local"),
	)
	emailTo := config.String("NOTIFY_EMAIL_TO", "")

	handle := func(ctx context.Context, msg kafka.Message) error {
		settings, err := feedRepo.GetSettings(ctx)
		if err != nil {
			return err
		}
		entry, ok, err := feed.Map(msg.Topic, msg.Value, settings, time.Now().UTC())
		if err != nil {
			// Malformed payloads are dropped, not retried.
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if !ok {
			return nil
		}
		if _, err := feedRepo.Insert(ctx, &entry); err != nil {
			return err
		}

		// Email delivery is best effort. The feed entry is already persisted,
		// so an SMTP failure only logs.
		emailed := false
		if settings.EmailNotifications && emailTo != "" {
			if err := emailSender.Send(emailTo, entry.Title, entry.Message); err != nil {
				logger.Error("email send failed", "err", err, "to", emailTo)
			} else {
				emailed = true
			}
		}

		// Same policy for the delivered event: the feed row is the source of
		// truth, so an outbox write failure only logs.
		if err := outboxRepo.InsertDelivered(ctx, outbox.Delivered{
			NotificationID: entry.ID,
			SourceTopic:    msg.Topic,
			Category:       entry.Category,
			Type:           entry.Type,
			Title:          entry.Title,
			Emailed:        emailed,
		}); err != nil {
			logger.Error("failed to enqueue notification.delivered", "err", err)
		}

		logger.Info("notification recorded", "topic", msg.Topic, "title", entry.Title)
		return nil
	}

	groupID := config.String("KAFKA_GROUP_ID", "notifier-service")
	for _, topic := range feed.Topics() {
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handle)
		go eventConsumer.Run(ctx)
	}

	feedHandler := handlers.NewFeedHandler(feedRepo, logger)
	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/notifications", feedHandler.List)
	mux.HandleFunc("/api/v1/notifications/read", feedHandler.MarkRead)
	mux.HandleFunc("/api/v1/notifications/read-all", feedHandler.MarkAllRead)
	mux.HandleFunc("/api/v1/notifications/delete", feedHandler.Delete)
	mux.HandleFunc("/api/v1/notifications/clear", feedHandler.Clear)
	mux.HandleFunc("/api/v1/notifications/settings", feedHandler.Settings)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notifier")
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
