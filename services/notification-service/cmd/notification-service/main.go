package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/katharina-voss/lashoffice/libs/config"
	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/libs/httpx"
	"github.com/katharina-voss/lashoffice/libs/kafkax"
	otelx "github.com/katharina-voss/lashoffice/libs/otel"
	"github.com/katharina-voss/lashoffice/libs/runtime"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/consumer"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/email"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/handlers"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/inbox"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/storage"
	"github.com/katharina-voss/lashoffice/services/notification-service/migrations"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8082")
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
	if err := db.Migrate(dbURL, migrations.Files, "."); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	sentMails := storage.NewRepository(pool)

	sender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@lashes-by-katharina.de"),
		config.String("SMTP_USERNAME", ""),
		config.String("SMTP_PASSWORD", ""),
	)
	eventHandler := handlers.NewEventHandler(sender, sentMails, logger, config.String("OWNER_EMAIL", ""))

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(brokers) == "" {
			logger.Warn("kafka brokers not configured, consumer disabled", "topic", topic)
			return
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}
	startConsumer(handlers.TopicNewsletterSubscribed, eventHandler.HandleNewsletterSubscribed)
	startConsumer(handlers.TopicSyncFailed, eventHandler.HandleSyncFailed)
	startConsumer(handlers.TopicContactReceived, eventHandler.HandleContactReceived)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
