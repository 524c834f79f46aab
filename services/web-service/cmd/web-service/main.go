package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/katharina-voss/lashoffice/libs/config"
	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/libs/httpx"
	"github.com/katharina-voss/lashoffice/libs/kafkax"
	otelx "github.com/katharina-voss/lashoffice/libs/otel"
	"github.com/katharina-voss/lashoffice/libs/runtime"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/handlers"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/storage"
	"github.com/katharina-voss/lashoffice/services/web-service/migrations"
)

func main() {
	service := config.String("SERVICE_NAME", "web-service")
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

	subscribers := storage.NewSubscriberRepository(pool)
	contacts := storage.NewContactRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	publisher := outbox.NewPublisher(pool, logger, config.String("KAFKA_BROKERS", ""))
	go publisher.Run(ctx)

	h := handlers.New(pool, subscribers, contacts, outboxRepo, logger,
		config.String("PUBLIC_BASE_URL", "https://www.lashes-by-katharina.de"))

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/newsletter/subscribe", h.NewsletterSubscribe)
	mux.HandleFunc("/api/v1/public/newsletter/confirm", h.NewsletterConfirm)
	mux.HandleFunc("/api/v1/public/newsletter/unsubscribe", h.NewsletterUnsubscribe)
	mux.HandleFunc("/api/v1/public/contact", h.Contact)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64 << 10),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ORIGINS", ""), ","),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
	}

	// Public endpoints share one fixed-window limit per client IP. The
	// limiter fails open so a Redis outage degrades, not blocks, signups.
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 30),
			config.Duration("RATE_WINDOW", time.Minute),
			"web")
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 30), config.Duration("RATE_WINDOW", time.Minute))
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "web")
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
