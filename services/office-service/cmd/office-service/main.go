package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/katharina-voss/lashoffice/libs/config"
	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/libs/httpx"
	"github.com/katharina-voss/lashoffice/libs/kafkax"
	otelx "github.com/katharina-voss/lashoffice/libs/otel"
	"github.com/katharina-voss/lashoffice/libs/runtime"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/appointments"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/handlers"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
	calsync "github.com/katharina-voss/lashoffice/services/office-service/internal/sync"
	"github.com/katharina-voss/lashoffice/services/office-service/migrations"
)

func main() {
	service := config.String("SERVICE_NAME", "office-service")
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

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	users := storage.NewUserRepository(pool)
	customers := storage.NewCustomerRepository(pool)
	treatments := storage.NewTreatmentRepository(pool)
	income := storage.NewIncomeRepository(pool)
	consents := storage.NewConsentRepository(pool)
	syncLogs := storage.NewSyncLogRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	graphClient := outlook.NewClient(outlook.Config{
		TenantID:     config.String("GRAPH_TENANT_ID", ""),
		ClientID:     config.String("GRAPH_CLIENT_ID", ""),
		ClientSecret: config.String("GRAPH_CLIENT_SECRET", ""),
		MailboxUser:  config.String("GRAPH_MAILBOX_USER", ""),
		PageSize:     config.Int("GRAPH_PAGE_SIZE", 50),
		LoginBaseURL: config.String("GRAPH_LOGIN_BASE_URL", ""),
		GraphBaseURL: config.String("GRAPH_BASE_URL", ""),
	}, nil)

	runner := calsync.NewRunner(pool, graphClient, appointmentRepo, syncLogs, outboxRepo, logger, calsync.RunnerConfig{
		LookBehind: config.Duration("SYNC_LOOK_BEHIND", 7*24*time.Hour),
		LookAhead:  config.Duration("SYNC_LOOK_AHEAD", 60*24*time.Hour),
	})

	appointmentsSvc := appointments.NewService(appointmentRepo, income, outboxRepo, logger)

	h := handlers.New(pool, users, customers, treatments, income, consents, syncLogs, appointmentsSvc, runner, logger, handlers.Config{
		JWTSecret:           jwtSecret,
		TokenTTL:            config.Duration("TOKEN_TTL", 12*time.Hour),
		SyncSecret:          config.String("SYNC_SECRET", ""),
		StripeWebhookSecret: config.String("STRIPE_WEBHOOK_SECRET", ""),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/login", h.Login)
	mux.HandleFunc("/api/v1/me", h.RequireAuth(h.Me))
	mux.HandleFunc("/api/v1/sync/run", h.RequireSyncAuth(h.SyncRun))
	mux.HandleFunc("/api/v1/sync/status", h.RequireAuth(h.SyncStatus))
	mux.HandleFunc("/api/v1/appointments/pending", h.RequireAuth(h.AppointmentsPending))
	mux.HandleFunc("/api/v1/appointments/upcoming", h.RequireAuth(h.AppointmentsUpcoming))
	mux.HandleFunc("/api/v1/appointments/confirm", h.RequireAuth(h.AppointmentConfirm))
	mux.HandleFunc("/api/v1/appointments/dismiss", h.RequireAuth(h.AppointmentDismiss))
	mux.HandleFunc("/api/v1/customers", h.RequireAuth(h.Customers))
	mux.HandleFunc("/api/v1/customers/get", h.RequireAuth(h.CustomerGet))
	mux.HandleFunc("/api/v1/customers/update", h.RequireAuth(h.CustomerUpdate))
	mux.HandleFunc("/api/v1/customers/delete", h.RequireAuth(h.CustomerDelete))
	mux.HandleFunc("/api/v1/treatments", h.RequireAuth(h.Treatments))
	mux.HandleFunc("/api/v1/treatments/update", h.RequireAuth(h.TreatmentUpdate))
	mux.HandleFunc("/api/v1/income", h.RequireAuth(h.IncomeList))
	mux.HandleFunc("/api/v1/consents/documents", h.RequireAuth(h.ConsentDocuments))
	mux.HandleFunc("/api/v1/consents/current", h.RequireAuth(h.ConsentCurrent))
	mux.HandleFunc("/api/v1/consents/sign", h.RequireAuth(h.ConsentSign))
	mux.HandleFunc("/api/v1/consents/status", h.RequireAuth(h.ConsentStatus))
	mux.HandleFunc("/api/v1/webhooks/stripe", h.StripeWebhook)

	// The timeout also bounds manual sync runs; the runner finalizes the
	// log on its own detached context when the request dies.
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(config.Duration("HTTP_TIMEOUT", 60*time.Second)),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "office")
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
