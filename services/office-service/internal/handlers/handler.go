package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/appointments"
	calsync "github.com/katharina-voss/lashoffice/services/office-service/internal/sync"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

type Handler struct {
	pool *db.Pool

	users      *storage.UserRepository
	customers  *storage.CustomerRepository
	treatments *storage.TreatmentRepository
	income     *storage.IncomeRepository
	consents   *storage.ConsentRepository
	syncLogs   *storage.SyncLogRepository

	appointments *appointments.Service
	runner       *calsync.Runner

	jwtSecret  string
	tokenTTL   time.Duration
	syncSecret string

	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration

	logger *slog.Logger
}

type Config struct {
	JWTSecret              string
	TokenTTL               time.Duration
	SyncSecret             string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
}

func New(
	pool *db.Pool,
	users *storage.UserRepository,
	customers *storage.CustomerRepository,
	treatments *storage.TreatmentRepository,
	income *storage.IncomeRepository,
	consents *storage.ConsentRepository,
	syncLogs *storage.SyncLogRepository,
	appointmentsSvc *appointments.Service,
	runner *calsync.Runner,
	logger *slog.Logger,
	cfg Config,
) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.StripeWebhookTolerance <= 0 {
		cfg.StripeWebhookTolerance = 5 * time.Minute
	}
	return &Handler{
		pool:                   pool,
		users:                  users,
		customers:              customers,
		treatments:             treatments,
		income:                 income,
		consents:               consents,
		syncLogs:               syncLogs,
		appointments:           appointmentsSvc,
		runner:                 runner,
		jwtSecret:              cfg.JWTSecret,
		tokenTTL:               cfg.TokenTTL,
		syncSecret:             cfg.SyncSecret,
		stripeWebhookSecret:    cfg.StripeWebhookSecret,
		stripeWebhookTolerance: cfg.StripeWebhookTolerance,
		logger:                 logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
