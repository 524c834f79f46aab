package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/storage"
)

type Handler struct {
	pool        *db.Pool
	subscribers *storage.SubscriberRepository
	contacts    *storage.ContactRepository
	outbox      *outbox.Repository
	logger      *slog.Logger
	baseURL     string
}

func New(pool *db.Pool, subscribers *storage.SubscriberRepository, contacts *storage.ContactRepository, ob *outbox.Repository, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		pool:        pool,
		subscribers: subscribers,
		contacts:    contacts,
		outbox:      ob,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
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

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// NewsletterSubscribe stores the signup and queues the double-opt-in mail.
// The response is identical for new and already-confirmed addresses so the
// endpoint cannot be used to probe the subscriber list.
func (h *Handler) NewsletterSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if !validEmail(req.Email) {
		http.Error(w, "valid email required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.subscribers.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sub, err := h.subscribers.Subscribe(ctx, tx, req.Email)
	if err != nil {
		http.Error(w, "failed to store signup", http.StatusInternalServerError)
		return
	}

	// Only a fresh (or reset) pending signup triggers the opt-in mail.
	if sub.Status == model.SubscriberPending {
		payload, err := json.Marshal(map[string]string{
			"subscriber_id":   sub.ID,
			"email":           sub.Email,
			"confirm_url":     h.baseURL + "/api/v1/public/newsletter/confirm?token=" + sub.ConfirmToken,
			"unsubscribe_url": h.baseURL + "/api/v1/public/newsletter/unsubscribe?token=" + sub.UnsubscribeToken,
		})
		if err != nil {
			http.Error(w, "failed to build event payload", http.StatusInternalServerError)
			return
		}
		if err := h.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "subscriber",
			AggregateID:   sub.ID,
			EventType:     outbox.EventNewsletterSubscribed,
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending_confirmation"})
}

func (h *Handler) NewsletterConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tok := strings.TrimSpace(r.URL.Query().Get("token"))
	if tok == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	sub, err := h.subscribers.ConfirmByToken(r.Context(), tok)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown or already used token", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to confirm", http.StatusInternalServerError)
		return
	}

	h.logger.Info("newsletter signup confirmed", "subscriber_id", sub.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) NewsletterUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tok := strings.TrimSpace(r.URL.Query().Get("token"))
	if tok == "" && r.Method == http.MethodPost {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			tok = strings.TrimSpace(req.Token)
		}
	}
	if tok == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	if err := h.subscribers.UnsubscribeByToken(r.Context(), tok); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown token", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to unsubscribe", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
