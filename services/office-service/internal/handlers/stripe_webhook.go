package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

// StripeWebhook records deposit payments. The checkout session's
// client_reference_id carries the income entry id; signature verification
// is the auth, so the path can be public.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if evt.Type != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		http.Error(w, "invalid checkout session payload", http.StatusBadRequest)
		return
	}
	incomeEntryID := strings.TrimSpace(session.ClientReferenceID)
	if incomeEntryID == "" {
		h.logger.Warn("stripe: checkout session without client_reference_id", "session_id", session.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	paidAt := time.Unix(evt.Created, 0).UTC()
	if err := h.income.MarkPaid(ctx, tx, incomeEntryID, session.ID, paidAt); err != nil {
		if storage.IsNotFound(err) {
			// Replays and test events reference nothing we know; ack them
			// so Stripe stops retrying.
			h.logger.Warn("stripe: unknown income entry", "income_entry_id", incomeEntryID)
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		http.Error(w, "failed to record payment", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deposit payment recorded",
		"income_entry_id", incomeEntryID,
		"stripe_session_id", session.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
