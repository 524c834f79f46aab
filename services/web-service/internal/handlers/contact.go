package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/katharina-voss/lashoffice/services/web-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/web-service/internal/outbox"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Message == "" {
		http.Error(w, "name and message required", http.StatusBadRequest)
		return
	}
	if req.Email != "" && !validEmail(req.Email) {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	if len(req.Message) > 4000 {
		http.Error(w, "message too long", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.subscribers.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	contact, err := h.contacts.Insert(ctx, tx, model.ContactRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		http.Error(w, "failed to store contact request", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]string{
		"contact_id": contact.ID,
		"name":       contact.Name,
		"email":      contact.Email,
		"phone":      contact.Phone,
		"message":    contact.Message,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "contact_request",
		AggregateID:   contact.ID,
		EventType:     outbox.EventContactReceived,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.logger.Info("contact request received", "contact_id", contact.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}
