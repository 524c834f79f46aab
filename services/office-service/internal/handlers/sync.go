package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
	calsync "github.com/katharina-voss/lashoffice/services/office-service/internal/sync"
)

type syncStatusResponse struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Imported    int    `json:"imported"`
	Updated     int    `json:"updated"`
	Deleted     int    `json:"deleted"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// SyncRun triggers a full calendar sync and blocks until it finishes.
// Failure text is German because it lands directly in the office UI; the
// raw error is appended for diagnosis.
func (h *Handler) SyncRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.runner.Run(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, calsync.ErrAlreadyRunning):
			http.Error(w, "Synchronisierung läuft bereits", http.StatusConflict)
		case errors.Is(err, outlook.ErrNotConfigured):
			http.Error(w, fmt.Sprintf("Outlook-Anbindung ist nicht konfiguriert: %v", err), http.StatusServiceUnavailable)
		case errors.Is(err, outlook.ErrUpstream):
			http.Error(w, fmt.Sprintf("Outlook-Kalender hat ungültige Daten geliefert: %v", err), http.StatusBadGateway)
		default:
			http.Error(w, fmt.Sprintf("Synchronisierung fehlgeschlagen: %v", err), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.syncLogs.Latest(r.Context())
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusOK, syncStatusResponse{Status: "never_run"})
			return
		}
		http.Error(w, "failed to load sync status", http.StatusInternalServerError)
		return
	}

	resp := syncStatusResponse{
		ID:          log.ID,
		StartedAt:   log.StartedAt.UTC().Format(time.RFC3339),
		Status:      log.Status,
		Message:     log.Message,
		Imported:    log.Imported,
		Updated:     log.Updated,
		Deleted:     log.Deleted,
		ErrorDetail: log.ErrorDetail,
	}
	if log.FinishedAt != nil {
		resp.FinishedAt = log.FinishedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
