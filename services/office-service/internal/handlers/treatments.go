package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

type treatmentRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Description     string `json:"description"`
	Active          *bool  `json:"active,omitempty"`
}

type treatmentItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Description     string `json:"description,omitempty"`
	Active          bool   `json:"active"`
}

func treatmentToItem(t model.TreatmentType) treatmentItem {
	return treatmentItem{
		ID:              t.ID,
		Name:            t.Name,
		DurationMinutes: t.DurationMinutes,
		PriceCents:      t.PriceCents,
		Description:     t.Description,
		Active:          t.Active,
	}
}

func (h *Handler) Treatments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.treatmentsList(w, r)
	case http.MethodPost:
		h.treatmentCreate(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) treatmentsList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	types, err := h.treatments.List(r.Context(), activeOnly)
	if err != nil {
		http.Error(w, "failed to list treatment types", http.StatusInternalServerError)
		return
	}
	items := make([]treatmentItem, 0, len(types))
	for _, t := range types {
		items = append(items, treatmentToItem(t))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) treatmentCreate(w http.ResponseWriter, r *http.Request) {
	var req treatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMinutes <= 0 || req.PriceCents < 0 {
		http.Error(w, "name, positive duration_minutes and non-negative price_cents required", http.StatusBadRequest)
		return
	}

	t, err := h.treatments.Create(r.Context(), model.TreatmentType{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		http.Error(w, "failed to create treatment type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, treatmentToItem(t))
}

func (h *Handler) TreatmentUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req treatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" || req.DurationMinutes <= 0 || req.PriceCents < 0 {
		http.Error(w, "id, name, positive duration_minutes and non-negative price_cents required", http.StatusBadRequest)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	err := h.treatments.Update(r.Context(), model.TreatmentType{
		ID:              req.ID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Description:     strings.TrimSpace(req.Description),
		Active:          active,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "treatment type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update treatment type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "updated"})
}
