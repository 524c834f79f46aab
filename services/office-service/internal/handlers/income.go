package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

type incomeItem struct {
	ID               string `json:"id"`
	AppointmentID    string `json:"appointment_id"`
	CustomerID       string `json:"customer_id"`
	TreatmentTypeID  string `json:"treatment_type_id"`
	AmountCents      int64  `json:"amount_cents"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference,omitempty"`
	PaidAt           string `json:"paid_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func incomeToItem(e model.IncomeEntry) incomeItem {
	item := incomeItem{
		ID:               e.ID,
		AppointmentID:    e.AppointmentID,
		CustomerID:       e.CustomerID,
		TreatmentTypeID:  e.TreatmentTypeID,
		AmountCents:      e.AmountCents,
		PaymentMethod:    e.PaymentMethod,
		PaymentReference: e.PaymentReference,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.PaidAt != nil {
		item.PaidAt = e.PaidAt.UTC().Format(time.RFC3339)
	}
	return item
}

// IncomeList returns entries in [from, to); defaults to the current month.
func (h *Handler) IncomeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		to = t
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	limit := 200
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	entries, err := h.income.ListRange(r.Context(), from, to, limit)
	if err != nil {
		http.Error(w, "failed to list income entries", http.StatusInternalServerError)
		return
	}

	items := make([]incomeItem, 0, len(entries))
	var totalCents int64
	for _, e := range entries {
		items = append(items, incomeToItem(e))
		totalCents += e.AmountCents
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     items,
		"total_cents": totalCents,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
	})
}
