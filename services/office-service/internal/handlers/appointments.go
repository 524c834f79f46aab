package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/appointments"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

type appointmentItem struct {
	ID        string `json:"id"`
	OutlookID string `json:"outlook_id,omitempty"`
	Subject   string `json:"subject"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location,omitempty"`
	Status    string `json:"status"`
}

func appointmentItems(appts []model.Appointment) []appointmentItem {
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			ID:        appt.ID,
			Subject:   appt.Subject,
			StartTime: appt.StartTime.UTC().Format(time.RFC3339),
			EndTime:   appt.EndTime.UTC().Format(time.RFC3339),
			Location:  appt.Location,
			Status:    appt.Status,
		}
		if appt.OutlookID != nil {
			item.OutlookID = *appt.OutlookID
		}
		items = append(items, item)
	}
	return items
}

func (h *Handler) AppointmentsPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appts, err := h.appointments.Pending(r.Context())
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appointmentItems(appts))
}

func (h *Handler) AppointmentsUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	appts, err := h.appointments.Upcoming(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appointmentItems(appts))
}

type confirmRequest struct {
	AppointmentID   string `json:"appointment_id"`
	CustomerID      string `json:"customer_id"`
	TreatmentTypeID string `json:"treatment_type_id"`
	AmountCents     int64  `json:"amount_cents"`
	PaymentMethod   string `json:"payment_method"`
}

type confirmResponse struct {
	AppointmentID string `json:"appointment_id"`
	IncomeEntryID string `json:"income_entry_id"`
	AmountCents   int64  `json:"amount_cents"`
	Status        string `json:"status"`
}

func (h *Handler) AppointmentConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.TreatmentTypeID = strings.TrimSpace(req.TreatmentTypeID)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.AppointmentID == "" || req.CustomerID == "" || req.TreatmentTypeID == "" {
		http.Error(w, "appointment_id, customer_id and treatment_type_id required", http.StatusBadRequest)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	// Empty amount means the treatment's list price.
	if req.AmountCents <= 0 {
		treatment, err := h.treatments.GetByID(r.Context(), req.TreatmentTypeID)
		if err != nil {
			http.Error(w, "unknown treatment type", http.StatusBadRequest)
			return
		}
		req.AmountCents = treatment.PriceCents
	}

	entry, err := h.appointments.Confirm(r.Context(), req.AppointmentID, req.CustomerID, req.TreatmentTypeID, req.AmountCents, req.PaymentMethod)
	if err != nil {
		h.writeAppointmentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{
		AppointmentID: req.AppointmentID,
		IncomeEntryID: entry.ID,
		AmountCents:   entry.AmountCents,
		Status:        model.AppointmentConfirmed,
	})
}

type dismissRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *Handler) AppointmentDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	if err := h.appointments.Dismiss(r.Context(), req.AppointmentID); err != nil {
		h.writeAppointmentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": req.AppointmentID,
		"status":         model.AppointmentDismissed,
	})
}

func (h *Handler) writeAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		http.Error(w, "Termin wurde nicht gefunden", http.StatusNotFound)
	case errors.Is(err, appointments.ErrInvalidState):
		http.Error(w, fmt.Sprintf("Termin ist bereits abgeschlossen: %v", err), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("Aktion fehlgeschlagen: %v", err), http.StatusInternalServerError)
	}
}
