package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

type customerRequest struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
}

type customerItem struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

func customerToItem(c model.Customer) customerItem {
	return customerItem{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Note:      c.Note,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req *customerRequest) trim() {
	req.ID = strings.TrimSpace(req.ID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Note = strings.TrimSpace(req.Note)
}

// Customers dispatches the collection endpoint: GET lists, POST creates.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.customersList(w, r)
	case http.MethodPost:
		h.customerCreate(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) customersList(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	customers, err := h.customers.List(r.Context(), search, limit)
	if err != nil {
		http.Error(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	items := make([]customerItem, 0, len(customers))
	for _, c := range customers {
		items = append(items, customerToItem(c))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) customerCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.trim()
	if req.FirstName == "" || req.LastName == "" {
		http.Error(w, "first_name and last_name required", http.StatusBadRequest)
		return
	}

	c, err := h.customers.Create(r.Context(), model.Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Note:      req.Note,
	})
	if err != nil {
		http.Error(w, "failed to create customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, customerToItem(c))
}

func (h *Handler) CustomerGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	c, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, customerToItem(c))
}

func (h *Handler) CustomerUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.trim()
	if req.ID == "" || req.FirstName == "" || req.LastName == "" {
		http.Error(w, "id, first_name and last_name required", http.StatusBadRequest)
		return
	}

	err := h.customers.Update(r.Context(), model.Customer{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Note:      req.Note,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "updated"})
}

func (h *Handler) CustomerDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.customers.SoftDelete(r.Context(), req.ID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete customer", http.StatusInternalServerError)
		return
	}
	h.logger.Info("customer soft-deleted", "customer_id", req.ID)
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "deleted"})
}
