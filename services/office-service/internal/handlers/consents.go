package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

type consentDocumentItem struct {
	ID          string `json:"id"`
	Version     int    `json:"version"`
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	Checksum    string `json:"checksum"`
	PublishedAt string `json:"published_at"`
}

func consentDocToItem(doc model.ConsentDocument, includeBody bool) consentDocumentItem {
	item := consentDocumentItem{
		ID:          doc.ID,
		Version:     doc.Version,
		Title:       doc.Title,
		Checksum:    doc.Checksum,
		PublishedAt: doc.PublishedAt.UTC().Format(time.RFC3339),
	}
	if includeBody {
		item.Body = doc.Body
	}
	return item
}

// ConsentDocuments lists all published versions (GET) or publishes a new
// one (POST). Versions are immutable; there is no update endpoint.
func (h *Handler) ConsentDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := h.consents.ListDocuments(r.Context())
		if err != nil {
			http.Error(w, "failed to list consent documents", http.StatusInternalServerError)
			return
		}
		items := make([]consentDocumentItem, 0, len(docs))
		for _, doc := range docs {
			items = append(items, consentDocToItem(doc, false))
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" || strings.TrimSpace(req.Body) == "" {
			http.Error(w, "title and body required", http.StatusBadRequest)
			return
		}
		doc, err := h.consents.PublishDocument(r.Context(), req.Title, req.Body)
		if err != nil {
			http.Error(w, "failed to publish consent document", http.StatusInternalServerError)
			return
		}
		h.logger.Info("consent document published", "document_id", doc.ID, "version", doc.Version)
		writeJSON(w, http.StatusCreated, consentDocToItem(doc, true))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) ConsentCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, err := h.consents.Current(r.Context())
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no consent document published", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load consent document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, consentDocToItem(doc, true))
}

type signConsentRequest struct {
	CustomerID     string `json:"customer_id"`
	DocumentID     string `json:"document_id"`
	SignatureImage string `json:"signature_image"`
}

// ConsentSign captures a signature against the latest published version.
// The document id in the request must match the current version so a stale
// tablet form cannot sign an outdated text.
func (h *Handler) ConsentSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	if req.CustomerID == "" || req.DocumentID == "" || req.SignatureImage == "" {
		http.Error(w, "customer_id, document_id and signature_image required", http.StatusBadRequest)
		return
	}
	if _, err := base64.StdEncoding.DecodeString(req.SignatureImage); err != nil {
		http.Error(w, "signature_image must be base64", http.StatusBadRequest)
		return
	}

	current, err := h.consents.Current(r.Context())
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no consent document published", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load consent document", http.StatusInternalServerError)
		return
	}
	if current.ID != req.DocumentID {
		http.Error(w, "Einwilligungstext ist veraltet, bitte Formular neu laden", http.StatusConflict)
		return
	}
	if _, err := h.customers.GetByID(r.Context(), req.CustomerID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load customer", http.StatusInternalServerError)
		return
	}

	sig, err := h.consents.RecordSignature(r.Context(), model.ConsentSignature{
		CustomerID:     req.CustomerID,
		DocumentID:     req.DocumentID,
		SignatureImage: req.SignatureImage,
	})
	if err != nil {
		http.Error(w, "failed to record signature", http.StatusInternalServerError)
		return
	}

	h.logger.Info("consent signed", "customer_id", req.CustomerID, "document_version", current.Version)
	writeJSON(w, http.StatusCreated, map[string]any{
		"signature_id":     sig.ID,
		"document_version": current.Version,
		"signed_at":        sig.SignedAt.UTC().Format(time.RFC3339),
	})
}

// ConsentStatus reports whether a customer has signed the latest version.
func (h *Handler) ConsentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		http.Error(w, "customer_id required", http.StatusBadRequest)
		return
	}

	signedVersion, currentVersion, err := h.consents.CustomerStatus(r.Context(), customerID)
	if err != nil {
		http.Error(w, "failed to load consent status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id":     customerID,
		"signed_version":  signedVersion,
		"current_version": currentVersion,
		"up_to_date":      currentVersion > 0 && signedVersion >= currentVersion,
	})
}
