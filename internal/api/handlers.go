/**
 * @description
 * This file contains the HTTP handlers for the customer endpoints. Handlers
 * parse requests, call the application service, and translate results into
 * the response contract: 202 when work was queued on the broker, 200 when it
 * ran inline, 404/400/409/500 for the failure cases. Broker failures never
 * surface here; the service has already fallen back to inline execution.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/app"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
)

// Handlers holds the collaborators the HTTP layer depends on.
type Handlers struct {
	service      *app.Service
	auth         *app.AuthService
	limiter      *app.RedisRegistrationRateLimiter
	rateLimit    int
	maxCustomers int64
	storageDir   string
}

// NewHandlers creates the handler set. limiter may be nil (rate limiting off).
func NewHandlers(service *app.Service, auth *app.AuthService, limiter *app.RedisRegistrationRateLimiter, rateLimit int, maxCustomers int64, storageDir string) *Handlers {
	return &Handlers{
		service:      service,
		auth:         auth,
		limiter:      limiter,
		rateLimit:    rateLimit,
		maxCustomers: maxCustomers,
		storageDir:   storageDir,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handlers) customerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Customer not found")
		return uuid.Nil, false
	}
	return id, true
}

// ListCustomersHandler serves GET /api/customers.
func (h *Handlers) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch customers")
		return
	}
	h.writeJSON(w, http.StatusOK, customers)
}

// GetCustomerHandler serves GET /api/customers/{id}.
func (h *Handlers) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch customer")
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// CreateCustomerHandler serves POST /api/customers: the public registration
// endpoint. Optionally rate-limited per client IP when Redis is configured.
func (h *Handlers) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	if retryAfter, limited := h.consumeRegistrationSlot(r); limited {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many registration attempts. Please try again later.")
		return
	}

	var input domain.CustomerInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Validation failed",
			"details": []string{"invalid JSON payload"},
		})
		return
	}

	if details := input.Validate(); details != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Validation failed",
			"details": details,
		})
		return
	}

	customer, err := h.service.RegisterCustomer(r.Context(), input)
	if err != nil {
		if errors.Is(err, app.ErrRegistrationLimit) {
			h.writeJSON(w, http.StatusConflict, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("Registration limit of %d has been reached", h.maxCustomers),
			})
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Customer created successfully",
		"data":    customer,
	})
}

// consumeRegistrationSlot applies the per-IP rate limit. Limiter errors fail
// open: a broken Redis should not block registrations.
func (h *Handlers) consumeRegistrationSlot(r *http.Request) (retryAfter int, limited bool) {
	if h.limiter == nil || h.rateLimit <= 0 {
		return 0, false
	}
	subject := clientIP(r)
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), subject, h.rateLimit)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; failing open\" err=%v", err)
		return 0, false
	}
	if count > h.rateLimit {
		return retryAfter, true
	}
	return 0, false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DeleteCustomerHandler serves DELETE /api/customers/{id}.
func (h *Handlers) DeleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to delete customer")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Customer removed",
	})
}

// ApproveCustomerHandler serves PATCH /api/customers/{id}/approve. A 202
// means dossier generation was queued; a 200 carries the record with the
// freshly attached pdfPath.
func (h *Handlers) ApproveCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	customer, queued, err := h.service.ApproveCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to approve customer")
		return
	}

	if queued {
		h.writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true,
			"message": "Customer approved, PDF queued",
			"data":    customer,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Customer approved",
		"data":    customer,
	})
}

// RejectCustomerHandler serves PATCH /api/customers/{id}/reject.
func (h *Handlers) RejectCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	customer, err := h.service.RejectCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to reject customer")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Customer rejected",
		"data":    customer,
	})
}

// RegeneratePDFHandler serves POST /api/customers/{id}/pdf.
func (h *Handlers) RegeneratePDFHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	customer, queued, err := h.service.RegeneratePDF(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCustomerNotFound):
			h.writeError(w, http.StatusNotFound, "Customer not found")
		case errors.Is(err, app.ErrNotApproved):
			h.writeError(w, http.StatusBadRequest, "Only approved customers can generate PDFs")
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to generate PDF")
		}
		return
	}

	if queued {
		h.writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "PDF generation queued",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "PDF generated successfully",
		"pdfPath": customer.PdfPath,
		"data":    customer,
	})
}

// ServePDFHandler serves GET /pdfs/{file}: static delivery of generated
// dossiers. Only the base name is honored, so path traversal is not possible.
func (h *Handlers) ServePDFHandler(w http.ResponseWriter, r *http.Request) {
	file := filepath.Base(chi.URLParam(r, "file"))
	if file == "." || file == "/" || !strings.HasSuffix(file, ".pdf") {
		h.writeError(w, http.StatusNotFound, "Not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.storageDir, file))
}
