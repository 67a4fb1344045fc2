package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
)

// DeliveryStore defines the store methods needed by delivery handlers.
// Satisfied by *store.Store; narrow interface for testability.
type DeliveryStore interface {
	Deliveries(nit, status string) []model.Delivery
	Tracking(id string) (model.Tracking, error)
}

// DeliveryAdvancer moves a delivery to its next status.
// Satisfied by *service.DeliveryService.
type DeliveryAdvancer interface {
	Advance(id string) (model.Delivery, error)
}

// DeliveryHandler handles delivery tracking endpoints.
type DeliveryHandler struct {
	store   DeliveryStore
	advance DeliveryAdvancer
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(store DeliveryStore, advance DeliveryAdvancer) *DeliveryHandler {
	return &DeliveryHandler{store: store, advance: advance}
}

// RegisterRoutes registers delivery endpoints on the given Chi router.
// Expected to be mounted at /api/v1/entregas. {ref} is a NIT on the list
// endpoint and a delivery ID below it.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{ref}", h.ByNIT)
	r.Get("/{ref}/tracking", h.Tracking)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Post("/{ref}/avanzar", h.Advance)
}

// --- Handlers ---

// ByNIT lists the deliveries of one institution, optionally by status.
func (h *DeliveryHandler) ByNIT(w http.ResponseWriter, r *http.Request) {
	nit := chi.URLParam(r, "ref")
	if user := caller(r); !isStaff(user) && user.NIT != nit {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "nit access denied")
		return
	}

	status := r.URL.Query().Get("estado")
	if status != "" && !slices.Contains(enum.DeliveryStatuses, status) {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "unknown estado "+status)
		return
	}

	list := h.store.Deliveries(nit, status)
	writeJSON(w, http.StatusOK, model.DeliveryList{Total: len(list), Deliveries: list})
}

// Tracking returns a delivery with its event timeline.
func (h *DeliveryHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Tracking(chi.URLParam(r, "ref"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "delivery not found")
			return
		}
		writeInternal(w, err)
		return
	}
	if user := caller(r); !isStaff(user) && user.NIT != t.Delivery.NIT {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "delivery does not belong to the caller")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Advance moves a delivery one step along and notifies live followers.
func (h *DeliveryHandler) Advance(w http.ResponseWriter, r *http.Request) {
	d, err := h.advance.Advance(chi.URLParam(r, "ref"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "delivery not found")
		case errors.Is(err, store.ErrDeliveryFinal):
			writeError(w, http.StatusConflict, enum.ErrorCodeValidation, err.Error())
		default:
			writeInternal(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}
