package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/service"
	"github.com/medisupply/field-app/internal/store"
	"github.com/sirupsen/logrus"
)

const defaultOrdersPerPage = 10

// OrderServicer is the service used to place orders.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the read-only store methods needed by order handlers.
// Satisfied by *store.Store; narrow interface for testability.
type OrderStore interface {
	Orders(f store.OrderFilter) ([]model.Order, int)
	Order(id string) (model.Order, error)
	OrderHistory(id string) ([]model.StatusChange, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	log   logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, log: log}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /api/v1/pedidos.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/historial", h.History)
	})
}

// --- Handlers ---

// Create places an order. Stock is checked and decremented atomically; a
// short line answers 409 INSUFFICIENT_STOCK with the available quantity.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid request body")
		return
	}

	user := caller(r)
	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Caller: service.Caller{
			UserID:    user.ID,
			Roles:     user.Roles,
			NIT:       user.NIT,
			ClienteID: user.ClienteID,
		},
		OrderRequest: req,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	o := result.Order
	h.log.WithFields(logrus.Fields{
		"pedido_id": o.ID,
		"numero":    o.Reference,
		"nit":       o.NIT,
		"total":     o.Total.String(),
	}).Info("order created")

	writeJSON(w, http.StatusCreated, model.OrderCreated{
		OrderID:         o.ID,
		ReferenceNumber: o.Reference,
		Status:          o.Status,
		Total:           o.Total,
		CreatedAt:       o.CreatedAt,
	})
}

// List returns the caller's orders, newest first. Institutions see their
// own NIT, managers their own orders, admins everything.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	q := r.URL.Query()
	f := store.OrderFilter{
		NIT:     q.Get("nit"),
		Status:  q.Get("estado"),
		Page:    queryInt(r, "pagina", 1),
		PerPage: queryInt(r, "por_pagina", defaultOrdersPerPage),
	}

	switch {
	case user.HasRole(enum.RoleAdmin):
	case user.HasRole(enum.RoleAccountManager):
		f.ManagerID = user.ID
	default:
		if f.NIT != "" && f.NIT != user.NIT {
			writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "nit access denied")
			return
		}
		f.NIT = user.NIT
	}

	orders, total := h.store.Orders(f)
	writeJSON(w, http.StatusOK, model.OrderPage{
		Total:   total,
		Page:    f.Page,
		PerPage: f.PerPage,
		Orders:  append([]model.Order{}, orders...),
	})
}

// Get returns one order with its lines.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// History returns the status changes of one order, oldest first.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	o, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}

	changes, err := h.store.OrderHistory(o.ID)
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.OrderHistory{OrderID: o.ID, Changes: changes})
}

// --- Helpers ---

// visibleOrder loads the order in the URL and checks the caller may see it.
// It writes the error response itself.
func (h *OrderHandler) visibleOrder(w http.ResponseWriter, r *http.Request) (model.Order, bool) {
	o, err := h.store.Order(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "order not found")
			return model.Order{}, false
		}
		writeInternal(w, err)
		return model.Order{}, false
	}
	if !canSeeOrder(caller(r), o) {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "order does not belong to the caller")
		return model.Order{}, false
	}
	return o, true
}

func canSeeOrder(u auth.User, o model.Order) bool {
	switch {
	case u.HasRole(enum.RoleAdmin):
		return true
	case u.HasRole(enum.RoleAccountManager):
		return o.ManagerID == u.ID
	}
	return o.NIT == u.NIT
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error) {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, http.StatusConflict, model.ErrorBody{
			Error:     enum.ErrorCodeInsufficientStock,
			Message:   stockErr.Error(),
			Available: &available,
		})
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, err.Error())
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, err.Error())
	case errors.Is(err, service.ErrCustomerForbidden):
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, err.Error())
	default:
		writeInternal(w, err)
	}
}

// isValidationError checks if the error is a client-side validation error.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrMissingCustomer) ||
		errors.Is(err, service.ErrCustomerInactive)
}
