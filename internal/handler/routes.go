package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
)

// RouteStore defines the store methods needed by route handlers.
// Satisfied by *store.Store; narrow interface for testability.
type RouteStore interface {
	Route(managerID, date string) (model.Route, error)
}

// RouteHandler serves the planned daily visit routes.
type RouteHandler struct {
	store RouteStore
	now   func() time.Time
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(store RouteStore) *RouteHandler {
	return &RouteHandler{store: store, now: time.Now}
}

// RegisterRoutes registers route endpoints on the given Chi router.
// Expected to be mounted at /api/v1/rutas-visitas.
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ForDay)
}

// ForDay returns a manager's route for ?fecha= (today by default).
func (h *RouteHandler) ForDay(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	q := r.URL.Query()

	managerID := q.Get("gerente_id")
	if managerID == "" {
		managerID = user.ID
	}
	if managerID != user.ID && !user.HasRole(enum.RoleAdmin) {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "cannot read another manager's route")
		return
	}

	date := q.Get("fecha")
	if date == "" {
		date = h.now().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "fecha must be YYYY-MM-DD")
		return
	}

	route, err := h.store.Route(managerID, date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "no route planned for "+date)
			return
		}
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}
