package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/validation"
)

const defaultCustomerLimit = 20

// CustomerStore defines the store methods needed by customer handlers.
// Satisfied by *store.Store; narrow interface for testability.
type CustomerStore interface {
	Customers(f store.CustomerFilter) []model.Customer
	Customer(id int64) (model.Customer, error)
	CustomersByNIT(nit string) []model.Customer
}

// CustomerHandler handles the institution directory endpoints.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at /api/v1/clientes.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/mis-clientes", h.Mine)
	r.Get("/por-nit", h.ByNIT)
	r.Get("/tipos-institucion", h.InstitutionTypes)
	r.Get("/{id}", h.Get)
}

// --- Handlers ---

// Mine lists the customers assigned to an account manager. Managers see
// their own portfolio unless they are also admins.
func (h *CustomerHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if !isStaff(user) {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "only account managers have a portfolio")
		return
	}

	q := r.URL.Query()
	f := store.CustomerFilter{
		ManagerID:       q.Get("gerente_id"),
		Country:         q.Get("pais"),
		InstitutionType: q.Get("tipo_institucion"),
		Search:          strings.TrimSpace(q.Get("search")),
	}
	if !user.HasRole(enum.RoleAdmin) {
		if f.ManagerID != "" && f.ManagerID != user.ID {
			writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "cannot list another manager's customers")
			return
		}
		f.ManagerID = user.ID
	}
	if v := q.Get("activo"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "activo must be true or false")
			return
		}
		f.Active = &active
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultCustomerLimit)
	all := h.store.Customers(f)
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))

	writeJSON(w, http.StatusOK, model.CustomerPage{
		Total:     len(all),
		Page:      page,
		Limit:     limit,
		Customers: append([]model.Customer{}, all[start:end]...),
	})
}

// Get returns one customer. Institutional users may only read their own
// sites.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid customer id")
		return
	}

	c, err := h.store.Customer(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "customer not found")
			return
		}
		writeInternal(w, err)
		return
	}

	if user := caller(r); !isStaff(user) && user.NIT != c.NIT {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "customer does not belong to the caller")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ByNIT looks up the sites registered under a NIT. Malformed NITs are
// rejected so clients can retry with another spelling.
func (h *CustomerHandler) ByNIT(w http.ResponseWriter, r *http.Request) {
	nit := r.URL.Query().Get("nit")
	if err := validation.NIT(nit); err != nil {
		writeError(w, http.StatusUnprocessableEntity, enum.ErrorCodeValidation, "nit "+err.Error())
		return
	}

	if user := caller(r); !isStaff(user) && user.NIT != nit {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "nit access denied")
		return
	}

	found := h.store.CustomersByNIT(nit)
	writeJSON(w, http.StatusOK, model.CustomerPage{
		Total:     len(found),
		Page:      1,
		Limit:     max(len(found), 1),
		Customers: append([]model.Customer{}, found...),
	})
}

// InstitutionTypes lists the institution categories used for filtering.
func (h *CustomerHandler) InstitutionTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.InstitutionTypes{Types: enum.InstitutionTypes})
}
