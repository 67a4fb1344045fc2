package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
)

const defaultProductPageSize = 20

// ProductStore defines the store methods needed by product handlers.
// Satisfied by *store.Store; narrow interface for testability.
type ProductStore interface {
	Products(sku string) []model.Product
	Product(id uuid.UUID) (model.Product, error)
}

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
// Expected to be mounted at /api/v1/productos.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{id}/stock-check", h.StockCheck)
}

// --- Handlers ---

// List returns one page of the catalog with each product's stock status.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", defaultProductPageSize)

	all := h.store.Products(r.URL.Query().Get("sku"))
	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))

	items := make([]model.Product, 0, end-start)
	for _, p := range all[start:end] {
		p.StockStatus = enum.StockStatusFor(p.Stock)
		items = append(items, p)
	}

	writeJSON(w, http.StatusOK, model.ProductPage{
		Items:    items,
		Total:    len(all),
		Page:     page,
		PageSize: size,
	})
}

// StockCheck reports whether the requested quantity is available now.
func (h *ProductHandler) StockCheck(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid product id")
		return
	}

	var req model.StockCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid request body")
		return
	}
	if req.RequestedQuantity <= 0 {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "requestedQuantity must be > 0")
		return
	}

	p, err := h.store.Product(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "product not found")
			return
		}
		writeInternal(w, err)
		return
	}

	check := model.StockCheck{
		Valid:     req.RequestedQuantity <= p.Stock,
		Available: p.Stock,
	}
	if !check.Valid {
		check.Message = fmt.Sprintf("Stock insuficiente: solicitado %d, disponible %d", req.RequestedQuantity, p.Stock)
	}
	writeJSON(w, http.StatusOK, check)
}
