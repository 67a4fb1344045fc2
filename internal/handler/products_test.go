package handler_test

import (
	"net/http"
	"testing"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/handler"
	"github.com/medisupply/field-app/internal/model"
)

const (
	amoxicillinID = "8924378c-95ce-4de4-80ae-a71512e37801" // MED-001, 120 units
	salineID      = "d5dcc438-6101-4885-a8d7-f68f91c9f22f" // MED-005, 300 units
)

func productRouter(t *testing.T) http.Handler {
	return mount("/productos", handler.NewProductHandler(newStore(t)).RegisterRoutes)
}

func TestProductList(t *testing.T) {
	router := productRouter(t)
	token := tokenFor(t, manager)

	rr := do(t, router, "GET", "/productos?page=1&page_size=3", token, nil)
	expectStatus(t, rr, http.StatusOK)

	page := decodeResponse[model.ProductPage](t, rr)
	if page.Total != 8 {
		t.Errorf("total: got %d, want 8", page.Total)
	}
	if len(page.Items) != 3 || page.PageSize != 3 {
		t.Fatalf("page: got %d items, size %d", len(page.Items), page.PageSize)
	}
	for _, p := range page.Items {
		if p.StockStatus != enum.StockStatusFor(p.Stock) {
			t.Errorf("%s: stock status %q for stock %d", p.SKU, p.StockStatus, p.Stock)
		}
	}
}

func TestProductList_BySKU(t *testing.T) {
	router := productRouter(t)

	rr := do(t, router, "GET", "/productos?sku=med-004", tokenFor(t, clinic), nil)
	expectStatus(t, rr, http.StatusOK)

	page := decodeResponse[model.ProductPage](t, rr)
	if len(page.Items) != 1 || page.Items[0].SKU != "MED-004" {
		t.Fatalf("items: got %+v", page.Items)
	}
	if page.Items[0].StockStatus != enum.StockStatusOutOfStock {
		t.Errorf("stock status: got %q", page.Items[0].StockStatus)
	}
}

func TestProductList_PastLastPage(t *testing.T) {
	rr := do(t, productRouter(t), "GET", "/productos?page=9&page_size=5", tokenFor(t, manager), nil)
	expectStatus(t, rr, http.StatusOK)

	page := decodeResponse[model.ProductPage](t, rr)
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("items: want empty list, got %v", page.Items)
	}
}

func TestStockCheck(t *testing.T) {
	router := productRouter(t)
	token := tokenFor(t, manager)

	tests := []struct {
		name      string
		id        string
		qty       int
		status    int
		valid     bool
		available int
	}{
		{"enough", amoxicillinID, 120, http.StatusOK, true, 120},
		{"too many", amoxicillinID, 121, http.StatusOK, false, 120},
		{"unknown product", "00000000-0000-0000-0000-000000000001", 1, http.StatusNotFound, false, 0},
		{"bad id", "abc", 1, http.StatusBadRequest, false, 0},
		{"zero quantity", amoxicillinID, 0, http.StatusBadRequest, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "POST", "/productos/"+tt.id+"/stock-check", token, model.StockCheckRequest{RequestedQuantity: tt.qty})
			expectStatus(t, rr, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			check := decodeResponse[model.StockCheck](t, rr)
			if check.Valid != tt.valid || check.Available != tt.available {
				t.Errorf("check: got %+v", check)
			}
			if !check.Valid && check.Message == "" {
				t.Error("expected message on invalid check")
			}
		})
	}
}

func TestProducts_RequireToken(t *testing.T) {
	rr := do(t, productRouter(t), "GET", "/productos", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}
