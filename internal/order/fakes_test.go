package order_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/model"
	"github.com/shopspring/decimal"
)

var (
	p1 = model.Product{ProductID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), SKU: "MED-001", Name: "Jeringa 5ml", UnitPrice: decimal.RequireFromString("1250.50")}
	p2 = model.Product{ProductID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), SKU: "MED-002", Name: "Guantes nitrilo", UnitPrice: decimal.RequireFromString("32000")}
	p3 = model.Product{ProductID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), SKU: "MED-003", Name: "Alcohol 70%", UnitPrice: decimal.RequireFromString("8999.99")}
)

// fakeCatalog serves a fixed catalog whose server stock tests can change.
type fakeCatalog struct {
	mu         sync.Mutex
	products   []model.Product
	stock      map[string]int
	listCalls  int
	checkCalls int
	listErr    error
	checkErr   error
	// invalid forces every stock check to report valid=false.
	invalid bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []model.Product{p1, p2, p3},
		stock:    map[string]int{p1.SKU: 10, p2.SKU: 20, p3.SKU: 0},
	}
}

func (f *fakeCatalog) setStock(sku string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[sku] = n
}

func (f *fakeCatalog) ListProducts(context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Product, len(f.products))
	for i, p := range f.products {
		p.Stock = f.stock[p.SKU]
		out[i] = p
	}
	return out, nil
}

func (f *fakeCatalog) CheckStock(_ context.Context, id uuid.UUID, qty int) (*model.StockCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	for _, p := range f.products {
		if p.ProductID != id {
			continue
		}
		avail := f.stock[p.SKU]
		return &model.StockCheck{Valid: !f.invalid && qty <= avail, Available: avail}, nil
	}
	return &model.StockCheck{Valid: false, Message: "product not found"}, nil
}

func (f *fakeCatalog) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeSubmitter struct {
	requests []model.OrderRequest
	err      error
	during   func()
	created  model.OrderCreated
	empty    bool // succeed without returning an order
}

func (f *fakeSubmitter) Create(_ context.Context, req model.OrderRequest) (*model.OrderCreated, error) {
	f.requests = append(f.requests, req)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	c := f.created
	return &c, nil
}
