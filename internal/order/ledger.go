package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/model"
)

// Catalog is the product source and stock authority the ledger consults.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	CheckStock(ctx context.Context, productID uuid.UUID, qty int) (*model.StockCheck, error)
}

// APICatalog adapts the gateway products API to Catalog.
type APICatalog struct {
	Products *api.ProductsAPI
}

func (c APICatalog) ListProducts(ctx context.Context) ([]model.Product, error) {
	return c.Products.All(ctx)
}

func (c APICatalog) CheckStock(ctx context.Context, productID uuid.UUID, qty int) (*model.StockCheck, error) {
	return c.Products.CheckStock(ctx, productID, qty)
}

// Product is a catalog entry plus the stock still addable to the cart.
type Product struct {
	model.Product
	LocalStock int
}

// Ledger tracks, per SKU, how much stock the cart may still take. It is
// adjusted optimistically as items enter and leave the cart and resynced
// from the server on Reload. Not safe for concurrent use; the owning wizard
// serializes access.
type Ledger struct {
	catalog  Catalog
	products []Product
	index    map[string]int
	// held reports what the owning cart holds per SKU.
	held func() map[string]int
}

func NewLedger(c Catalog) *Ledger {
	return &Ledger{catalog: c, index: map[string]int{}}
}

// Products returns a snapshot of the loaded catalog in server order.
func (l *Ledger) Products() []Product {
	out := make([]Product, len(l.products))
	copy(out, l.products)
	return out
}

func (l *Ledger) Product(sku string) (Product, bool) {
	i, ok := l.index[sku]
	if !ok {
		return Product{}, false
	}
	return l.products[i], true
}

// Available is the locally tracked stock for sku. ok is false for SKUs not
// in the loaded catalog.
func (l *Ledger) Available(sku string) (n int, ok bool) {
	i, ok := l.index[sku]
	if !ok {
		return 0, false
	}
	return l.products[i].LocalStock, true
}

// CheckAvailability asks the server whether qty units of the product exist.
func (l *Ledger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (*model.StockCheck, error) {
	check, err := l.catalog.CheckStock(ctx, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	return check, nil
}

// Reserve takes qty from the local stock of sku, clamped at zero.
func (l *Ledger) Reserve(sku string, qty int) {
	i, ok := l.index[sku]
	if !ok || qty <= 0 {
		return
	}
	l.products[i].LocalStock = max(0, l.products[i].LocalStock-qty)
}

// Release returns qty to the local stock of sku.
func (l *Ledger) Release(sku string, qty int) {
	i, ok := l.index[sku]
	if !ok || qty <= 0 {
		return
	}
	l.products[i].LocalStock += qty
}

// Observe records a fresh server availability for sku, of which held units
// are already in the cart.
func (l *Ledger) Observe(sku string, available, held int) {
	i, ok := l.index[sku]
	if !ok {
		return
	}
	l.products[i].Stock = available
	l.products[i].LocalStock = max(0, available-held)
}

// Reload refetches the catalog. Local stock becomes server stock minus what
// the cart still holds.
func (l *Ledger) Reload(ctx context.Context) error {
	items, err := l.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("reload products: %w", err)
	}

	var held map[string]int
	if l.held != nil {
		held = l.held()
	}

	products := make([]Product, len(items))
	index := make(map[string]int, len(items))
	for i, p := range items {
		products[i] = Product{Product: p, LocalStock: max(0, p.Stock-held[p.SKU])}
		index[p.SKU] = i
	}
	l.products = products
	l.index = index
	return nil
}
