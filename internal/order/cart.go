package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/model"
	"github.com/shopspring/decimal"
)

type LineItem struct {
	SKU       string
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Totals struct {
	Lines int
	Units int
	Total decimal.Decimal
}

// Cart holds at most one line per SKU, in insertion order. Every quantity
// increase is checked against the server; rejected increases leave the line
// untouched and refresh the catalog.
type Cart struct {
	ledger *Ledger
	lines  []LineItem
}

// NewCart returns an empty cart that owns l.
func NewCart(l *Ledger) *Cart {
	c := &Cart{ledger: l}
	l.held = c.quantities
	return c
}

func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(sku string) (LineItem, bool) {
	if i := c.find(sku); i >= 0 {
		return c.lines[i], true
	}
	return LineItem{}, false
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// AddItem puts qty units of p in the cart, merging into an existing line.
func (c *Cart) AddItem(ctx context.Context, p model.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if _, known := c.ledger.Product(p.SKU); !known {
		return ErrUnknownProduct
	}

	existing := 0
	if line, ok := c.Line(p.SKU); ok {
		existing = line.Quantity
	}
	if err := c.checkIncrease(ctx, p.SKU, p.ProductID, p.Name, existing, existing+qty); err != nil {
		return err
	}

	c.ledger.Reserve(p.SKU, qty)
	if i := c.find(p.SKU); i >= 0 {
		c.lines[i].Quantity += qty
		return nil
	}
	c.lines = append(c.lines, LineItem{
		SKU:       p.SKU,
		ProductID: p.ProductID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  qty,
	})
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Non-positive
// quantities remove the line. Increases the stock cannot cover are rejected
// and the line keeps its previous quantity.
func (c *Cart) UpdateQuantity(ctx context.Context, sku string, qty int) error {
	i := c.find(sku)
	if i < 0 {
		return ErrNotInCart
	}
	if qty <= 0 {
		return c.RemoveItem(sku)
	}

	line := c.lines[i]
	switch {
	case qty == line.Quantity:
		return nil
	case qty < line.Quantity:
		c.ledger.Release(sku, line.Quantity-qty)
	default:
		if err := c.checkIncrease(ctx, sku, line.ProductID, line.Name, line.Quantity, qty); err != nil {
			return err
		}
		c.ledger.Reserve(sku, qty-line.Quantity)
	}
	c.lines[i].Quantity = qty
	return nil
}

// RemoveItem deletes the line and returns its quantity to the ledger.
func (c *Cart) RemoveItem(sku string) error {
	i := c.find(sku)
	if i < 0 {
		return ErrNotInCart
	}
	line := c.lines[i]
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.ledger.Release(sku, line.Quantity)
	return nil
}

// Totals derives line count, units and grand total from the current lines.
func (c *Cart) Totals() Totals {
	t := Totals{Lines: len(c.lines), Total: decimal.Zero}
	for _, li := range c.lines {
		t.Units += li.Quantity
		t.Total = t.Total.Add(li.Subtotal())
	}
	return t
}

// Discard empties the cart, returning every line to the ledger.
func (c *Cart) Discard() {
	for len(c.lines) > 0 {
		_ = c.RemoveItem(c.lines[0].SKU)
	}
}

// reset drops the lines without touching the ledger; used once the server
// has consumed the stock.
func (c *Cart) reset() {
	c.lines = nil
}

// checkIncrease validates growing a line from held to want units against
// the server. Local stock may be stale (restocks, other devices), so it
// never decides a rejection. On success the ledger holds the server's figure.
func (c *Cart) checkIncrease(ctx context.Context, sku string, productID uuid.UUID, name string, held, want int) error {
	check, err := c.ledger.CheckAvailability(ctx, productID, want)
	if err != nil {
		return err
	}
	if !check.Valid || want > check.Available {
		return c.rejectStock(ctx, &StockError{SKU: sku, Name: name, Requested: want, Available: check.Available})
	}
	c.ledger.Observe(sku, check.Available, held)
	return nil
}

func (c *Cart) rejectStock(ctx context.Context, stockErr *StockError) error {
	if err := c.ledger.Reload(ctx); err != nil {
		return errors.Join(stockErr, err)
	}
	return stockErr
}

func (c *Cart) quantities() map[string]int {
	m := make(map[string]int, len(c.lines))
	for _, li := range c.lines {
		m[li.SKU] += li.Quantity
	}
	return m
}

func (c *Cart) find(sku string) int {
	for i, li := range c.lines {
		if li.SKU == sku {
			return i
		}
	}
	return -1
}
