package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/model"
)

// Tx stages order writes. Nothing is visible to readers until the function
// passed to InTx returns nil.
type Tx struct {
	s          *Store
	stock      map[uuid.UUID]int
	orders     []model.Order
	changes    map[string]model.StatusChange
	deliveries []DeliveryRecord
	seq        int
}

// InTx runs fn with the store write-locked and commits its staged writes
// when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		s:       s,
		stock:   make(map[uuid.UUID]int),
		changes: make(map[string]model.StatusChange),
		seq:     s.orderSeq,
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, n := range tx.stock {
		s.products[id].Stock = n
	}
	for _, o := range tx.orders {
		s.orders[o.ID] = &o
		s.history[o.ID] = append(s.history[o.ID], tx.changes[o.ID])
	}
	for _, d := range tx.deliveries {
		s.deliveries[d.ID] = &d
	}
	s.orderSeq = tx.seq
	return nil
}

// NextOrderNumber reserves the next sequential order number.
func (tx *Tx) NextOrderNumber() int {
	tx.seq++
	return tx.seq
}

// ProductForOrder returns the product with stock as staged in this tx.
func (tx *Tx) ProductForOrder(id uuid.UUID) (model.Product, error) {
	p, ok := tx.s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	out := *p
	if n, staged := tx.stock[id]; staged {
		out.Stock = n
	}
	return out, nil
}

func (tx *Tx) CustomerForOrder(id int64) (model.Customer, error) {
	c, ok := tx.s.customers[id]
	if !ok {
		return model.Customer{}, ErrNotFound
	}
	return *c, nil
}

func (tx *Tx) SetStock(id uuid.UUID, stock int) {
	tx.stock[id] = stock
}

func (tx *Tx) CreateOrder(o model.Order, first model.StatusChange) {
	tx.orders = append(tx.orders, o)
	tx.changes[o.ID] = first
}

func (tx *Tx) CreateDelivery(d model.Delivery, first model.TrackingEvent) {
	tx.deliveries = append(tx.deliveries, DeliveryRecord{Delivery: d, Events: []model.TrackingEvent{first}})
}

// --- Order queries ---

type OrderFilter struct {
	NIT        string
	ManagerID  string
	CustomerID int64
	Status     string
	Page       int
	PerPage    int
}

// Orders returns one page of matching orders, newest first, and the total
// match count.
func (s *Store) Orders(f OrderFilter) ([]model.Order, int) {
	s.mu.RLock()
	var all []model.Order
	for _, o := range s.orders {
		switch {
		case f.NIT != "" && o.NIT != f.NIT:
			continue
		case f.ManagerID != "" && o.ManagerID != f.ManagerID:
			continue
		case f.CustomerID != 0 && o.CustomerID != f.CustomerID:
			continue
		case f.Status != "" && o.Status != f.Status:
			continue
		}
		all = append(all, *o)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b model.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.Reference, a.Reference))
	})
	total := len(all)
	page, per := max(f.Page, 1), max(f.PerPage, 1)
	start := min((page-1)*per, total)
	end := min(start+per, total)
	return all[start:end], total
}

func (s *Store) Order(id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return *o, nil
}

func (s *Store) OrderHistory(id string) ([]model.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(h), nil
}
