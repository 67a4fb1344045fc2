package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

// --- Mock implementations ---

// mockOrderStore implements OrderStore over plain maps. Writes are recorded
// so tests can check what a committed transaction would persist.
type mockOrderStore struct {
	products   map[uuid.UUID]model.Product
	customers  map[int64]model.Customer
	seq        int
	orders     []model.Order
	deliveries []model.Delivery
}

func (m *mockOrderStore) NextOrderNumber() int {
	m.seq++
	return m.seq
}

func (m *mockOrderStore) ProductForOrder(id uuid.UUID) (model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return model.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (m *mockOrderStore) CustomerForOrder(id int64) (model.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return model.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (m *mockOrderStore) SetStock(id uuid.UUID, stock int) {
	p := m.products[id]
	p.Stock = stock
	m.products[id] = p
}

func (m *mockOrderStore) CreateOrder(o model.Order, _ model.StatusChange) {
	m.orders = append(m.orders, o)
}

func (m *mockOrderStore) CreateDelivery(d model.Delivery, _ model.TrackingEvent) {
	m.deliveries = append(m.deliveries, d)
}

// mockNotifier records broadcast events.
type mockNotifier struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotifier) DeliveryChanged(eventType string, d model.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType+":"+d.NIT)
}

// --- Test helpers ---

var (
	gloves  = uuid.MustParse("459b0c34-7c9e-49bc-9e42-f2bdec9ed701")
	saline  = uuid.MustParse("d5dcc438-6101-4885-a8d7-f68f91c9f22f")
	manager = Caller{UserID: "17", Roles: []string{enum.RoleAccountManager}}
)

func defaultStore() *mockOrderStore {
	return &mockOrderStore{
		products: map[uuid.UUID]model.Product{
			gloves: {ProductID: gloves, SKU: "MED-002", Name: "Guantes", UnitPrice: decimal.RequireFromString("32000"), Stock: 8},
			saline: {ProductID: saline, SKU: "MED-005", Name: "Solución salina", UnitPrice: decimal.RequireFromString("4200.50"), Stock: 300},
		},
		customers: map[int64]model.Customer{
			1: {ID: 1, NIT: "900123456", Active: true, Address: "Calle 127"},
			4: {ID: 4, NIT: "900123456", Active: false},
		},
	}
}

// newTestService runs every transaction directly against st. Failed
// transactions are not rolled back, so tests only inspect st after success.
func newTestService(st *mockOrderStore) (*OrderService, *mockNotifier) {
	n := &mockNotifier{}
	inTx := func(ctx context.Context, fn func(OrderStore) error) error { return fn(st) }
	svc := NewOrderService(inTx, n)
	svc.now = func() time.Time { return time.Date(2025, 11, 25, 9, 0, 0, 0, time.UTC) }
	return svc, n
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	st := defaultStore()
	svc, n := newTestService(st)

	res, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Caller: manager,
		OrderRequest: model.OrderRequest{
			CustomerID: 1,
			Items: []model.OrderItem{
				{ProductID: gloves, Quantity: 2},
				{ProductID: saline, Quantity: 10, UnitPrice: decimal.NewFromInt(1)},
				{ProductID: gloves, Quantity: 1},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Order.Reference != "PED-000001" {
		t.Errorf("reference = %q, want PED-000001", res.Order.Reference)
	}
	if res.Order.Status != enum.OrderStatusPending {
		t.Errorf("status = %q", res.Order.Status)
	}
	if len(res.Order.Lines) != 2 {
		t.Fatalf("lines = %d, want 2 (duplicates merged)", len(res.Order.Lines))
	}
	// 3 * 32000 + 10 * 4200.50, catalog prices win over the request.
	if want := decimal.RequireFromString("138005"); !res.Order.Total.Equal(want) {
		t.Errorf("total = %s, want %s", res.Order.Total, want)
	}
	if res.Order.ManagerID != "17" {
		t.Errorf("manager = %q, want caller id", res.Order.ManagerID)
	}
	if st.products[gloves].Stock != 5 {
		t.Errorf("gloves stock = %d, want 5", st.products[gloves].Stock)
	}
	if res.Delivery.Status != enum.DeliveryStatusScheduled || res.Delivery.NIT != "900123456" {
		t.Errorf("delivery = %+v", res.Delivery)
	}
	if len(n.events) != 1 || n.events[0] != enum.EventOrderCreated+":900123456" {
		t.Errorf("events = %v", n.events)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc, n := newTestService(defaultStore())

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Caller:       manager,
		OrderRequest: model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{{ProductID: gloves, Quantity: 9}}},
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 8 || stockErr.SKU != "MED-002" {
		t.Errorf("stock error = %+v", stockErr)
	}
	if len(n.events) != 0 {
		t.Error("no event expected on failure")
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	unknown := uuid.New()
	tests := []struct {
		name   string
		caller Caller
		req    model.OrderRequest
		want   error
	}{
		{"no items", manager, model.OrderRequest{CustomerID: 1}, ErrEmptyItems},
		{"zero quantity", manager, model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{{ProductID: gloves}}}, ErrInvalidQuantity},
		{"nil product", manager, model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{{Quantity: 1}}}, ErrInvalidProductID},
		{"no customer", manager, model.OrderRequest{Items: []model.OrderItem{{ProductID: gloves, Quantity: 1}}}, ErrMissingCustomer},
		{"unknown customer", manager, model.OrderRequest{CustomerID: 99, Items: []model.OrderItem{{ProductID: gloves, Quantity: 1}}}, ErrCustomerNotFound},
		{"inactive customer", manager, model.OrderRequest{CustomerID: 4, Items: []model.OrderItem{{ProductID: gloves, Quantity: 1}}}, ErrCustomerInactive},
		{"unknown product", manager, model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{{ProductID: unknown, Quantity: 1}}}, ErrProductNotFound},
		{
			"institution orders for another nit",
			Caller{UserID: "42", Roles: []string{enum.RoleInstitutional}, NIT: "800456789", ClienteID: 1},
			model.OrderRequest{Items: []model.OrderItem{{ProductID: gloves, Quantity: 1}}},
			ErrCustomerForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(defaultStore())
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{Caller: tt.caller, OrderRequest: tt.req})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateOrder_InstitutionalDefaultsToOwnCustomer(t *testing.T) {
	st := defaultStore()
	svc, _ := newTestService(st)

	res, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Caller:       Caller{UserID: "42", Roles: []string{enum.RoleInstitutional}, NIT: "900123456", ClienteID: 1},
		OrderRequest: model.OrderRequest{Items: []model.OrderItem{{ProductID: saline, Quantity: 1}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Order.CustomerID != 1 || res.Order.ManagerID != "" {
		t.Errorf("order = %+v", res.Order)
	}
}

func TestCreateOrder_RealStoreIsAtomic(t *testing.T) {
	f, err := store.DefaultFixture()
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.New(f)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewOrderService(StoreTx(st), nil)

	// Second line fails: the first line's decrement must not persist.
	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		Caller: manager,
		OrderRequest: model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{
			{ProductID: saline, Quantity: 5},
			{ProductID: gloves, Quantity: 50},
		}},
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected stock error, got %v", err)
	}
	p, _ := st.Product(saline)
	if p.Stock != 300 {
		t.Errorf("saline stock = %d, want 300 after rollback", p.Stock)
	}

	// Concurrent orders for the last units: exactly eight single-unit orders
	// succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				Caller:       manager,
				OrderRequest: model.OrderRequest{CustomerID: 1, Items: []model.OrderItem{{ProductID: gloves, Quantity: 1}}},
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 8 {
		t.Errorf("successful orders = %d, want 8", ok)
	}
	orders, total := st.Orders(store.OrderFilter{NIT: "900123456", PerPage: 50})
	if total != 8 || !strings.HasPrefix(orders[0].Reference, "PED-0000") {
		t.Errorf("orders = %d, first ref %q", total, orders[0].Reference)
	}
}

// --- Delivery service ---

type mockDeliveryStore struct {
	mu      sync.Mutex
	pending []model.Delivery
	err     error
}

func (m *mockDeliveryStore) AdvanceDelivery(id string, _ time.Time) (model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Delivery{}, m.err
	}
	for i, d := range m.pending {
		if d.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			d.Status = enum.DeliveryStatusEnRoute
			return d, nil
		}
	}
	return model.Delivery{}, store.ErrNotFound
}

func (m *mockDeliveryStore) PendingDeliveries() []model.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Delivery(nil), m.pending...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDeliveryService_Advance(t *testing.T) {
	st := &mockDeliveryStore{pending: []model.Delivery{{ID: "ENT-1", NIT: "900"}}}
	n := &mockNotifier{}
	svc := NewDeliveryService(st, n, quietLogger())

	d, err := svc.Advance("ENT-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != enum.DeliveryStatusEnRoute {
		t.Errorf("status = %q", d.Status)
	}
	if len(n.events) != 1 || n.events[0] != enum.EventDeliveryUpdated+":900" {
		t.Errorf("events = %v", n.events)
	}

	if _, err := svc.Advance("ENT-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeliveryService_Simulate(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := &mockDeliveryStore{pending: []model.Delivery{{ID: "ENT-1"}, {ID: "ENT-2"}}}
	n := &mockNotifier{}
	svc := NewDeliveryService(st, n, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Simulate(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(st.PendingDeliveries()) > 0 {
		select {
		case <-deadline:
			t.Fatal("deliveries not advanced")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) != 2 {
		t.Errorf("events = %v, want 2", n.events)
	}
}
