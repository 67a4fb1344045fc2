package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/shopspring/decimal"
)

// deliveryLeadTime is how far ahead new deliveries are scheduled.
const deliveryLeadTime = 48 * time.Hour

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidProductID  = errors.New("invalid productId")
	ErrProductNotFound   = errors.New("product not found")
	ErrMissingCustomer   = errors.New("customerId is required")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCustomerForbidden = errors.New("customer does not belong to the caller")
	ErrCustomerInactive  = errors.New("customer is inactive")
)

// InsufficientStockError reports the first line that cannot be served.
type InsufficientStockError struct {
	ProductID uuid.UUID
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// OrderStore defines the store methods needed to create orders inside one
// transaction. Satisfied by *store.Tx.
type OrderStore interface {
	NextOrderNumber() int
	ProductForOrder(id uuid.UUID) (model.Product, error)
	CustomerForOrder(id int64) (model.Customer, error)
	SetStock(id uuid.UUID, stock int)
	CreateOrder(o model.Order, first model.StatusChange)
	CreateDelivery(d model.Delivery, first model.TrackingEvent)
}

// TxRunner runs fn atomically: either every write fn makes is committed or
// none is.
type TxRunner func(ctx context.Context, fn func(OrderStore) error) error

// StoreTx adapts *store.Store to a TxRunner.
func StoreTx(s *store.Store) TxRunner {
	return func(ctx context.Context, fn func(OrderStore) error) error {
		return s.InTx(ctx, func(tx *store.Tx) error { return fn(tx) })
	}
}

// Notifier receives delivery changes for the live feed. Satisfied by
// *ws.Hub.
type Notifier interface {
	DeliveryChanged(eventType string, d model.Delivery)
}

// Caller is the identity placing the order, taken from the token.
type Caller struct {
	UserID    string
	Roles     []string
	NIT       string
	ClienteID int64
}

func (c Caller) institutional() bool {
	return slices.Contains(c.Roles, enum.RoleInstitutional) && !slices.Contains(c.Roles, enum.RoleAccountManager)
}

// CreateOrderRequest is the input for creating an order.
type CreateOrderRequest struct {
	Caller Caller
	model.OrderRequest
}

// CreateOrderResult is the committed order and its delivery.
type CreateOrderResult struct {
	Order    model.Order
	Delivery model.Delivery
}

// OrderService handles order business logic.
type OrderService struct {
	inTx   TxRunner
	notify Notifier
	now    func() time.Time
}

// NewOrderService creates a new OrderService. notify may be nil.
func NewOrderService(inTx TxRunner, notify Notifier) *OrderService {
	return &OrderService{inTx: inTx, notify: notify, now: time.Now}
}

// processedItem is a request line after merging duplicates.
type processedItem struct {
	productID uuid.UUID
	quantity  int
}

// CreateOrder validates the request, checks and decrements stock, and
// creates the order with its delivery atomically. Prices come from the
// catalog, not from the request.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate items ---
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	// --- Resolve customer ---
	customerID := req.CustomerID
	if req.Caller.institutional() && customerID == 0 {
		customerID = req.Caller.ClienteID
	}
	if customerID <= 0 {
		return nil, ErrMissingCustomer
	}

	var result CreateOrderResult
	err = s.inTx(ctx, func(st OrderStore) error {
		customer, err := st.CustomerForOrder(customerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("get customer: %w", err)
		}
		if req.Caller.institutional() && customer.NIT != req.Caller.NIT {
			return ErrCustomerForbidden
		}
		if !customer.Active {
			return ErrCustomerInactive
		}

		// --- Check stock and price lines ---
		total := decimal.Zero
		lines := make([]model.OrderLine, 0, len(items))
		for i, item := range items {
			product, err := st.ProductForOrder(item.productID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
				}
				return fmt.Errorf("item[%d]: get product: %w", i, err)
			}
			if product.Stock < item.quantity {
				return &InsufficientStockError{
					ProductID: product.ProductID,
					SKU:       product.SKU,
					Requested: item.quantity,
					Available: product.Stock,
				}
			}
			st.SetStock(product.ProductID, product.Stock-item.quantity)

			subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(item.quantity)))
			total = total.Add(subtotal)
			lines = append(lines, model.OrderLine{
				ProductID:   product.ProductID,
				ProductName: product.Name,
				Quantity:    item.quantity,
				UnitPrice:   product.UnitPrice,
				Subtotal:    subtotal,
			})
		}

		// --- Insert order and delivery ---
		now := s.now()
		managerID := req.AccountManagerID
		if managerID == "" && !req.Caller.institutional() {
			managerID = req.Caller.UserID
		}
		order := model.Order{
			ID:         uuid.NewString(),
			Reference:  fmt.Sprintf("PED-%06d", st.NextOrderNumber()),
			CustomerID: customer.ID,
			ManagerID:  managerID,
			NIT:        customer.NIT,
			Status:     enum.OrderStatusPending,
			Total:      total,
			Notes:      req.Notes,
			CreatedAt:  now,
			Lines:      lines,
		}
		st.CreateOrder(order, model.StatusChange{Status: enum.OrderStatusPending, At: now, Comment: "Pedido creado"})

		delivery := model.Delivery{
			ID:           "ENT-" + order.ID[:8],
			OrderID:      order.ID,
			OrderRef:     order.Reference,
			NIT:          customer.NIT,
			Status:       enum.DeliveryStatusScheduled,
			Address:      customer.Address,
			ScheduledFor: now.Add(deliveryLeadTime),
		}
		st.CreateDelivery(delivery, model.TrackingEvent{Status: enum.DeliveryStatusScheduled, At: now, Description: "Entrega programada"})

		result = CreateOrderResult{Order: order, Delivery: delivery}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.DeliveryChanged(enum.EventOrderCreated, result.Delivery)
	}
	return &result, nil
}

// mergeItems validates request lines and sums duplicate products, keeping
// first-seen order.
func mergeItems(in []model.OrderItem) ([]processedItem, error) {
	out := make([]processedItem, 0, len(in))
	index := make(map[uuid.UUID]int, len(in))
	for i, item := range in {
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if j, ok := index[item.ProductID]; ok {
			out[j].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, processedItem{productID: item.ProductID, quantity: item.Quantity})
	}
	return out, nil
}
