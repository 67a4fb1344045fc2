package order

import (
	"errors"
	"fmt"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/enum"
)

var (
	ErrNoCustomer      = errors.New("select a customer first")
	ErrEmptyCart       = errors.New("add at least one product")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrNoPreviousStep  = errors.New("no previous step")
	ErrWizardClosed    = errors.New("order wizard is closed")
	ErrUnknownProduct  = errors.New("product is not in the catalog")
	ErrCartLocked      = errors.New("cart cannot change at this step")
	ErrNoOrderCreated  = errors.New("server accepted the request but returned no order")
)

// StockError reports a quantity the stock cannot cover. Available is the
// authoritative quantity the cart may hold for the SKU.
type StockError struct {
	SKU       string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.SKU
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available: %d", name, e.Requested, e.Available)
}

// SubmitError wraps a failed order submission.
type SubmitError struct {
	Draft OrderDraft
	Err   error
}

func (e *SubmitError) Error() string { return "submit order: " + e.Err.Error() }

func (e *SubmitError) Unwrap() error { return e.Err }

type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindStock
	KindTransport
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindStock:
		return "stock"
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Failure is an error reduced to what the presentation layer shows.
type Failure struct {
	Kind    Kind
	Message string
	// Available is set for stock failures when the quantity is known.
	Available *int
}

// Classify maps any error produced by the order workflow onto the failure
// taxonomy.
func Classify(err error) Failure {
	if err == nil {
		return Failure{Kind: KindNone}
	}

	var stockErr *StockError
	if errors.As(err, &stockErr) {
		n := stockErr.Available
		return Failure{Kind: KindStock, Message: stockErr.Error(), Available: &n}
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Code == enum.ErrorCodeInsufficientStock {
		msg := apiErr.Message
		if msg == "" {
			msg = "insufficient stock"
		}
		if apiErr.Available != nil {
			msg = fmt.Sprintf("%s (available: %d)", msg, *apiErr.Available)
		}
		return Failure{Kind: KindStock, Message: msg, Available: apiErr.Available}
	}

	for _, v := range []error{ErrNoCustomer, ErrEmptyCart, ErrInvalidQuantity, ErrNotInCart, ErrUnknownProduct} {
		if errors.Is(err, v) {
			return Failure{Kind: KindValidation, Message: v.Error()}
		}
	}

	if errors.Is(err, ErrNoOrderCreated) {
		return Failure{Kind: KindRejected, Message: ErrNoOrderCreated.Error()}
	}
	if apiErr != nil && apiErr.Status != 0 {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("request rejected (%d)", apiErr.Status)
		}
		return Failure{Kind: KindRejected, Message: msg}
	}
	return Failure{Kind: KindTransport, Message: "could not reach the server, try again"}
}
