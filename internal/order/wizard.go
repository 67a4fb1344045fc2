package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
)

type State int

const (
	StateSelectingCustomer State = iota
	StateSelectingProducts
	StateReviewing
	StateConfirming
	StateClosed
)

var stateNames = map[State]string{
	StateSelectingCustomer: "selecting-customer",
	StateSelectingProducts: "selecting-products",
	StateReviewing:         "reviewing",
	StateConfirming:        "confirming",
	StateClosed:            "closed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Event int

const (
	EventAdvance Event = iota
	EventBack
	EventSucceed
	EventFail
	EventClose
)

var eventNames = map[Event]string{
	EventAdvance: "advance",
	EventBack:    "back",
	EventSucceed: "succeed",
	EventFail:    "fail",
	EventClose:   "close",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

type edge struct {
	from State
	on   Event
}

// transitions is the complete wizard graph. Pairs not listed are invalid.
var transitions = map[edge]State{
	{StateSelectingCustomer, EventAdvance}: StateSelectingProducts,
	{StateSelectingProducts, EventAdvance}: StateReviewing,
	{StateReviewing, EventAdvance}:         StateConfirming,
	{StateConfirming, EventSucceed}:        StateClosed,
	{StateConfirming, EventFail}:           StateReviewing,
	{StateReviewing, EventBack}:            StateSelectingProducts,
	{StateSelectingProducts, EventBack}:    StateSelectingCustomer,
	{StateSelectingCustomer, EventClose}:   StateClosed,
	{StateSelectingProducts, EventClose}:   StateClosed,
	{StateReviewing, EventClose}:           StateClosed,
}

func init() {
	if err := validateTransitions(transitions); err != nil {
		panic(err)
	}
}

// validateTransitions checks the graph. Every state must be known and
// reachable from selecting-customer, closed must be terminal, and every
// open state except confirming must accept close.
func validateTransitions(t map[edge]State) error {
	for e, to := range t {
		if _, ok := stateNames[e.from]; !ok {
			return fmt.Errorf("wizard: unknown source state %v", e.from)
		}
		if _, ok := eventNames[e.on]; !ok {
			return fmt.Errorf("wizard: unknown event %v", e.on)
		}
		if _, ok := stateNames[to]; !ok {
			return fmt.Errorf("wizard: unknown target state %v", to)
		}
		if e.from == StateClosed {
			return fmt.Errorf("wizard: closed state has outgoing edge %v", e.on)
		}
	}
	for s := range stateNames {
		if s == StateClosed || s == StateConfirming {
			continue
		}
		if t[edge{s, EventClose}] != StateClosed {
			return fmt.Errorf("wizard: state %v cannot be closed", s)
		}
	}
	if t[edge{StateConfirming, EventSucceed}] != StateClosed || t[edge{StateConfirming, EventFail}] != StateReviewing {
		return errors.New("wizard: confirming must resolve to closed or reviewing")
	}

	reached := map[State]bool{StateSelectingCustomer: true}
	for changed := true; changed; {
		changed = false
		for e, to := range t {
			if reached[e.from] && !reached[to] {
				reached[to] = true
				changed = true
			}
		}
	}
	for s := range stateNames {
		if !reached[s] {
			return fmt.Errorf("wizard: state %v unreachable", s)
		}
	}
	return nil
}

// TransitionError reports an event the current state does not accept.
type TransitionError struct {
	From State
	On   Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %v while %v", e.On, e.From)
}

// Customer is the account an order is placed for.
type Customer struct {
	ID   int64
	NIT  string
	Name string
}

// OrderDraft is the immutable snapshot submitted to the gateway.
type OrderDraft struct {
	Customer         Customer
	AccountManagerID string
	Items            []LineItem
	Notes            string
}

func (d OrderDraft) Request() model.OrderRequest {
	req := model.OrderRequest{
		CustomerID:       d.Customer.ID,
		AccountManagerID: d.AccountManagerID,
		NIT:              d.Customer.NIT,
		Notes:            d.Notes,
		Items:            make([]model.OrderItem, len(d.Items)),
	}
	for i, li := range d.Items {
		req.Items[i] = model.OrderItem{
			ProductID: li.ProductID,
			SKU:       li.SKU,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		}
	}
	return req
}

// Submitter creates orders. *api.OrdersAPI satisfies it.
type Submitter interface {
	Create(ctx context.Context, req model.OrderRequest) (*model.OrderCreated, error)
}

// CreatedFunc is called exactly once per successful submission.
type CreatedFunc func(created model.OrderCreated)

type WizardOption func(*Wizard)

func WithOnOrderCreated(fn CreatedFunc) WizardOption {
	return func(w *Wizard) { w.onCreated = fn }
}

func WithLogger(l logrus.FieldLogger) WizardOption {
	return func(w *Wizard) { w.log = l }
}

// Wizard drives order creation through selecting-customer,
// selecting-products, reviewing and confirming. It owns one ledger and one
// cart; callers serialize access.
type Wizard struct {
	user      auth.User
	catalog   Catalog
	orders    Submitter
	onCreated CreatedFunc
	log       logrus.FieldLogger

	state    State
	customer *Customer
	ledger   *Ledger
	cart     *Cart
	notes    string
	draft    *OrderDraft
	lastErr  error
	created  *model.OrderCreated
}

func NewWizard(user auth.User, catalog Catalog, orders Submitter, opts ...WizardOption) *Wizard {
	w := &Wizard{
		user:    user,
		catalog: catalog,
		orders:  orders,
		log:     logrus.StandardLogger(),
		state:   StateClosed,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CustomerSession reports whether the user orders for their own institution
// and therefore skips customer selection.
func (w *Wizard) CustomerSession() bool {
	return w.user.HasRole(enum.RoleInstitutional) && !w.user.HasRole(enum.RoleAccountManager)
}

// Open starts a fresh order: new cart and ledger, catalog loaded.
// Institutional users start at product selection with their own institution
// as the customer.
func (w *Wizard) Open(ctx context.Context) error {
	w.ledger = NewLedger(w.catalog)
	w.cart = NewCart(w.ledger)
	w.customer = nil
	w.notes = ""
	w.draft = nil
	w.lastErr = nil
	w.created = nil
	w.state = StateSelectingCustomer

	if w.CustomerSession() {
		if w.user.ClienteID == 0 && w.user.NIT == "" {
			w.state = StateClosed
			return ErrNoCustomer
		}
		w.customer = &Customer{ID: w.user.ClienteID, NIT: w.user.NIT, Name: w.user.FullName}
		w.state = StateSelectingProducts
	}

	if err := w.ledger.Reload(ctx); err != nil {
		w.lastErr = err
		return err
	}
	return nil
}

func (w *Wizard) State() State { return w.state }

func (w *Wizard) Customer() (Customer, bool) {
	if w.customer == nil {
		return Customer{}, false
	}
	return *w.customer, true
}

func (w *Wizard) Cart() *Cart { return w.cart }

func (w *Wizard) Ledger() *Ledger { return w.ledger }

// Draft is the snapshot built on entering confirming, kept while it is
// being submitted or after a failed submission.
func (w *Wizard) Draft() (OrderDraft, bool) {
	if w.draft == nil {
		return OrderDraft{}, false
	}
	return *w.draft, true
}

// LastError is the most recent failure surfaced by the wizard.
func (w *Wizard) LastError() error { return w.lastErr }

// Created is the confirmation of the last successful submission.
func (w *Wizard) Created() (model.OrderCreated, bool) {
	if w.created == nil {
		return model.OrderCreated{}, false
	}
	return *w.created, true
}

func (w *Wizard) Notes() string { return w.notes }

func (w *Wizard) SetNotes(notes string) { w.notes = notes }

// SelectCustomer chooses the account to order for.
func (w *Wizard) SelectCustomer(c model.Customer) error {
	if w.state != StateSelectingCustomer {
		return &TransitionError{From: w.state, On: EventAdvance}
	}
	w.customer = &Customer{ID: c.ID, NIT: c.NIT, Name: c.TradeName}
	return nil
}

func (w *Wizard) AddItem(ctx context.Context, p model.Product, qty int) error {
	if err := w.cartEditable(); err != nil {
		return err
	}
	return w.record(w.cart.AddItem(ctx, p, qty))
}

func (w *Wizard) UpdateQuantity(ctx context.Context, sku string, qty int) error {
	if err := w.cartEditable(); err != nil {
		return err
	}
	return w.record(w.cart.UpdateQuantity(ctx, sku, qty))
}

func (w *Wizard) RemoveItem(sku string) error {
	if err := w.cartEditable(); err != nil {
		return err
	}
	return w.record(w.cart.RemoveItem(sku))
}

// Refresh reloads the catalog keeping the cart.
func (w *Wizard) Refresh(ctx context.Context) error {
	if w.state == StateClosed {
		return ErrWizardClosed
	}
	return w.record(w.ledger.Reload(ctx))
}

// Advance moves to the next step. From reviewing it builds the draft and
// submits it; the wizard ends closed on success or back in reviewing on
// failure with the cart preserved.
func (w *Wizard) Advance(ctx context.Context) error {
	switch w.state {
	case StateSelectingCustomer:
		if w.customer == nil {
			return w.record(ErrNoCustomer)
		}
	case StateSelectingProducts:
		if w.cart.Empty() {
			return w.record(ErrEmptyCart)
		}
	case StateReviewing:
		if w.customer == nil {
			return w.record(ErrNoCustomer)
		}
		if w.cart.Empty() {
			return w.record(ErrEmptyCart)
		}
	}
	if err := w.fire(EventAdvance); err != nil {
		return err
	}
	w.lastErr = nil
	if w.state == StateConfirming {
		return w.submit(ctx)
	}
	return nil
}

// Back returns to the previous step without clearing anything.
func (w *Wizard) Back() error {
	if w.state == StateSelectingProducts && w.CustomerSession() {
		return ErrNoPreviousStep
	}
	if _, ok := transitions[edge{w.state, EventBack}]; !ok {
		if w.state == StateSelectingCustomer {
			return ErrNoPreviousStep
		}
		return &TransitionError{From: w.state, On: EventBack}
	}
	return w.fire(EventBack)
}

// Close abandons the order, returning held stock to the ledger.
func (w *Wizard) Close() error {
	if w.state == StateClosed {
		return nil
	}
	if err := w.fire(EventClose); err != nil {
		return err
	}
	w.cart.Discard()
	w.customer = nil
	w.draft = nil
	w.notes = ""
	return nil
}

func (w *Wizard) submit(ctx context.Context) error {
	draft := OrderDraft{
		Customer: *w.customer,
		Items:    w.cart.Lines(),
		Notes:    w.notes,
	}
	if !w.CustomerSession() {
		draft.AccountManagerID = w.user.ID
	}
	w.draft = &draft

	created, err := w.orders.Create(ctx, draft.Request())
	if err == nil && created == nil {
		err = ErrNoOrderCreated
	}
	if err != nil {
		submitErr := &SubmitError{Draft: draft, Err: err}
		if ferr := w.fire(EventFail); ferr != nil {
			return ferr
		}
		w.lastErr = submitErr
		if Classify(err).Kind == KindStock {
			if rerr := w.ledger.Reload(ctx); rerr != nil {
				w.lastErr = errors.Join(submitErr, rerr)
			}
		}
		w.log.WithError(err).WithField("customer_id", draft.Customer.ID).Warn("order submission failed")
		return w.lastErr
	}

	if err := w.fire(EventSucceed); err != nil {
		return err
	}
	w.created = created
	w.cart.reset()
	w.customer = nil
	w.draft = nil
	w.notes = ""
	if err := w.ledger.Reload(ctx); err != nil {
		w.log.WithError(err).Warn("reload products after order")
	}
	w.log.WithFields(logrus.Fields{
		"order_id":  created.OrderID,
		"reference": created.ReferenceNumber,
	}).Info("order created")
	if w.onCreated != nil {
		w.onCreated(*created)
	}
	return nil
}

func (w *Wizard) fire(ev Event) error {
	to, ok := transitions[edge{w.state, ev}]
	if !ok {
		return &TransitionError{From: w.state, On: ev}
	}
	w.state = to
	return nil
}

func (w *Wizard) cartEditable() error {
	switch w.state {
	case StateSelectingProducts, StateReviewing:
		return nil
	case StateClosed:
		return ErrWizardClosed
	}
	return ErrCartLocked
}

func (w *Wizard) record(err error) error {
	if err != nil {
		w.lastErr = err
	}
	return err
}
