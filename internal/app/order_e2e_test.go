package app_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/app"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/config"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/order"
	"github.com/medisupply/field-app/internal/router"
	"github.com/medisupply/field-app/internal/service"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/ws"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway serves the seeded mock gateway and returns its URL.
func gateway(t *testing.T) string {
	t.Helper()
	fixture, err := store.DefaultFixture()
	require.NoError(t, err)
	st, err := store.New(fixture)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(log)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cfg := &config.GatewayConfig{JWTSecret: "order-e2e"}
	srv := httptest.NewServer(router.New(cfg, st, hub, service.NewDeliveryService(st, hub, log), log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-stopped
	})
	return srv.URL
}

func signIn(t *testing.T, url, email, password string) (*app.App, auth.User) {
	t.Helper()
	a := app.New(testConfig(t, url), io.Discard)
	require.NoError(t, a.Session.Login(context.Background(), email, password))
	return a, *a.Session.User()
}

func product(t *testing.T, w *order.Wizard, sku string) order.Product {
	t.Helper()
	p, ok := w.Ledger().Product(sku)
	require.True(t, ok, "sku %s not in catalog", sku)
	return p
}

func TestOrderWizard_ManagerAgainstGateway(t *testing.T) {
	ctx := context.Background()
	url := gateway(t)
	a, user := signIn(t, url, "ana.gerente@medisupply.co", "Gerente#2025")

	var created []model.OrderCreated
	w := a.Wizard(user, func(oc model.OrderCreated) { created = append(created, oc) })
	require.NoError(t, w.Open(ctx))
	assert.Equal(t, order.StateSelectingCustomer, w.State())

	customer, err := a.Client.Customers().Get(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, w.SelectCustomer(*customer))
	require.NoError(t, w.Advance(ctx))

	amox := product(t, w, "MED-001")
	assert.Equal(t, 120, amox.LocalStock)
	require.NoError(t, w.AddItem(ctx, amox.Product, 2))
	require.NoError(t, w.AddItem(ctx, amox.Product, 1))
	require.Len(t, w.Cart().Lines(), 1, "same SKU merges into one line")
	assert.Equal(t, 117, product(t, w, "MED-001").LocalStock)

	gloves := product(t, w, "MED-002")
	err = w.AddItem(ctx, gloves.Product, 20)
	var stockErr *order.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 8, stockErr.Available)
	_, inCart := w.Cart().Line("MED-002")
	assert.False(t, inCart)

	require.NoError(t, w.Advance(ctx))
	assert.Equal(t, order.StateReviewing, w.State())
	w.SetNotes("Entregar en farmacia")
	require.NoError(t, w.Advance(ctx))

	assert.Equal(t, order.StateClosed, w.State())
	require.Len(t, created, 1)
	assert.Equal(t, "PED-000001", created[0].ReferenceNumber)
	assert.True(t, decimal.NewFromInt(37500).Equal(created[0].Total), "total %s", created[0].Total)
	assert.Equal(t, 117, product(t, w, "MED-001").Stock, "catalog reloads after the order")

	o, err := a.Client.Orders().Get(ctx, created[0].OrderID)
	require.NoError(t, err)
	assert.Equal(t, "800456789", o.NIT)
	assert.Equal(t, user.ID, o.ManagerID)
	assert.Equal(t, "Entregar en farmacia", o.Notes)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 3, o.Lines[0].Quantity)
}

func TestOrderWizard_StockTakenByAnotherOrder(t *testing.T) {
	ctx := context.Background()
	url := gateway(t)
	a, user := signIn(t, url, "ana.gerente@medisupply.co", "Gerente#2025")
	customer, err := a.Client.Customers().Get(ctx, 1)
	require.NoError(t, err)

	open := func() *order.Wizard {
		w := a.Wizard(user, nil)
		require.NoError(t, w.Open(ctx))
		require.NoError(t, w.SelectCustomer(*customer))
		require.NoError(t, w.Advance(ctx))
		return w
	}
	slow, fast := open(), open()

	require.NoError(t, slow.AddItem(ctx, product(t, slow, "MED-002").Product, 6))
	require.NoError(t, slow.Advance(ctx))

	require.NoError(t, fast.AddItem(ctx, product(t, fast, "MED-002").Product, 5))
	require.NoError(t, fast.Advance(ctx))
	require.NoError(t, fast.Advance(ctx))

	err = slow.Advance(ctx)
	require.Error(t, err)
	f := order.Classify(err)
	assert.Equal(t, order.KindStock, f.Kind)
	require.NotNil(t, f.Available)
	assert.Equal(t, 3, *f.Available)

	assert.Equal(t, order.StateReviewing, slow.State(), "failed submit returns to review")
	line, ok := slow.Cart().Line("MED-002")
	require.True(t, ok, "cart survives the rejection")
	assert.Equal(t, 6, line.Quantity)
	assert.Equal(t, 3, product(t, slow, "MED-002").Stock, "catalog refreshed after the rejection")

	require.NoError(t, slow.UpdateQuantity(ctx, "MED-002", 3))
	require.NoError(t, slow.Advance(ctx))
	assert.Equal(t, order.StateClosed, slow.State())
}

func TestOrderWizard_InstitutionalAgainstGateway(t *testing.T) {
	ctx := context.Background()
	url := gateway(t)
	a, user := signIn(t, url, "compras@clinicanorte.co", "Clinica#2025")
	require.True(t, user.HasRole(enum.RoleInstitutional))

	var created *model.OrderCreated
	w := a.Wizard(user, func(oc model.OrderCreated) { created = &oc })
	require.NoError(t, w.Open(ctx))
	assert.Equal(t, order.StateSelectingProducts, w.State(), "own institution is preselected")
	assert.ErrorIs(t, w.Back(), order.ErrNoPreviousStep)

	require.NoError(t, w.AddItem(ctx, product(t, w, "MED-001").Product, 4))
	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.Advance(ctx))
	require.NotNil(t, created)

	page, err := a.Client.Orders().List(ctx, api.OrderFilter{NIT: user.NIT})
	require.NoError(t, err)
	var refs []string
	for _, o := range page.Orders {
		refs = append(refs, o.Reference)
	}
	assert.Contains(t, refs, created.ReferenceNumber)
}
