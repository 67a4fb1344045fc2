package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/medisupply/field-app/internal/model"
)

// DefaultOrdersPerPage matches the gateway's default page size.
const DefaultOrdersPerPage = 25

type OrdersAPI struct{ c *Client }

type OrderFilter struct {
	Status  string
	NIT     string
	Page    int
	PerPage int
}

func (o *OrdersAPI) Create(ctx context.Context, req model.OrderRequest) (*model.OrderCreated, error) {
	var created model.OrderCreated
	err := o.c.do(ctx, request{
		op:      "create order",
		method:  http.MethodPost,
		path:    "/api/v1/pedidos/",
		headers: headersOrders,
		body:    req,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// List returns orders visible to the caller. The gateway scopes results by
// the identity headers: institutional users see their own NIT, account
// managers see their customers.
func (o *OrdersAPI) List(ctx context.Context, f OrderFilter) (*model.OrderPage, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultOrdersPerPage
	}
	q := url.Values{
		"pagina":     {strconv.Itoa(f.Page)},
		"por_pagina": {strconv.Itoa(f.PerPage)},
	}
	if f.Status != "" {
		q.Set("estado", f.Status)
	}
	if f.NIT != "" {
		q.Set("nit", f.NIT)
	}

	var page model.OrderPage
	err := o.c.do(ctx, request{
		op:      "list orders",
		method:  http.MethodGet,
		path:    "/api/v1/pedidos/",
		query:   q,
		headers: headersOrders,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (o *OrdersAPI) Get(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := o.c.do(ctx, request{
		op:      "get order",
		method:  http.MethodGet,
		path:    "/api/v1/pedidos/" + url.PathEscape(id),
		headers: headersOrders,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) History(ctx context.Context, id string) (*model.OrderHistory, error) {
	var h model.OrderHistory
	err := o.c.do(ctx, request{
		op:      "order history",
		method:  http.MethodGet,
		path:    "/api/v1/pedidos/" + url.PathEscape(id) + "/historial",
		headers: headersOrders,
	}, &h)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
