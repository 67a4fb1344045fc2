package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
)

// DefaultProductPageSize covers the whole catalog a field rep works with.
const DefaultProductPageSize = 100

type ProductsAPI struct{ c *Client }

type ProductQuery struct {
	SKU      string
	Page     int
	PageSize int
}

func (p *ProductsAPI) List(ctx context.Context, q ProductQuery) (*model.ProductPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultProductPageSize
	}
	params := url.Values{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
	if q.SKU != "" {
		params.Set("sku", q.SKU)
	}

	var page model.ProductPage
	err := p.c.do(ctx, request{
		op:      "list products",
		method:  http.MethodGet,
		path:    "/api/v1/productos",
		query:   params,
		headers: headersOrders,
	}, &page)
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].StockStatus == "" {
			page.Items[i].StockStatus = enum.StockStatusFor(page.Items[i].Stock)
		}
	}
	return &page, nil
}

// All pages through the catalog until the gateway's total is reached.
// Gateways that omit the total stop at the first short page.
func (p *ProductsAPI) All(ctx context.Context) ([]model.Product, error) {
	var all []model.Product
	for n := 1; ; n++ {
		page, err := p.List(ctx, ProductQuery{Page: n})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		switch {
		case len(page.Items) == 0:
			return all, nil
		case page.Total > 0 && len(all) >= page.Total:
			return all, nil
		case page.Total <= 0 && len(page.Items) < DefaultProductPageSize:
			return all, nil
		}
	}
}

// BySKU returns the product with the given SKU, or a 404 *Error.
func (p *ProductsAPI) BySKU(ctx context.Context, sku string) (*model.Product, error) {
	page, err := p.List(ctx, ProductQuery{SKU: sku, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, &Error{
			Op:      "product by sku",
			Status:  http.StatusNotFound,
			Code:    enum.ErrorCodeNotFound,
			Message: "product " + sku + " not found",
		}
	}
	return &page.Items[0], nil
}

// CheckStock asks the gateway whether qty units are available. An unknown
// product is reported as an invalid check with nothing available.
func (p *ProductsAPI) CheckStock(ctx context.Context, productID uuid.UUID, qty int) (*model.StockCheck, error) {
	var check model.StockCheck
	err := p.c.do(ctx, request{
		op:      "check stock",
		method:  http.MethodPost,
		path:    "/api/v1/productos/" + productID.String() + "/stock-check",
		headers: headersOrders,
		body:    model.StockCheckRequest{RequestedQuantity: qty},
	}, &check)
	if IsStatus(err, http.StatusNotFound) {
		return &model.StockCheck{Valid: false, Available: 0, Message: "product not found"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &check, nil
}
