package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/medisupply/field-app/internal/model"
)

type DeliveriesAPI struct{ c *Client }

// ByNIT lists deliveries for an institution, optionally narrowed to one
// status.
func (d *DeliveriesAPI) ByNIT(ctx context.Context, nit, status string) ([]model.Delivery, error) {
	q := url.Values{}
	if status != "" {
		q.Set("estado", status)
	}
	var list model.DeliveryList
	err := d.c.do(ctx, request{
		op:      "list deliveries",
		method:  http.MethodGet,
		path:    "/api/v1/entregas/" + url.PathEscape(nit),
		query:   q,
		headers: headersOrders,
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.Deliveries, nil
}

func (d *DeliveriesAPI) Tracking(ctx context.Context, deliveryID string) (*model.Tracking, error) {
	var t model.Tracking
	err := d.c.do(ctx, request{
		op:      "delivery tracking",
		method:  http.MethodGet,
		path:    "/api/v1/entregas/" + url.PathEscape(deliveryID) + "/tracking",
		headers: headersOrders,
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FeedURL is the websocket URL for live delivery updates of nit.
func (d *DeliveriesAPI) FeedURL(nit string) string {
	base := d.c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	u := base + "/ws/entregas/" + url.PathEscape(nit)
	if d.c.identity != nil {
		if token := d.c.identity.Token(); token != "" {
			u += "?" + url.Values{"token": {token}}.Encode()
		}
	}
	return u
}
