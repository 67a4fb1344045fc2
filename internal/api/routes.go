package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/medisupply/field-app/internal/model"
)

type RoutesAPI struct{ c *Client }

// ForDay returns the visit route of a manager on date (YYYY-MM-DD).
func (r *RoutesAPI) ForDay(ctx context.Context, managerID, date string) (*model.Route, error) {
	var route model.Route
	err := r.c.do(ctx, request{
		op:      "visit route",
		method:  http.MethodGet,
		path:    "/api/v1/rutas-visitas",
		query:   url.Values{"gerente_id": {managerID}, "fecha": {date}},
		headers: headersVisits,
	}, &route)
	if err != nil {
		return nil, err
	}
	return &route, nil
}
