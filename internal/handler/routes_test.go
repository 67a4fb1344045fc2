package handler_test

import (
	"net/http"
	"testing"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/handler"
	"github.com/medisupply/field-app/internal/model"
)

func routeRouter(t *testing.T) http.Handler {
	return mount("/rutas-visitas", handler.NewRouteHandler(newStore(t)).RegisterRoutes)
}

func TestRouteForDay(t *testing.T) {
	router := routeRouter(t)

	rr := do(t, router, "GET", "/rutas-visitas/?gerente_id=17&fecha=2025-11-25", tokenFor(t, manager), nil)
	expectStatus(t, rr, http.StatusOK)

	route := decodeResponse[model.Route](t, rr)
	if route.Date != "2025-11-25" || route.ManagerID != "17" {
		t.Errorf("route: date %q manager %q", route.Date, route.ManagerID)
	}
	if route.VisitCount != 2 || len(route.Visits) != 2 {
		t.Errorf("visits: count %d, len %d", route.VisitCount, len(route.Visits))
	}
}

func TestRouteForDay_DefaultsToCaller(t *testing.T) {
	rr := do(t, routeRouter(t), "GET", "/rutas-visitas/", tokenFor(t, manager), nil)
	expectStatus(t, rr, http.StatusOK)

	if route := decodeResponse[model.Route](t, rr); route.ManagerID != "17" || route.Date == "" {
		t.Errorf("route: got manager %q date %q", route.ManagerID, route.Date)
	}
}

func TestRouteForDay_Errors(t *testing.T) {
	router := routeRouter(t)
	noRoute := auth.User{ID: "23", Roles: []string{enum.RoleAccountManager}}

	tests := []struct {
		name   string
		user   auth.User
		query  string
		status int
		code   string
	}{
		{"other manager", manager, "?gerente_id=23", http.StatusForbidden, enum.ErrorCodeForbidden},
		{"bad date", manager, "?fecha=25/11/2025", http.StatusBadRequest, enum.ErrorCodeValidation},
		{"nothing planned", noRoute, "?fecha=2025-11-25", http.StatusNotFound, enum.ErrorCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "GET", "/rutas-visitas/"+tt.query, tokenFor(t, tt.user), nil)
			expectErrorCode(t, rr, tt.status, tt.code)
		})
	}

	rr := do(t, router, "GET", "/rutas-visitas/?gerente_id=17&fecha=2025-11-25", tokenFor(t, admin), nil)
	expectStatus(t, rr, http.StatusOK)
}
