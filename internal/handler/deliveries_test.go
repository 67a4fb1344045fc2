package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/handler"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/service"
)

type recordingNotifier struct {
	events []model.DeliveryEvent
}

func (n *recordingNotifier) DeliveryChanged(eventType string, d model.Delivery) {
	n.events = append(n.events, model.DeliveryEvent{Type: eventType, Delivery: d})
}

func deliveryRouter(t *testing.T) (http.Handler, *recordingNotifier) {
	t.Helper()
	st := newStore(t)
	notify := &recordingNotifier{}
	h := handler.NewDeliveryHandler(st, service.NewDeliveryService(st, notify, quietLogger()))
	return mount("/entregas", func(r chi.Router) { h.RegisterRoutes(r) }), notify
}

func TestDeliveriesByNIT(t *testing.T) {
	router, _ := deliveryRouter(t)
	token := tokenFor(t, clinic)

	rr := do(t, router, "GET", "/entregas/900123456", token, nil)
	expectStatus(t, rr, http.StatusOK)
	list := decodeResponse[model.DeliveryList](t, rr)
	if list.Total != 3 || len(list.Deliveries) != 3 {
		t.Fatalf("deliveries: got %d", list.Total)
	}

	rr = do(t, router, "GET", "/entregas/900123456?estado="+enum.DeliveryStatusEnRoute, token, nil)
	expectStatus(t, rr, http.StatusOK)
	list = decodeResponse[model.DeliveryList](t, rr)
	if list.Total != 1 || list.Deliveries[0].ID != "ENT-1002" {
		t.Errorf("en ruta: got %+v", list.Deliveries)
	}

	rr = do(t, router, "GET", "/entregas/900123456?estado=perdida", token, nil)
	expectErrorCode(t, rr, http.StatusBadRequest, enum.ErrorCodeValidation)

	rr = do(t, router, "GET", "/entregas/800456789", token, nil)
	expectErrorCode(t, rr, http.StatusForbidden, enum.ErrorCodeForbidden)

	rr = do(t, router, "GET", "/entregas/800456789", tokenFor(t, manager), nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeResponse[model.DeliveryList](t, rr); list.Total != 0 || list.Deliveries == nil {
		t.Errorf("empty nit: got %+v", list)
	}
}

func TestDeliveryTracking(t *testing.T) {
	router, _ := deliveryRouter(t)

	rr := do(t, router, "GET", "/entregas/ENT-1002/tracking", tokenFor(t, clinic), nil)
	expectStatus(t, rr, http.StatusOK)
	tr := decodeResponse[model.Tracking](t, rr)
	if tr.Delivery.ID != "ENT-1002" || len(tr.Events) == 0 {
		t.Errorf("tracking: got %+v", tr)
	}

	rr = do(t, router, "GET", "/entregas/ENT-9999/tracking", tokenFor(t, clinic), nil)
	expectErrorCode(t, rr, http.StatusNotFound, enum.ErrorCodeNotFound)
}

func TestDeliveryAdvance(t *testing.T) {
	router, notify := deliveryRouter(t)
	adminTok := tokenFor(t, admin)

	rr := do(t, router, "POST", "/entregas/ENT-1002/avanzar", tokenFor(t, manager), nil)
	expectErrorCode(t, rr, http.StatusForbidden, enum.ErrorCodeForbidden)

	rr = do(t, router, "POST", "/entregas/ENT-1002/avanzar", adminTok, nil)
	expectStatus(t, rr, http.StatusOK)
	if d := decodeResponse[model.Delivery](t, rr); d.Status != enum.DeliveryStatusDelivered {
		t.Errorf("status: got %q", d.Status)
	}
	if len(notify.events) != 1 || notify.events[0].Type != enum.EventDeliveryUpdated {
		t.Errorf("events: got %+v", notify.events)
	}

	rr = do(t, router, "POST", "/entregas/ENT-1002/avanzar", adminTok, nil)
	expectStatus(t, rr, http.StatusConflict)

	rr = do(t, router, "POST", "/entregas/ENT-9999/avanzar", adminTok, nil)
	expectErrorCode(t, rr, http.StatusNotFound, enum.ErrorCodeNotFound)
}
