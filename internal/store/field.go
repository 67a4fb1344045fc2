package store

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
)

// ErrDeliveryFinal is returned when advancing a delivered or returned
// delivery.
var ErrDeliveryFinal = errors.New("delivery already finished")

// nextDeliveryStatus is the simulated progression of a delivery.
var nextDeliveryStatus = map[string]string{
	enum.DeliveryStatusScheduled: enum.DeliveryStatusEnRoute,
	enum.DeliveryStatusEnRoute:   enum.DeliveryStatusDelivered,
}

// --- Deliveries ---

// Deliveries lists the deliveries of nit by scheduled date, optionally
// narrowed to one status.
func (s *Store) Deliveries(nit, status string) []model.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Delivery{}
	for _, d := range s.deliveries {
		if d.NIT != nit || (status != "" && d.Status != status) {
			continue
		}
		out = append(out, d.Delivery)
	}
	slices.SortFunc(out, func(a, b model.Delivery) int {
		return cmp.Or(a.ScheduledFor.Compare(b.ScheduledFor), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (s *Store) Tracking(id string) (model.Tracking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return model.Tracking{}, ErrNotFound
	}
	return model.Tracking{Delivery: d.Delivery, Events: slices.Clone(d.Events)}, nil
}

// AdvanceDelivery moves a delivery to its next status and records the
// tracking event. Delivering also marks the order as delivered.
func (s *Store) AdvanceDelivery(id string, at time.Time) (model.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return model.Delivery{}, ErrNotFound
	}
	next, ok := nextDeliveryStatus[d.Status]
	if !ok {
		return model.Delivery{}, ErrDeliveryFinal
	}
	d.Status = next
	d.Events = append(d.Events, model.TrackingEvent{Status: next, At: at, Location: d.Address})

	if o, ok := s.orders[d.OrderID]; ok {
		status := enum.OrderStatusShipped
		if next == enum.DeliveryStatusDelivered {
			status = enum.OrderStatusDelivered
		}
		o.Status = status
		s.history[o.ID] = append(s.history[o.ID], model.StatusChange{Status: status, At: at})
	}
	return d.Delivery, nil
}

// PendingDeliveries lists deliveries that can still advance.
func (s *Store) PendingDeliveries() []model.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Delivery
	for _, d := range s.deliveries {
		if _, ok := nextDeliveryStatus[d.Status]; ok {
			out = append(out, d.Delivery)
		}
	}
	slices.SortFunc(out, func(a, b model.Delivery) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// --- Routes ---

// Route returns the route of managerID on date. Fixture routes without a
// date serve as the manager's template for any day.
func (s *Store) Route(managerID, date string) (model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tmpl *model.Route
	for i := range s.routes {
		r := &s.routes[i]
		if r.ManagerID != managerID {
			continue
		}
		if r.Date == date {
			return cloneRoute(*r), nil
		}
		if r.Date == "" && tmpl == nil {
			tmpl = r
		}
	}
	if tmpl == nil {
		return model.Route{}, ErrNotFound
	}
	out := cloneRoute(*tmpl)
	out.Date = date
	return out, nil
}

func cloneRoute(r model.Route) model.Route {
	r.Visits = slices.Clone(r.Visits)
	r.VisitCount = len(r.Visits)
	return r
}

// --- Visits ---

func (s *Store) CreateVisit(v model.Visit) model.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitSeq++
	v.ID = s.visitSeq
	v.Evidences = []model.Evidence{}
	s.visits[v.ID] = &v
	return v
}

func (s *Store) Visit(id int64) (model.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[id]
	if !ok {
		return model.Visit{}, ErrNotFound
	}
	out := *v
	out.Evidences = slices.Clone(v.Evidences)
	return out, nil
}

// VisitsByClient lists a client's visits, newest first.
func (s *Store) VisitsByClient(clientID int64) []model.Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Visit{}
	for _, v := range s.visits {
		if v.ClientID == clientID {
			c := *v
			c.Evidences = slices.Clone(v.Evidences)
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Visit) int {
		return cmp.Or(b.VisitDatetime.Compare(a.VisitDatetime), cmp.Compare(b.ID, a.ID))
	})
	return out
}

// AddEvidence stores a file for a visit. url is filled in by urlFor.
func (s *Store) AddEvidence(visitID int64, filename, contentType string, data []byte, urlFor func(visitID, evidenceID int64) string) (model.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[visitID]
	if !ok {
		return model.Evidence{}, ErrNotFound
	}
	s.evidenceSeq++
	e := model.Evidence{
		ID:          s.evidenceSeq,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		URL:         urlFor(visitID, s.evidenceSeq),
	}
	v.Evidences = append(v.Evidences, e)
	s.blobs[e.ID] = data
	return e, nil
}

// Evidence returns the metadata and content of one evidence file.
func (s *Store) Evidence(visitID, evidenceID int64) (model.Evidence, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[visitID]
	if !ok {
		return model.Evidence{}, nil, ErrNotFound
	}
	for _, e := range v.Evidences {
		if e.ID == evidenceID {
			return e, s.blobs[e.ID], nil
		}
	}
	return model.Evidence{}, nil, ErrNotFound
}
