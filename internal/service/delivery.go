package service

import (
	"context"
	"time"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
)

// DeliveryStore is satisfied by *store.Store.
type DeliveryStore interface {
	AdvanceDelivery(id string, at time.Time) (model.Delivery, error)
	PendingDeliveries() []model.Delivery
}

// DeliveryService moves deliveries along and announces each change.
type DeliveryService struct {
	store  DeliveryStore
	notify Notifier
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewDeliveryService(store DeliveryStore, notify Notifier, log logrus.FieldLogger) *DeliveryService {
	return &DeliveryService{store: store, notify: notify, log: log, now: time.Now}
}

// Advance moves one delivery to its next status.
func (s *DeliveryService) Advance(id string) (model.Delivery, error) {
	d, err := s.store.AdvanceDelivery(id, s.now())
	if err != nil {
		return model.Delivery{}, err
	}
	if s.notify != nil {
		s.notify.DeliveryChanged(enum.EventDeliveryUpdated, d)
	}
	s.log.WithFields(logrus.Fields{"entrega_id": d.ID, "estado": d.Status}).Info("delivery advanced")
	return d, nil
}

// Simulate advances the oldest pending delivery every interval until ctx is
// done.
func (s *DeliveryService) Simulate(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending := s.store.PendingDeliveries()
			if len(pending) == 0 {
				continue
			}
			if _, err := s.Advance(pending[0].ID); err != nil {
				s.log.WithError(err).Warn("simulate delivery")
			}
		}
	}
}
