// Package tracking shows an institution's deliveries and follows their
// status live.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source lists deliveries. *api.DeliveriesAPI satisfies it.
type Source interface {
	ByNIT(ctx context.Context, nit, status string) ([]model.Delivery, error)
	Tracking(ctx context.Context, deliveryID string) (*model.Tracking, error)
}

var _ Source = (*api.DeliveriesAPI)(nil)

// Board holds deliveries grouped by status.
type Board struct {
	NIT      string
	ByStatus map[string][]model.Delivery
}

// Total counts deliveries across all columns.
func (b *Board) Total() int {
	n := 0
	for _, ds := range b.ByStatus {
		n += len(ds)
	}
	return n
}

// Column returns the deliveries in status, soonest first.
func (b *Board) Column(status string) []model.Delivery {
	return b.ByStatus[status]
}

// Apply moves a delivery to the column of its new status. Unknown deliveries
// are added.
func (b *Board) Apply(d model.Delivery) {
	for status, ds := range b.ByStatus {
		b.ByStatus[status] = slices.DeleteFunc(ds, func(x model.Delivery) bool { return x.ID == d.ID })
	}
	b.ByStatus[d.Status] = sortByDate(append(b.ByStatus[d.Status], d))
}

func sortByDate(ds []model.Delivery) []model.Delivery {
	slices.SortStableFunc(ds, func(a, b model.Delivery) int {
		return a.ScheduledFor.Compare(b.ScheduledFor)
	})
	return ds
}

// LoadBoard fetches every delivery status of nit concurrently. The first
// failure cancels the remaining requests.
func LoadBoard(ctx context.Context, src Source, nit string) (*Board, error) {
	if nit == "" {
		return nil, errors.New("load deliveries: nit is required")
	}
	cols := make([][]model.Delivery, len(enum.DeliveryStatuses))

	g, ctx := errgroup.WithContext(ctx)
	for i, status := range enum.DeliveryStatuses {
		g.Go(func() error {
			ds, err := src.ByNIT(ctx, nit, status)
			if err != nil {
				return fmt.Errorf("deliveries %s: %w", status, err)
			}
			cols[i] = sortByDate(slices.Clone(ds))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Board{NIT: nit, ByStatus: make(map[string][]model.Delivery, len(cols))}
	for i, status := range enum.DeliveryStatuses {
		b.ByStatus[status] = cols[i]
	}
	return b, nil
}

// Detail returns a delivery with its tracking events, oldest first.
func Detail(ctx context.Context, src Source, deliveryID string) (*model.Tracking, error) {
	t, err := src.Tracking(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("delivery %s: %w", deliveryID, err)
	}
	slices.SortStableFunc(t.Events, func(a, b model.TrackingEvent) int {
		return a.At.Compare(b.At)
	})
	return t, nil
}

const (
	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
)

// Watcher follows the live delivery feed of one institution.
type Watcher struct {
	Dialer *websocket.Dialer
	Log    logrus.FieldLogger
}

// Watch dials url and calls fn for every event until ctx is done or the
// server closes the feed. A normal close or cancellation returns nil.
func (w *Watcher) Watch(ctx context.Context, url string, fn func(model.DeliveryEvent)) error {
	dialer := w.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment}
	}
	log := w.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("delivery feed: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("delivery feed: %w", err)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, r, err := conn.NextReader()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("delivery feed: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		// One frame may carry several newline separated events.
		dec := json.NewDecoder(r)
		for {
			var ev model.DeliveryEvent
			if err := dec.Decode(&ev); err != nil {
				if !errors.Is(err, io.EOF) {
					log.WithError(err).Warn("skipping malformed delivery event")
				}
				break
			}
			fn(ev)
		}
	}
}
