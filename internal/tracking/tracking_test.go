package tracking_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/tracking"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSource struct {
	mu       sync.Mutex
	byStatus map[string][]model.Delivery
	failOn   string
	asked    []string
}

func (f *fakeSource) ByNIT(ctx context.Context, nit, status string) ([]model.Delivery, error) {
	f.mu.Lock()
	f.asked = append(f.asked, status)
	f.mu.Unlock()
	if status == f.failOn {
		return nil, errors.New("gateway timeout")
	}
	return f.byStatus[status], ctx.Err()
}

func (f *fakeSource) Tracking(_ context.Context, id string) (*model.Tracking, error) {
	t0 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	return &model.Tracking{
		Delivery: model.Delivery{ID: id},
		Events: []model.TrackingEvent{
			{Status: enum.DeliveryStatusEnRoute, At: t0.Add(time.Hour)},
			{Status: enum.DeliveryStatusScheduled, At: t0},
		},
	}, nil
}

func TestLoadBoard(t *testing.T) {
	defer goleak.VerifyNone(t)

	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{byStatus: map[string][]model.Delivery{
		enum.DeliveryStatusScheduled: {
			{ID: "e2", Status: enum.DeliveryStatusScheduled, ScheduledFor: day.Add(48 * time.Hour)},
			{ID: "e1", Status: enum.DeliveryStatusScheduled, ScheduledFor: day},
		},
		enum.DeliveryStatusDelivered: {{ID: "e3", Status: enum.DeliveryStatusDelivered}},
	}}

	b, err := tracking.LoadBoard(context.Background(), src, "900123456")
	require.NoError(t, err)

	assert.ElementsMatch(t, enum.DeliveryStatuses, src.asked)
	assert.Equal(t, 3, b.Total())
	assert.Equal(t, "e1", b.Column(enum.DeliveryStatusScheduled)[0].ID)
	assert.Empty(t, b.Column(enum.DeliveryStatusReturned))

	b.Apply(model.Delivery{ID: "e1", Status: enum.DeliveryStatusEnRoute, ScheduledFor: day})
	assert.Len(t, b.Column(enum.DeliveryStatusScheduled), 1)
	assert.Equal(t, "e1", b.Column(enum.DeliveryStatusEnRoute)[0].ID)
	assert.Equal(t, 3, b.Total())
}

func TestLoadBoard_FailureFailsWhole(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{failOn: enum.DeliveryStatusEnRoute}
	_, err := tracking.LoadBoard(context.Background(), src, "900123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliveries en_ruta")

	_, err = tracking.LoadBoard(context.Background(), src, "")
	assert.Error(t, err)
}

func TestDetail_SortsEvents(t *testing.T) {
	tr, err := tracking.Detail(context.Background(), &fakeSource{}, "e9")
	require.NoError(t, err)
	assert.Equal(t, enum.DeliveryStatusScheduled, tr.Events[0].Status)
}

func feedServer(t *testing.T, frames []string, hold bool) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if !hold {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		}
		// Drain until the peer goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWatch_DecodesBatchedFrames(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := feedServer(t, []string{
		`{"type":"delivery.updated","entrega":{"entrega_id":"e1","estado":"en_ruta"}}` + "\n" +
			`{"type":"delivery.updated","entrega":{"entrega_id":"e2","estado":"entregada"}}`,
		`not json`,
		`{"type":"delivery.updated","entrega":{"entrega_id":"e3","estado":"devuelta"}}`,
	}, false)
	defer srv.Close()

	log, hook := test.NewNullLogger()
	var got []string
	w := &tracking.Watcher{Log: log}
	err := w.Watch(context.Background(), wsURL(srv), func(ev model.DeliveryEvent) {
		got = append(got, ev.Delivery.ID+":"+ev.Delivery.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1:en_ruta", "e2:entregada", "e3:devuelta"}, got)
	assert.Len(t, hook.Entries, 1)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := feedServer(t, []string{`{"type":"delivery.updated","entrega":{"entrega_id":"e1","estado":"programada"}}`}, true)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	first := make(chan struct{})
	var once sync.Once
	go func() {
		errc <- (&tracking.Watcher{}).Watch(ctx, wsURL(srv), func(model.DeliveryEvent) {
			once.Do(func() { close(first) })
		})
	}()

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := (&tracking.Watcher{}).Watch(context.Background(), wsURL(srv), func(model.DeliveryEvent) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
