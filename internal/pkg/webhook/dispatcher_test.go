package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

type fakeSubscriptionStore struct {
	subscriptions map[string][]models.Webhook
}

func (s *fakeSubscriptionStore) GetEnabledByEventType(eventType string) ([]models.Webhook, error) {
	return s.subscriptions[eventType], nil
}

type receivedRequest struct {
	body      []byte
	event     string
	signature string
}

type captureServer struct {
	mu       sync.Mutex
	requests []receivedRequest
	status   int
	server   *httptest.Server
}

func newCaptureServer(status int) *captureServer {
	cs := &captureServer{status: status}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.requests = append(cs.requests, receivedRequest{
			body:      body,
			event:     r.Header.Get("X-CatalogFox-Event"),
			signature: r.Header.Get("X-CatalogFox-Signature"),
		})
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
	}))
	return cs
}

func (cs *captureServer) received() []receivedRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]receivedRequest, len(cs.requests))
	copy(out, cs.requests)
	return out
}

func (cs *captureServer) waitForRequests(t *testing.T, n int) []receivedRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := cs.received(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d webhook deliveries", n)
	return nil
}

func TestDispatcherDeliversEnvelope(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.server.Close()

	store := &fakeSubscriptionStore{subscriptions: map[string][]models.Webhook{
		models.EventProductCreated: {{ID: 1, URL: cs.server.URL, EventType: models.EventProductCreated, Enabled: true}},
	}}
	d := NewDispatcher(store, 2, "top-secret")
	d.Start()
	defer d.Stop()

	d.Notify(models.EventProductCreated, map[string]interface{}{"sku": "A-1"})

	got := cs.waitForRequests(t, 1)
	req := got[0]
	assert.Equal(t, models.EventProductCreated, req.event)
	assert.True(t, VerifySignature(req.body, req.signature, "top-secret"))

	var envelope struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(req.body, &envelope))
	assert.Equal(t, models.EventProductCreated, envelope.Event)
	assert.Equal(t, "A-1", envelope.Data["sku"])
}

func TestDispatcherSkipsEventsWithoutSubscribers(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.server.Close()

	store := &fakeSubscriptionStore{subscriptions: map[string][]models.Webhook{
		models.EventProductDeleted: {{ID: 1, URL: cs.server.URL, EventType: models.EventProductDeleted, Enabled: true}},
	}}
	d := NewDispatcher(store, 2, "")
	d.Start()
	defer d.Stop()

	d.Notify(models.EventProductCreated, map[string]interface{}{"sku": "A-1"})
	d.Notify(models.EventProductDeleted, map[string]interface{}{"sku": "B-2"})

	got := cs.waitForRequests(t, 1)
	assert.Len(t, got, 1)
	assert.Equal(t, models.EventProductDeleted, got[0].event)
	assert.Empty(t, got[0].signature)
}

func TestDispatcherFanOutToMultipleEndpoints(t *testing.T) {
	first := newCaptureServer(http.StatusOK)
	defer first.server.Close()
	second := newCaptureServer(http.StatusBadGateway)
	defer second.server.Close()
	third := newCaptureServer(http.StatusOK)
	defer third.server.Close()

	store := &fakeSubscriptionStore{subscriptions: map[string][]models.Webhook{
		models.EventImportCompleted: {
			{ID: 1, URL: first.server.URL, EventType: models.EventImportCompleted, Enabled: true},
			{ID: 2, URL: second.server.URL, EventType: models.EventImportCompleted, Enabled: true},
			{ID: 3, URL: third.server.URL, EventType: models.EventImportCompleted, Enabled: true},
		},
	}}
	d := NewDispatcher(store, 2, "")
	d.Start()
	defer d.Stop()

	d.Notify(models.EventImportCompleted, map[string]interface{}{"job_id": "job-1"})

	// A failing endpoint never blocks delivery to the others.
	first.waitForRequests(t, 1)
	second.waitForRequests(t, 1)
	third.waitForRequests(t, 1)
}

func TestDispatcherTestDelivery(t *testing.T) {
	cs := newCaptureServer(http.StatusNoContent)
	defer cs.server.Close()

	d := NewDispatcher(&fakeSubscriptionStore{}, 1, "top-secret")

	result := d.TestDelivery(cs.server.URL, models.EventProductCreated, map[string]interface{}{"webhook_id": 7})
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusNoContent, result.StatusCode)
	assert.GreaterOrEqual(t, result.ResponseTime, 0.0)

	got := cs.received()
	require.Len(t, got, 1)
	assert.True(t, VerifySignature(got[0].body, got[0].signature, "top-secret"))
}

func TestDispatcherTestDeliveryFailure(t *testing.T) {
	cs := newCaptureServer(http.StatusInternalServerError)
	defer cs.server.Close()

	d := NewDispatcher(&fakeSubscriptionStore{}, 1, "")

	result := d.TestDelivery(cs.server.URL, models.EventProductCreated, nil)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

func TestDispatcherStartStopIdempotent(t *testing.T) {
	d := NewDispatcher(&fakeSubscriptionStore{}, 1, "")

	d.Start()
	d.Start()
	d.Stop()
	d.Stop()

	// restart after stop
	d.Start()
	d.Stop()
}
