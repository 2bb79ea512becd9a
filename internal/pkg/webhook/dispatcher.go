package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

const (
	// DeliveryTimeout bounds one delivery attempt end to end.
	DeliveryTimeout = 5 * time.Second

	DefaultWorkers = 4
	queueSize      = 256

	headerEvent     = "X-CatalogFox-Event"
	headerSignature = "X-CatalogFox-Signature"
)

// SubscriptionStore lists the enabled subscriptions for an event type.
type SubscriptionStore interface {
	GetEnabledByEventType(eventType string) ([]models.Webhook, error)
}

type delivery struct {
	Event   string
	Payload map[string]interface{}
}

// Dispatcher fans events out to registered webhook endpoints. Notify is
// fire-and-forget: deliveries run on a bounded worker pool with a hard
// per-attempt timeout, failures are logged and never retried, and a full
// queue drops the event rather than block the caller.
type Dispatcher struct {
	store   SubscriptionStore
	client  *http.Client
	tasks   chan delivery
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	workers int
	secret  string
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(store SubscriptionStore, workers int, secret string) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Dispatcher{
		store:   store,
		client:  &http.Client{Timeout: DeliveryTimeout},
		tasks:   make(chan delivery, queueSize),
		stopCh:  make(chan struct{}),
		workers: workers,
		secret:  secret,
	}
}

// Start starts the delivery workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	d.stopCh = make(chan struct{})
	d.running = true
	log.Infof("[Webhook] Starting %d delivery workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains nothing: pending deliveries in flight finish, queued ones are
// dropped with the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	log.Info("[Webhook] Stopping delivery workers...")
	close(d.stopCh)
	d.running = false
	d.wg.Wait()
	log.Info("[Webhook] All delivery workers stopped")
}

// Notify queues one event for delivery to every matching subscription. It
// never blocks and never reports failure to the caller.
func (d *Dispatcher) Notify(eventType string, payload map[string]interface{}) {
	select {
	case d.tasks <- delivery{Event: eventType, Payload: payload}:
	default:
		log.Warnf("[Webhook] Delivery queue full, dropping %s event", eventType)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		case task := <-d.tasks:
			d.deliver(task)
		}
	}
}

func (d *Dispatcher) deliver(task delivery) {
	subscriptions, err := d.store.GetEnabledByEventType(task.Event)
	if err != nil {
		log.Errorf("[Webhook] Failed to list subscriptions for %s: %v", task.Event, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event": task.Event,
		"data":  task.Payload,
	})
	if err != nil {
		log.Errorf("[Webhook] Failed to marshal %s payload: %v", task.Event, err)
		return
	}

	for _, subscription := range subscriptions {
		if err := d.post(subscription.URL, task.Event, body); err != nil {
			log.Warnf("[Webhook] Delivery of %s to %s failed: %v", task.Event, subscription.URL, err)
		}
	}
}

func (d *Dispatcher) post(url, event string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, event)
	if d.secret != "" {
		req.Header.Set(headerSignature, SignPayload(body, d.secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// TestResult reports the outcome of a manual webhook test delivery.
type TestResult struct {
	Success      bool    `json:"success"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseTime float64 `json:"response_time"`
	Error        string  `json:"error,omitempty"`
}

// TestDelivery sends one synchronous test payload to a URL and measures the
// response. It is used by the webhook test endpoint, not the import path.
func (d *Dispatcher) TestDelivery(url string, eventType string, payload map[string]interface{}) TestResult {
	body, err := json.Marshal(map[string]interface{}{
		"event": eventType,
		"test":  true,
		"data":  payload,
	})
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}

	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, eventType)
	if d.secret != "" {
		req.Header.Set(headerSignature, SignPayload(body, d.secret))
	}

	resp, err := d.client.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return TestResult{Success: false, Error: err.Error(), ResponseTime: elapsed}
	}
	defer resp.Body.Close()

	return TestResult{
		Success:      resp.StatusCode >= 200 && resp.StatusCode <= 299,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
	}
}
