package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Delivery headers set on every outbound POST.
const (
	HeaderEvent     = "X-DomainVerify-Event"
	HeaderSignature = "X-DomainVerify-Signature"
)

// maxConcurrentDeliveries bounds the fan-out so one event with many
// subscribers cannot exhaust sockets.
const maxConcurrentDeliveries = 8

// deliveryStore is the storage interface required by Dispatcher.
// *Repository satisfies it.
type deliveryStore interface {
	ListSubscribed(ctx context.Context, orgID uuid.UUID, event string) ([]*Webhook, error)
	RecordDelivery(ctx context.Context, d *Delivery) error
}

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Dispatcher fans verification events out to an organization's active,
// subscribed webhooks. Delivery is best-effort: one attempt per endpoint,
// no retry, and failures are logged and counted but never surfaced to the
// caller that triggered the event.
type Dispatcher struct {
	store      deliveryStore
	httpClient *http.Client
	sem        *semaphore.Weighted
	onMetrics  MetricsRecorder
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store deliveryStore, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sem:        semaphore.NewWeighted(maxConcurrentDeliveries),
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (d *Dispatcher) SetMetricsRecorder(fn MetricsRecorder) {
	d.onMetrics = fn
}

// Dispatch sends the JSON-encoded payload to every active webhook of the
// organization subscribed to event. It returns as soon as deliveries are
// scheduled; the HTTP response to the triggering request never waits on a
// subscriber endpoint.
func (d *Dispatcher) Dispatch(ctx context.Context, orgID uuid.UUID, event string, payload any) {
	subs, err := d.store.ListSubscribed(ctx, orgID, event)
	if err != nil {
		d.logger.Error("webhook: list subscribers",
			zap.String("organization_id", orgID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	if len(subs) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("webhook: marshal payload", zap.String("event", event), zap.Error(err))
		return
	}

	// Deliveries outlive the request that triggered them.
	bg := context.WithoutCancel(ctx)
	for _, sub := range subs {
		d.wg.Add(1)
		go func(sub *Webhook) {
			defer d.wg.Done()
			if err := d.sem.Acquire(bg, 1); err != nil {
				return
			}
			defer d.sem.Release(1)
			d.deliver(bg, sub, event, body)
		}(sub)
	}
}

// Wait blocks until all scheduled deliveries have finished. Used on
// shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// deliver performs the single delivery attempt to one endpoint and records
// the outcome.
func (d *Dispatcher) deliver(ctx context.Context, sub *Webhook, event string, body []byte) {
	success, statusCode, errMsg := d.post(ctx, sub, event, body)

	rec := &Delivery{
		WebhookID:    sub.ID,
		Event:        event,
		StatusCode:   statusCode,
		Success:      success,
		ErrorMessage: errMsg,
	}
	if err := d.store.RecordDelivery(ctx, rec); err != nil {
		d.logger.Warn("webhook: record delivery", zap.Error(err))
	}

	if d.onMetrics != nil {
		d.onMetrics(success)
	}

	if !success {
		d.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.String("event", event),
			zap.Int("status", statusCode),
			zap.String("error", errMsg),
		)
	}
}

// post performs the HTTP POST to the subscriber.
func (d *Dispatcher) post(ctx context.Context, sub *Webhook, event string, body []byte) (bool, int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderSignature, signPayload(body, sub.Secret))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return success, resp.StatusCode, errMsg
}

// signPayload computes an HMAC-SHA256 signature over the delivery body.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// GenerateSecret creates the random per-webhook HMAC secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
