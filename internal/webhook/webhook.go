// Package webhook delivers signed event notifications for job lifecycle
// and progress changes. Every payload is HMAC-SHA256 signed over its exact
// serialized bytes; lifecycle events are delivered with retry, progress
// events are throttled and fire-and-forget.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"downcore/internal/apperr"
	"downcore/internal/constants"
	"downcore/internal/logger"
)

// EventKind identifies the shape of a webhook payload, wire-compatible
// with the "download.*" event names external consumers expect.
type EventKind string

const (
	EventStarted   EventKind = "download.started"
	EventProgress  EventKind = "download.progress"
	EventCompleted EventKind = "download.completed"
	EventFailed    EventKind = "download.failed"
)

// Event is the JSON body delivered to a job's webhook URL. A cancelled job
// is delivered as EventFailed with Cancelled set, rather than as a
// separate wire event kind.
type Event struct {
	RequestID string      `json:"request_id"`
	Kind      EventKind   `json:"event"`
	Cancelled bool        `json:"cancelled,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Dispatcher signs and delivers webhook events. Progress events are
// throttled per job and sent without waiting for the response; lifecycle
// events are delivered synchronously with retry.
type Dispatcher struct {
	client     *http.Client
	maxRetries int
	throttle   time.Duration
	enabled    bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // one-per-job progress throttle
}

// New returns a Dispatcher. timeout bounds each HTTP attempt; maxRetries is
// the total attempt count including the first (a value <1 falls back to
// constants.DefaultWebhookMaxRetries);
// throttle is the minimum spacing between progress events for one job.
func New(timeout time.Duration, maxRetries int, throttle time.Duration, enabled bool) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Duration(constants.DefaultWebhookTimeoutSec) * time.Second
	}
	if maxRetries < 1 {
		maxRetries = constants.DefaultWebhookMaxRetries
	}
	if throttle <= 0 {
		throttle = time.Duration(constants.DefaultProgressThrottleSec * float64(time.Second))
	}
	return &Dispatcher{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		throttle:   throttle,
		enabled:    enabled,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// DispatchProgress sends a throttled, fire-and-forget progress event. If
// less than the throttle interval has elapsed since the last progress
// event for jobID, the update is dropped.
func (d *Dispatcher) DispatchProgress(url, signingSecret, jobID string, data interface{}) {
	if !d.enabled || url == "" {
		return
	}

	if !d.limiterFor(jobID).Allow() {
		return
	}

	event := Event{RequestID: jobID, Kind: EventProgress, Data: data, Timestamp: time.Now().UTC()}
	go func() {
		if err := d.deliver(context.Background(), url, signingSecret, event); err != nil {
			logger.Log.Warn().Err(err).Str("jobId", jobID).Str("event", string(EventProgress)).
				Msg("webhook delivery failed")
		}
	}()
}

// DispatchLifecycle delivers a started/completed/failed/cancelled event
// synchronously, retrying transient failures. The cancelled flag
// distinguishes a cancelled completion from a regular terminal event
// without a distinct wire event kind.
func (d *Dispatcher) DispatchLifecycle(ctx context.Context, url, signingSecret, jobID string, kind EventKind, cancelled bool, data interface{}) error {
	if !d.enabled || url == "" {
		return nil
	}

	event := Event{RequestID: jobID, Kind: kind, Cancelled: cancelled, Data: data, Timestamp: time.Now().UTC()}
	err := d.deliver(ctx, url, signingSecret, event)
	if err != nil {
		logger.Log.Warn().Err(err).Str("jobId", jobID).Str("event", string(kind)).
			Msg("webhook delivery failed permanently")
	}
	return err
}

// Release drops the throttle bucket for jobID, called once a job reaches a
// terminal state.
func (d *Dispatcher) Release(jobID string) {
	d.mu.Lock()
	delete(d.limiters, jobID)
	d.mu.Unlock()
}

// limiterFor returns the per-job rate limiter backing progress throttling,
// creating it on first use. One token refills every d.throttle; a fresh
// job starts with a full bucket so its first progress event always sends.
func (d *Dispatcher) limiterFor(jobID string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	lim, ok := d.limiters[jobID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(d.throttle), 1)
		d.limiters[jobID] = lim
	}
	return lim
}

// deliver signs and POSTs event, retrying 5xx responses and transport
// errors with exponential backoff starting at 1s. 4xx responses are
// permanent failures and are not retried.
func (d *Dispatcher) deliver(ctx context.Context, url, signingSecret string, event Event) error {
	const op = "webhook.deliver"

	body, err := json.Marshal(event)
	if err != nil {
		return apperr.Wrap(op, apperr.KindWebhookError, err)
	}
	signature := sign(signingSecret, body)

	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return apperr.Wrap(op, apperr.KindWebhookError, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(constants.WebhookSignatureHeader, "sha256="+signature)

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < d.maxRetries {
				time.Sleep(backoff)
				backoff *= 2
			}
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return apperr.NewWithMessage(op, apperr.KindWebhookError, "permanent delivery failure: "+resp.Status)
		}

		lastErr = apperr.NewWithMessage(op, apperr.KindWebhookError, "server error: "+resp.Status)
		if attempt < d.maxRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return apperr.Wrap(op, apperr.KindWebhookError, lastErr)
}

// sign returns the lowercase hex HMAC-SHA256 digest of body under secret.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature (the hex digest, without the "sha256="
// prefix) matches body under secret, comparing in constant time.
func Verify(secret string, body []byte, signature string) bool {
	expected := sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
