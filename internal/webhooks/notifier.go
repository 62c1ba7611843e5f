// Package webhooks delivers switchlist events to configured HTTP endpoints.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/config"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// Payload is the JSON body of one delivery.
type Payload struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	SwitchlistID string         `json:"switchlistId"`
	TS           string         `json:"ts"`
	Data         map[string]any `json:"data,omitempty"`
}

type delivery struct {
	url      string
	eventID  string
	typ      string
	body     []byte
	attempts int
}

// Notifier queues events for every endpoint and posts them from a small
// worker pool. It satisfies switchlist.Publisher.
type Notifier struct {
	urls        []string
	secret      string
	maxAttempts int
	workers     int
	queue       chan delivery

	HTTP *http.Client
	// Backoff returns the wait before retry number attempts.
	Backoff func(attempts int) time.Duration
	Now     func() time.Time
	log     *zap.SugaredLogger

	wg sync.WaitGroup
}

func NewNotifier(cfg config.WebhooksConfig, log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{
		urls:        cfg.URLs,
		secret:      cfg.Secret,
		maxAttempts: max(cfg.MaxAttempts, 1),
		workers:     max(cfg.Workers, 1),
		queue:       make(chan delivery, max(cfg.QueueSize, 1)),
		HTTP:        &http.Client{Timeout: cfg.Timeout},
		Backoff:     nextBackoff,
		Now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Enabled reports whether any endpoint is configured.
func (n *Notifier) Enabled() bool { return len(n.urls) > 0 }

// Publish queues evt for every endpoint. A full queue drops the delivery.
func (n *Notifier) Publish(switchlistID string, evt switchlist.Event) {
	if !n.Enabled() {
		return
	}
	p := Payload{
		ID:           uuid.NewString(),
		Type:         evt.Type,
		SwitchlistID: switchlistID,
		TS:           n.Now().Format(time.RFC3339),
		Data:         evt.Data,
	}
	body, err := json.Marshal(p)
	if err != nil {
		n.log.Warnw("encode webhook payload", "type", evt.Type, "err", err)
		return
	}
	for _, u := range n.urls {
		select {
		case n.queue <- delivery{url: u, eventID: p.ID, typ: p.Type, body: body}:
		default:
			n.log.Warnw("webhook queue full, dropping", "url", u, "type", p.Type)
		}
	}
}

// Start runs the workers until ctx is done. Wait blocks until they exit.
func (n *Notifier) Start(ctx context.Context) {
	for range n.workers {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d := <-n.queue:
					n.deliver(ctx, d)
				}
			}
		}()
	}
}

func (n *Notifier) Wait() { n.wg.Wait() }

// deliver retries with backoff until a 2xx, maxAttempts or ctx ends.
func (n *Notifier) deliver(ctx context.Context, d delivery) {
	for {
		code, err := n.post(ctx, d)
		d.attempts++
		if err == nil && code >= 200 && code < 300 {
			n.log.Debugw("webhook delivered", "url", d.url, "type", d.typ, "attempts", d.attempts)
			return
		}
		if d.attempts >= n.maxAttempts {
			n.log.Warnw("webhook delivery failed", "url", d.url, "type", d.typ, "code", code, "attempts", d.attempts, "err", err)
			return
		}
		t := time.NewTimer(n.Backoff(d.attempts - 1))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (n *Notifier) post(ctx context.Context, d delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(d.body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, d.typ)
	req.Header.Set(HeaderEventID, d.eventID)
	if n.secret != "" {
		ts := n.Now().Unix()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderSignature, SignHMAC(n.secret, ts, d.body))
	}
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", d.url, err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
