package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"pingme/internal/infra/storage/memory"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the in-memory queue and publishes each record to the broker
// as a CloudEvents envelope. Failed publishes are retried with backoff.
type Worker struct {
	Queue       *memory.Outbox
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	ev, err := w.Queue.Claim(ctx)
	if err != nil || ev == nil {
		return err
	}
	payload, headers, err := w.formatPayload(ev)
	if err != nil {
		return w.Queue.MarkFailed(ctx, ev, w.nextRetry(ev.Attempts))
	}
	topic := w.topicFor(ev.Record.Name)
	if err := w.Producer.Publish(ctx, topic, ev.Record.Aggregate, payload, headers); err != nil {
		return w.Queue.MarkFailed(ctx, ev, w.nextRetry(ev.Attempts))
	}
	return w.Queue.MarkSent(ctx, ev)
}

func (w *Worker) formatPayload(ev *memory.PendingEvent) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(ev.Record.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            ev.Record.Name + ".v1",
		"source":          w.source(),
		"time":            ev.Record.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range ev.Record.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://pingme"
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
