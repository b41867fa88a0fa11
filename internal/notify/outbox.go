package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/labtrack/internal/metrics"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 10 * time.Second

// Outbox hands messages to a sender on a background goroutine so callers
// never wait on the transport. Failed deliveries are logged and dropped.
type Outbox struct {
	sender  Sender
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	ch     chan Message
	done   chan struct{}
}

// NewOutbox starts a worker delivering through sender. size bounds the
// number of undelivered messages; when full, new messages are dropped.
func NewOutbox(sender Sender, size int, m *metrics.Metrics) *Outbox {
	if size <= 0 {
		size = 64
	}
	o := &Outbox{
		sender:  sender,
		metrics: m,
		ch:      make(chan Message, size),
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// Post queues a message for delivery. It reports false if the message was
// dropped because the outbox is full or closed.
func (o *Outbox) Post(m Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.metrics.Notification(metrics.OutcomeDropped)
		return false
	}
	select {
	case o.ch <- m:
		return true
	default:
		slog.Warn("notification outbox full, dropping message", "title", m.Title)
		o.metrics.Notification(metrics.OutcomeDropped)
		return false
	}
}

// Close stops accepting messages and waits until queued ones are delivered.
func (o *Outbox) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	o.mu.Unlock()
	<-o.done
}

func (o *Outbox) run() {
	defer close(o.done)
	for m := range o.ch {
		deliver(o.sender, m, o.metrics)
	}
}

// deliver makes one attempt and swallows the error.
func deliver(sender Sender, m Message, mt *metrics.Metrics) bool {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := sender.Send(ctx, m); err != nil {
		slog.Error("notification delivery failed", "title", m.Title, "error", err)
		mt.Notification(metrics.OutcomeFailed)
		return false
	}
	mt.Notification(metrics.OutcomeDelivered)
	return true
}
