package events

import (
	"context"
	"log/slog"
)

// Worker drains buffered notifications into a sink on its own goroutine. It
// decouples payment latency from sink latency without dropping ordering:
// records are forwarded one at a time in enqueue order.
type Worker struct {
	sink   Publisher
	inbox  chan Notification
	logger *slog.Logger
}

// NewWorker creates a worker with the given buffer size. Enqueue blocks once
// the buffer is full; payments would rather wait than lose a record.
func NewWorker(sink Publisher, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		sink:   sink,
		inbox:  make(chan Notification, buffer),
		logger: logger,
	}
}

// Publish enqueues a notification for background delivery.
func (w *Worker) Publish(ctx context.Context, n Notification) error {
	select {
	case w.inbox <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run forwards notifications until ctx is cancelled, then drains whatever is
// already buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case n := <-w.inbox:
			w.forward(ctx, n)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case n := <-w.inbox:
			// Delivery context is detached: the run context is already done.
			w.forward(context.Background(), n)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, n Notification) {
	if err := w.sink.Publish(ctx, n); err != nil && w.logger != nil {
		w.logger.ErrorContext(ctx, "notification delivery failed",
			"kind", string(n.Kind()),
			"key", n.Key(),
			"error", err,
		)
	}
}
