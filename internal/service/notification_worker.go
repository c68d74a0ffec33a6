package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/inventory-sync/internal/model"
)

const (
	maxPendingNotifications = 1000
	finalFlushTimeout       = 5 * time.Second
)

// MessagePublisher delivers inventory notifications to the queue.
type MessagePublisher interface {
	PublishInventoryMessage(ctx context.Context, msg model.InventoryMessage) error
}

// NotificationWorker buffers inventory notifications and publishes them to
// SQS on a ticker. Undelivered messages are retried in order on the next tick.
type NotificationWorker struct {
	publisher MessagePublisher
	interval  time.Duration
	stopChan  chan struct{}

	mu      sync.Mutex
	pending []model.InventoryMessage
}

// NewNotificationWorker creates a new NotificationWorker
func NewNotificationWorker(publisher MessagePublisher, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Enqueue queues msg for delivery. It is meant to be subscribed to the event bus.
func (w *NotificationWorker) Enqueue(msg model.InventoryMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, msg)
	if over := len(w.pending) - maxPendingNotifications; over > 0 {
		slog.Warn("Dropping oldest inventory notifications", slog.Int("dropped", over))
		w.pending = append([]model.InventoryMessage{}, w.pending[over:]...)
	}
}

// Pending returns the number of undelivered notifications.
func (w *NotificationWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Start begins delivering queued notifications until stopped. Whatever is
// still queued on shutdown gets one last delivery attempt.
func (w *NotificationWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Notification worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification worker stopped by context")
			w.flushOnShutdown()
			return
		case <-w.stopChan:
			slog.Info("Notification worker stopped")
			w.flushOnShutdown()
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// Stop stops the notification worker
func (w *NotificationWorker) Stop() {
	close(w.stopChan)
}

func (w *NotificationWorker) flushOnShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	w.processPending(ctx)
}

// processPending publishes queued messages in order, stopping at the first failure.
func (w *NotificationWorker) processPending(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	for i, msg := range batch {
		if err := w.publisher.PublishInventoryMessage(ctx, msg); err != nil {
			slog.Error("Failed to publish inventory notification",
				slog.String("action", string(msg.Action)),
				slog.String("source", msg.Source),
				slog.Int("remaining", len(batch)-i),
				slog.Any("err", err))
			w.requeue(batch[i:])
			return
		}
		slog.Info("Inventory notification published",
			slog.String("action", string(msg.Action)),
			slog.Int("total_changes", msg.TotalChanges))
	}
}

// requeue puts undelivered messages back ahead of anything enqueued meanwhile.
func (w *NotificationWorker) requeue(undelivered []model.InventoryMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(append([]model.InventoryMessage{}, undelivered...), w.pending...)
}
