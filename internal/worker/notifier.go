package worker

// Retry queue for OnHand/price notifications to the secondary retail
// platform. Bounded and in-memory: losing these on restart is acceptable —
// the platform is best-effort and the next successful reconcile pushes fresh
// values anyway.

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Notification is one pending per-product push.
type Notification struct {
	ProductID int64
	OnHand    decimal.Decimal
	BasePrice *decimal.Decimal
	Attempts  int
}

// PushFunc delivers a notification to the platform.
type PushFunc func(ctx context.Context, n Notification) error

// RetryNotifier holds failed notifications for opportunistic re-delivery.
// When full, the oldest entry is dropped — newer stock values supersede it.
type RetryNotifier struct {
	mu          sync.Mutex
	entries     []Notification
	capacity    int
	maxAttempts int
	push        PushFunc
}

func NewRetryNotifier(capacity int, push PushFunc) *RetryNotifier {
	if capacity <= 0 {
		capacity = 100
	}
	return &RetryNotifier{capacity: capacity, maxAttempts: 5, push: push}
}

// Enqueue adds a failed notification for later retry.
func (n *RetryNotifier) Enqueue(entry Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.entries) >= n.capacity {
		dropped := n.entries[0]
		n.entries = n.entries[1:]
		log.Warn().Int64("product_id", dropped.ProductID).
			Msg("notifier: queue full, dropped oldest notification")
	}
	n.entries = append(n.entries, entry)
}

// Flush attempts every queued notification once. Failures below the attempt
// cap are re-queued; the rest are dropped with a log line.
func (n *RetryNotifier) Flush(ctx context.Context) (sent, remaining int) {
	n.mu.Lock()
	pending := n.entries
	n.entries = nil
	n.mu.Unlock()

	var requeue []Notification
	for _, entry := range pending {
		if err := n.push(ctx, entry); err != nil {
			entry.Attempts++
			if entry.Attempts >= n.maxAttempts {
				log.Error().Err(err).Int64("product_id", entry.ProductID).
					Int("attempts", entry.Attempts).
					Msg("notifier: giving up on notification")
				continue
			}
			requeue = append(requeue, entry)
			continue
		}
		sent++
	}

	n.mu.Lock()
	// Prepend survivors so newly enqueued entries keep their relative order.
	n.entries = append(requeue, n.entries...)
	if len(n.entries) > n.capacity {
		n.entries = n.entries[len(n.entries)-n.capacity:]
	}
	remaining = len(n.entries)
	n.mu.Unlock()
	return sent, remaining
}

// Len returns the number of queued notifications.
func (n *RetryNotifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}
