package leveling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PrimaryFunction/Arkos/internal/metrics"
)

// DefaultQueueSize bounds pending level-up notifications.
const DefaultQueueSize = 256

// Notification outcomes used as the "outcome" label.
const (
	notifySent    = "sent"
	notifyFailed  = "failed"
	notifyDropped = "dropped"
)

// LevelUp announces that a user reached a new level.
type LevelUp struct {
	UserID    string
	ChannelID string // Channel the triggering relay happened in
	Level     int64  // Level reached
}

// Sender posts notifications into a channel.
type Sender interface {
	Notify(ctx context.Context, channelID, text string) error
	Mention(userID string) string
}

// Message renders the announcement for n.
func Message(s Sender, n LevelUp) string {
	return fmt.Sprintf("%s leveled up to %d!", s.Mention(n.UserID), n.Level)
}

// Notifier delivers level-up notifications off the award path.
//
// Enqueue is safe from any goroutine. Delivery happens either in Run, or
// synchronously in Drain for callers that need every notification sent
// before they continue.
type Notifier struct {
	sender  Sender
	queue   *levelUpQueue
	timeout time.Duration
	logger  *slog.Logger
}

// NewNotifier creates a Notifier with room for queueSize pending
// notifications. Non-positive sizes use DefaultQueueSize; a non-positive
// timeout uses 10s.
func NewNotifier(sender Sender, queueSize int, timeout time.Duration, logger *slog.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:  sender,
		queue:   newLevelUpQueue(queueSize),
		timeout: timeout,
		logger:  logger,
	}
}

// Enqueue schedules n for delivery. Returns false if it was dropped because
// the queue is full or closed.
func (n *Notifier) Enqueue(lu LevelUp) bool {
	if !n.queue.Enqueue(lu) {
		metrics.NotificationsTotal.WithLabelValues(notifyDropped).Inc()
		n.logger.Warn("level-up notification dropped",
			"user_id", lu.UserID,
			"channel_id", lu.ChannelID,
			"level", lu.Level,
		)
		return false
	}
	return true
}

// Pending returns the number of undelivered notifications.
func (n *Notifier) Pending() int {
	return n.queue.Len()
}

// Run delivers notifications until ctx is done or Close was called and the
// queue is drained. It returns nil on Close and ctx.Err() on cancellation.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		n.Drain(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-n.queue.Wait():
			if !ok {
				// Closed: deliver what is left and stop.
				n.Drain(ctx)
				return nil
			}
		}
	}
}

// Drain delivers every pending notification on the calling goroutine and
// returns how many were taken off the queue.
func (n *Notifier) Drain(ctx context.Context) int {
	count := 0
	for {
		if ctx.Err() != nil {
			return count
		}
		lu, ok := n.queue.TryDequeue()
		if !ok {
			return count
		}
		count++
		n.deliver(ctx, lu)
	}
}

// Close stops accepting notifications. Run returns after draining.
func (n *Notifier) Close() {
	n.queue.Close()
}

func (n *Notifier) deliver(ctx context.Context, lu LevelUp) {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Notify(callCtx, lu.ChannelID, Message(n.sender, lu)); err != nil {
		metrics.NotificationsTotal.WithLabelValues(notifyFailed).Inc()
		n.logger.Warn("level-up notification failed",
			"user_id", lu.UserID,
			"channel_id", lu.ChannelID,
			"level", lu.Level,
			"error", err,
		)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(notifySent).Inc()
	n.logger.Debug("level-up notification sent",
		"user_id", lu.UserID,
		"channel_id", lu.ChannelID,
		"level", lu.Level,
	)
}
