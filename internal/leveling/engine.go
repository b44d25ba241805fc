package leveling

import (
	"context"
	"log/slog"
	"time"

	"github.com/PrimaryFunction/Arkos/internal/metrics"
	"github.com/PrimaryFunction/Arkos/internal/model"
)

// Store persists XP records. UpdateXP must run load, fn and store
// atomically per user.
type Store interface {
	GetXP(ctx context.Context, userID string) (model.XPRecord, error)
	UpdateXP(ctx context.Context, userID string, fn func(model.XPRecord) model.XPRecord) (model.XPRecord, error)
}

// Outcome describes one persisted award.
type Outcome struct {
	Record    model.XPRecord // Stored record after the award
	Delta     int64
	LeveledUp bool
}

// Engine awards and reports XP.
type Engine struct {
	store    Store
	curve    Curve
	notifier *Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each store call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine. A nil notifier discards level-up notifications.
// The curve is expected to be valid (see Curve.Validate).
func New(st Store, curve Curve, notifier *Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		curve:    curve,
		notifier: notifier,
		timeout:  10 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Curve returns the engine's progression tunables.
func (e *Engine) Curve() Curve {
	return e.curve
}

// Award credits userID for text relayed into channelID. Failures are logged
// and counted, never returned.
func (e *Engine) Award(ctx context.Context, userID, channelID, text string) {
	if _, err := e.Credit(ctx, userID, channelID, text); err != nil {
		metrics.XPAwardFailures.Inc()
		e.logger.Error("xp award failed", "user_id", userID, "channel_id", channelID, "error", err)
	}
}

// Credit is Award with the outcome and error exposed. The record is
// persisted before any notification is queued; a failed store write queues
// nothing.
func (e *Engine) Credit(ctx context.Context, userID, channelID, text string) (Outcome, error) {
	// The relay that triggered this award already succeeded; its caller
	// going away must not lose the XP.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	delta := e.curve.Delta(text)
	var leveledUp bool
	rec, err := e.store.UpdateXP(callCtx, userID, func(cur model.XPRecord) model.XPRecord {
		var next model.XPRecord
		next, leveledUp = e.curve.Apply(cur, delta)
		return next
	})
	if err != nil {
		return Outcome{}, err
	}

	metrics.XPAwardsTotal.Inc()
	e.logger.Debug("xp awarded",
		"user_id", userID,
		"delta", delta,
		"xp", rec.XP,
		"level", rec.Level,
	)

	if leveledUp {
		metrics.LevelUpsTotal.Inc()
		e.logger.Info("level up", "user_id", userID, "channel_id", channelID, "level", rec.Level)
		if e.notifier != nil {
			e.notifier.Enqueue(LevelUp{UserID: userID, ChannelID: channelID, Level: rec.Level})
		}
	}
	return Outcome{Record: rec, Delta: delta, LeveledUp: leveledUp}, nil
}

// Query returns the user's record, (0, 1) if they have none.
func (e *Engine) Query(ctx context.Context, userID string) (model.XPRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.store.GetXP(callCtx, userID)
}
