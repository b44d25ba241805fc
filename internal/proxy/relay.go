package proxy

import (
	"context"
	"log/slog"
	"time"

	"github.com/PrimaryFunction/Arkos/internal/metrics"
	"github.com/PrimaryFunction/Arkos/internal/model"
)

// DefaultIOTimeout bounds each platform call made by a relay.
const DefaultIOTimeout = 10 * time.Second

// Request is one "speak as proxy" invocation.
type Request struct {
	ProxyKey  string
	UserID    string // Acting user
	ChannelID string // Channel the user invoked the relay in
	MessageID string // Invoking message, deleted after the send; may be empty
	Text      string
}

// Result describes a successful relay.
type Result struct {
	RelayID       string
	Proxy         model.Proxy
	ChannelID     string // Where the message appeared
	HostChannelID string // Where the binding was provisioned
}

// Relayer performs impersonated sends. It is safe for concurrent use; each
// call provisions its own binding.
type Relayer struct {
	access   *AccessControl
	platform Platform
	awarder  Awarder
	ids      IDGenerator
	timeout  time.Duration
	logger   *slog.Logger
}

// RelayerOption configures a Relayer.
type RelayerOption func(*Relayer)

// WithIOTimeout bounds every platform call. Non-positive values are ignored.
func WithIOTimeout(d time.Duration) RelayerOption {
	return func(r *Relayer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithIDGenerator overrides the relay ID generator (for testing).
func WithIDGenerator(g IDGenerator) RelayerOption {
	return func(r *Relayer) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RelayerOption {
	return func(r *Relayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRelayer creates a Relayer. A nil awarder discards awards.
func NewRelayer(access *AccessControl, platform Platform, awarder Awarder, opts ...RelayerOption) *Relayer {
	if awarder == nil {
		awarder = NopAwarder{}
	}
	r := &Relayer{
		access:   access,
		platform: platform,
		awarder:  awarder,
		ids:      UUIDv7Generator{},
		timeout:  DefaultIOTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay sends req.Text into req.ChannelID under the proxy's identity.
//
// Returns ErrCodeUnauthorized or ErrCodeProxyNotFound before touching the
// platform, and ErrCodeInfrastructure if the binding could not be
// provisioned or the send failed. Deleting the invoking message and awarding
// XP never fail a relay.
func (r *Relayer) Relay(ctx context.Context, req Request) (Result, error) {
	relayID := r.ids.Generate()
	log := r.logger.With(
		"relay_id", relayID,
		"proxy_key", req.ProxyKey,
		"user_id", req.UserID,
		"channel_id", req.ChannelID,
	)
	log.Debug("relay requested", "text_len", len(req.Text))

	ok, err := r.access.Authorize(ctx, req.ProxyKey, req.UserID)
	if err != nil {
		metrics.RelaysTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, err
	}
	if !ok {
		log.Debug("relay refused: no grant")
		metrics.RelaysTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		return Result{}, newUnauthorizedError(req.ProxyKey, req.UserID)
	}

	p, err := r.access.Proxy(ctx, req.ProxyKey)
	if err != nil {
		log.Debug("relay refused: proxy lookup failed", "error", err)
		outcome := metrics.OutcomeFailed
		if IsNotFound(err) {
			outcome = metrics.OutcomeNotFound
		}
		metrics.RelaysTotal.WithLabelValues(outcome).Inc()
		return Result{}, err
	}

	hostID, threadID, err := r.resolveHost(ctx, req.ChannelID)
	if err != nil {
		metrics.RelaysTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, newInfrastructureError("resolve host channel", req.ProxyKey, err)
	}
	if threadID != "" {
		log.Debug("relay in sub-channel, using parent for binding", "host_channel_id", hostID)
	}

	err = r.withBinding(ctx, log, hostID, p, func(b Binding) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.platform.SendAs(callCtx, b, threadID, req.Text)
	})
	if err != nil {
		metrics.RelaysTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, err
	}
	log.Debug("relay sent", "sender_name", p.Name)

	r.deleteInvocation(ctx, log, req)

	r.awarder.Award(ctx, req.UserID, req.ChannelID, req.Text)

	metrics.RelaysTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return Result{
		RelayID:       relayID,
		Proxy:         p,
		ChannelID:     req.ChannelID,
		HostChannelID: hostID,
	}, nil
}

// resolveHost returns the channel that can host a binding and, when the
// target is a sub-channel, the sub-channel to address.
func (r *Relayer) resolveHost(ctx context.Context, channelID string) (hostID, threadID string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parentID, err := r.platform.ChannelParent(callCtx, channelID)
	if err != nil {
		return "", "", err
	}
	if parentID == "" {
		return channelID, "", nil
	}
	return parentID, channelID, nil
}

// withBinding provisions a binding on hostID, runs fn with it and releases
// it on every exit path. A release failure is logged and counted but never
// replaces fn's result: once the send succeeded the message is delivered.
func (r *Relayer) withBinding(ctx context.Context, log *slog.Logger, hostID string, p model.Proxy, fn func(Binding) error) error {
	provCtx, cancel := context.WithTimeout(ctx, r.timeout)
	b, err := r.platform.ProvisionBinding(provCtx, hostID, p.Name, p.AvatarURL)
	cancel()
	if err != nil {
		return newInfrastructureError("provision binding", p.Key, err)
	}
	metrics.BindingsActive.Inc()
	log.Debug("binding provisioned", "binding_id", b.ID, "host_channel_id", hostID)

	defer func() {
		// Release even when the caller's context is already done.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.platform.ReleaseBinding(relCtx, b); err != nil {
			metrics.BindingReleaseFailures.Inc()
			log.Error("binding release failed", "binding_id", b.ID, "error", err)
			return
		}
		metrics.BindingsActive.Dec()
		log.Debug("binding released", "binding_id", b.ID)
	}()

	if err := fn(b); err != nil {
		return newInfrastructureError("send through binding", p.Key, err)
	}
	return nil
}

// deleteInvocation removes the user's invoking message. Failures (missing
// permission, message already gone) are not relay failures.
func (r *Relayer) deleteInvocation(ctx context.Context, log *slog.Logger, req Request) {
	if req.MessageID == "" {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.platform.DeleteMessage(callCtx, req.ChannelID, req.MessageID); err != nil {
		log.Debug("invoking message not deleted", "message_id", req.MessageID, "error", err)
		return
	}
	log.Debug("invoking message deleted", "message_id", req.MessageID)
}
