// Package metrics holds the Prometheus collectors of the bot and the HTTP
// listener that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNotFound     = "not_found"
	OutcomeFailed       = "failed"
)

var (
	// RelaysTotal counts relay attempts by outcome.
	RelaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkos_relays_total",
			Help: "Relay attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// BindingsActive tracks transient sender bindings currently provisioned.
	// It returns to zero between relays; a stuck non-zero value is a leak.
	BindingsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arkos_bindings_active",
		Help: "Transient sender bindings currently provisioned.",
	})

	// BindingReleaseFailures counts bindings whose release call failed.
	BindingReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arkos_binding_release_failures_total",
		Help: "Transient sender bindings that could not be released.",
	})

	// XPAwardsTotal counts persisted XP awards.
	XPAwardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arkos_xp_awards_total",
		Help: "XP awards persisted.",
	})

	// XPAwardFailures counts awards lost to store errors.
	XPAwardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arkos_xp_award_failures_total",
		Help: "XP awards that failed to persist.",
	})

	// LevelUpsTotal counts level-up transitions.
	LevelUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arkos_level_ups_total",
		Help: "Level-up transitions persisted.",
	})

	// NotificationsTotal counts level-up notifications by outcome
	// (sent, failed, dropped).
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkos_notifications_total",
			Help: "Level-up notifications by outcome.",
		},
		[]string{"outcome"},
	)
)
