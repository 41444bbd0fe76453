// SPDX-License-Identifier: MIT

// Package metrics holds the arsynox business metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_classifications_total",
		Help: "Normalized stream URLs by classification label",
	}, []string{"type"})

	normalizeDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arsynox_normalize_degraded_total",
		Help: "Inputs that could not be resolved and were passed through unchanged",
	})

	relayOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_relay_outcomes_total",
		Help: "Relay deliveries by outcome",
	}, []string{"outcome"}) // outcome=logged|disabled|failed

	relayQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arsynox_relay_queue_depth",
		Help: "Events waiting in the relay dispatcher queue",
	})

	proxyResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_proxy_responses_total",
		Help: "Proxied upstream responses by status class",
	}, []string{"class"}) // class=2xx|3xx|4xx|5xx|error

	proxyBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arsynox_proxy_bytes_total",
		Help: "Bytes relayed from upstream to clients",
	})

	proxyManifestRewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_proxy_manifest_rewrites_total",
		Help: "Manifest rewrites by decoding mode",
	}, []string{"mode"}) // mode=decoded|lines

	hostPolicyDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_host_policy_decisions_total",
		Help: "Proxy host policy decisions",
	}, []string{"decision", "source"}) // decision=allow|deny, source=lookup|cache

	probeResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_probe_results_total",
		Help: "Headless probe results",
	}, []string{"result"}) // result=playing|error|timeout

	playerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_player_transitions_total",
		Help: "Player state machine transitions",
	}, []string{"from", "to"})

	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arsynox_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arsynox_config_reloads_total",
		Help: "Configuration reload attempts by result",
	}, []string{"result"}) // result=success|failure
)

// RecordClassification counts one normalized URL.
func RecordClassification(label string, degraded bool) {
	classificationsTotal.WithLabelValues(label).Inc()
	if degraded {
		normalizeDegradedTotal.Inc()
	}
}

// RecordRelayOutcome counts one relay delivery outcome.
func RecordRelayOutcome(outcome string) {
	relayOutcomesTotal.WithLabelValues(outcome).Inc()
}

// SetRelayQueueDepth publishes the current dispatcher backlog.
func SetRelayQueueDepth(n int) {
	relayQueueDepth.Set(float64(n))
}

// RecordProxyResponse counts an upstream response. status 0 means the request failed.
func RecordProxyResponse(status int, bytes int64) {
	proxyResponsesTotal.WithLabelValues(StatusClass(status)).Inc()
	if bytes > 0 {
		proxyBytesTotal.Add(float64(bytes))
	}
}

// RecordManifestRewrite counts a manifest rewrite.
func RecordManifestRewrite(decoded bool) {
	mode := "lines"
	if decoded {
		mode = "decoded"
	}
	proxyManifestRewritesTotal.WithLabelValues(mode).Inc()
}

// RecordHostPolicyDecision counts a proxy host policy decision.
func RecordHostPolicyDecision(allowed, cached bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	source := "lookup"
	if cached {
		source = "cache"
	}
	hostPolicyDecisionsTotal.WithLabelValues(decision, source).Inc()
}

// RecordProbeResult counts a headless probe result.
func RecordProbeResult(result string) {
	probeResultsTotal.WithLabelValues(result).Inc()
}

// RecordPlayerTransition counts a player state change.
func RecordPlayerTransition(from, to string) {
	playerTransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncConfigValidationError increments the config validation error counter.
func IncConfigValidationError() {
	configValidationErrors.Inc()
}

// RecordConfigReload counts a reload attempt.
func RecordConfigReload(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	configReloadsTotal.WithLabelValues(result).Inc()
}

// StatusClass maps an HTTP status to its class label.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
