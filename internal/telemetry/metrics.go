// Package telemetry owns the Prometheus collectors and the OpenTelemetry
// tracer provider shared by the agent and the tool server.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mcplab"

// Service names under which pkg/app publishes telemetry to modules.
const (
	ServiceMetrics  = "telemetry.metrics"
	ServiceGatherer = "telemetry.gatherer"
)

// Outcome labels for tool call metrics.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	toolCalls      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	authzDecisions *prometheus.CounterVec
	agentRuns      *prometheus.CounterVec
	modelTurns     prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Role checks made by privileged tools, by tool and decision.",
		}, []string{"tool", "decision"}),
		agentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Agent runs by stop reason.",
		}, []string{"stop_reason"}),
		modelTurns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_turns_total",
			Help:      "Chat completion requests issued by the agent.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.toolCalls, m.toolDuration, m.authzDecisions, m.agentRuns, m.modelTurns,
			m.httpRequests, m.httpDuration)
	}
	return m
}

// ObserveToolCall records one tool invocation.
func (m *Metrics) ObserveToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveAuthz records one authorization decision.
func (m *Metrics) ObserveAuthz(tool, decision string) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(tool, decision).Inc()
}

// ObserveRun records a finished agent run and its model turns.
func (m *Metrics) ObserveRun(stopReason string, turns int) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(stopReason).Inc()
	m.modelTurns.Add(float64(turns))
}

// ObserveHTTP records one gateway request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
