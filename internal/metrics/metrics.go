// ABOUTME: Prometheus instrumentation for the gateway
// ABOUTME: Recorder satisfies the MCP and patient lookup observer interfaces

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "santecall_gateway"

// Recorder owns a private registry so that several gateways (and tests) can
// coexist in one process. All methods are safe on a nil *Recorder.
type Recorder struct {
	registry *prometheus.Registry

	rpcRequests  *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	lookups      *prometheus.HistogramVec
}

// NewRecorder registers the gateway metrics plus the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC messages handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations, by tool and whether the result was an error.",
		}, []string{"tool", "is_error"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Time spent running MCP tool handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		lookups: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_lookup_seconds",
			Help:      "SanteCall lookup latency, by result.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),
	}
}

// ObserveRPC counts one JSON-RPC message.
func (r *Recorder) ObserveRPC(method, outcome string) {
	if r == nil {
		return
	}
	r.rpcRequests.WithLabelValues(method, outcome).Inc()
}

// ObserveToolCall counts one tool invocation and records its duration.
func (r *Recorder) ObserveToolCall(tool string, isError bool, d time.Duration) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, strconv.FormatBool(isError)).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveLookup records one backend lookup.
func (r *Recorder) ObserveLookup(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(result).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
