package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// desk_quote_requests_total
	//
	// counter of quote requests by outcome
	//
	// Has the following labels:
	// * direction - exact_input or exact_output
	// * outcome - resolved, same_token, unavailable, invalid
	QuoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_quote_requests_total",
			Help: "Total number of quote requests by outcome.",
		},
		[]string{"direction", "outcome"},
	)

	// desk_quote_cache_total
	//
	// counter of quote cache lookups
	//
	// Has the following labels:
	// * result - hit or miss
	QuoteCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_quote_cache_total",
			Help: "Quote cache lookups by result.",
		},
		[]string{"result"},
	)

	// desk_quote_stale_dropped_total
	//
	// counter of quote results discarded because a newer input superseded them
	QuoteStaleDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desk_quote_stale_dropped_total",
			Help: "Quote results dropped after being superseded.",
		},
	)

	// desk_oracle_call_duration_seconds
	//
	// histogram of remote quoting oracle latency
	OracleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desk_oracle_call_duration_seconds",
			Help:    "Histogram of quoting oracle call latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)

	// desk_position_gate_rejections_total
	//
	// counter of mutating operations refused because another was in flight
	//
	// Has the following labels:
	// * op - mint, increase, decrease, collect, burn
	GateRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_position_gate_rejections_total",
			Help: "Mutating position operations refused by the processing gate.",
		},
		[]string{"op"},
	)

	// desk_http_requests_total
	//
	// counter of HTTP API requests
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "code"},
	)
)

func init() {
	prometheus.MustRegister(QuoteRequests)
	prometheus.MustRegister(QuoteCache)
	prometheus.MustRegister(QuoteStaleDropped)
	prometheus.MustRegister(OracleLatency)
	prometheus.MustRegister(GateRejections)
	prometheus.MustRegister(HTTPRequests)
}
