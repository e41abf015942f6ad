package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequestsByOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_by_outcome", Help: "http requests by authentication outcome"},
		[]string{"outcome"},
	)

	authDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_decisions_total", Help: "authentication decisions by outcome and rejection reason"},
		[]string{"outcome", "reason"},
	)

	jwksRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jwks_refresh_total", Help: "jwks refresh attempts by trigger and result"},
		[]string{"trigger", "result"},
	)

	keySetKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "keyset_keys", Help: "signing keys in the current jwks snapshot"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequests,
		totalHttpRequestsToUri,
		totalHttpRequestsByOutcome,
		authDecisions,
		jwksRefreshes,
		keySetKeys,
	)
}
