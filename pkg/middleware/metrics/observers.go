package metrics

import "github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"

// ObserveDecision feeds the auth middleware's per-request decision events.
func ObserveDecision(outcome string, reason auth.FailureKind) {
	authDecisions.WithLabelValues(outcome, string(reason)).Inc()
}

// ObserveJWKSRefresh feeds the key cache's refresh attempts.
func ObserveJWKSRefresh(trigger string, keys int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		keySetKeys.Set(float64(keys))
	}
	jwksRefreshes.WithLabelValues(trigger, result).Inc()
}
