package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
)

// Collect produces the HTTP middleware that records the counters/histogram.
// It runs inside the auth middleware, so the outcome is already on the
// request context.
func Collect() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				// Skip self-scrape and any additional caller-configured paths
				if isSkipPath(r) {
					return
				}

				endTime := time.Since(startTime)

				code := strconv.Itoa(ww.Status())
				uri := r.URL.Path // path only; avoid cardinality explosion
				method := r.Method
				outcome := auth.OutcomeFromContext(r.Context()).Label()

				totalHttpRequests.WithLabelValues(code, method).Inc()
				totalHttpRequestsToUri.WithLabelValues(code, uri, method).Inc()
				totalHttpRequestsByOutcome.WithLabelValues(outcome).Inc()
				responseTime.Observe(endTime.Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
