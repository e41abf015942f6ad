package metrics

import (
	"net/http"

	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// NewPromHttpHandler returns the /metrics handler.
func NewPromHttpHandler() http.Handler { return promhttp.Handler() }

// ProvideMetrics is the Fx provider used by the server wiring.
func ProvideMetrics() http.Handler { return NewPromHttpHandler() }

func provideDecisionObserver() auth.DecisionObserver { return ObserveDecision }
func provideRefreshObserver() auth.RefreshObserver   { return ObserveJWKSRefresh }

var Module = fx.Options(
	fx.Provide(provideDecisionObserver),
	fx.Provide(provideRefreshObserver),
)
