// pkg/gate/router.go
package gate

import (
	"fmt"
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-auth/pkg/realm"
	"github.com/joeydtaylor/steeze-auth/pkg/transport/httpx"
)

type BuildDeps struct {
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
}

// BuildRouter assembles the middleware chain and the guarded routes from the
// realm manifest. Auth runs outermost so everything inside sees the outcome.
func BuildRouter(cfg realm.Config, d BuildDeps) (http.Handler, error) {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))

	r.Use(d.Auth.Middleware())
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(metrics.Collect())

	if d.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.Metrics)
	}
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(handleHealthz))

	for _, rt := range cfg.Routes {
		h, ok := lookupHandler(rt.Handler)
		if !ok {
			return nil, fmt.Errorf("route %s %s: handler %q not registered", rt.Method, rt.Path, rt.Handler)
		}
		r.Handle(rt.Method, rt.Path, withGuard(h, rt.Guard))
	}
	return r.Mux(), nil
}
