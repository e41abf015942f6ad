// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-auth/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provided to fx
var Module = fx.Options(
	metrics.Module, // observers first; auth consumes them
	auth.Module,
	logger.Module,
)
