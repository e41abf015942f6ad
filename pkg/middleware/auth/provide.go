// middleware/auth/provide.go
package auth

import (
	"context"

	"github.com/joeydtaylor/steeze-auth/pkg/realm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type cacheParams struct {
	fx.In

	Cfg realm.Config
	Log *zap.Logger

	RefreshObs RefreshObserver `optional:"true"`
}

// ProvideKeySetCache builds the realm key cache and ties its scheduled
// refresh loop to the fx lifecycle. The initial fetch is non-fatal: on a
// cold start requests fail with keyset_unavailable until a fetch succeeds.
func ProvideKeySetCache(lc fx.Lifecycle, p cacheParams) *KeySetCache {
	var opts []KeySetOption
	if p.RefreshObs != nil {
		opts = append(opts, WithRefreshObserver(p.RefreshObs))
	}
	c := NewKeySetCache(
		p.Cfg.Realm.JWKSEndpoint(),
		p.Cfg.Realm.RefreshInterval(),
		p.Log,
		opts...,
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.refresh(ctx, "startup"); err != nil {
				p.Log.Warn("initial jwks fetch failed",
					zap.String("url", p.Cfg.Realm.JWKSEndpoint()),
					zap.Error(err),
				)
			}
			c.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			c.Stop()
			return nil
		},
	})
	return c
}

func ProvideTokenDecoder(cfg realm.Config, keys *KeySetCache) *TokenDecoder {
	r := cfg.Realm
	return NewTokenDecoder(keys, r.Issuer, r.Audiences, r.ClockSkew())
}

type middlewareParams struct {
	fx.In

	Cfg realm.Config
	Dec *TokenDecoder
	Log *zap.Logger

	DecisionObs DecisionObserver `optional:"true"`
}

func ProvideAuthentication(p middlewareParams) *Middleware {
	var opts []Option
	if p.DecisionObs != nil {
		opts = append(opts, WithDecisionObserver(p.DecisionObs))
	}
	return New(p.Dec, p.Cfg.Realm.Passthrough, p.Log, opts...)
}

var Module = fx.Options(
	fx.Provide(ProvideKeySetCache),
	fx.Provide(ProvideTokenDecoder),
	fx.Provide(ProvideAuthentication),
)
