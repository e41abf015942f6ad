// middleware/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenSource produces a DecodedToken from a raw bearer token.
// *TokenDecoder implements it; tests substitute fakes.
type TokenSource interface {
	Decode(ctx context.Context, raw string) (*DecodedToken, error)
}

// DecisionObserver is notified once per request with the final outcome.
// reason is empty unless the request was rejected.
type DecisionObserver func(outcome string, reason FailureKind)

// Middleware converts each request's Authorization header into an Outcome
// and enforces the passthrough policy: absent credentials may proceed as
// anonymous under passthrough, but invalid credentials are always rejected.
type Middleware struct {
	decoder     TokenSource
	passthrough bool
	skip        map[string]struct{}
	observe     DecisionObserver
	log         *zap.Logger
}

type Option func(*Middleware)

// WithDecisionObserver wires an external sink (e.g. metrics) for decisions.
func WithDecisionObserver(fn DecisionObserver) Option {
	return func(m *Middleware) {
		if fn != nil {
			m.observe = fn
		}
	}
}

// WithSkipPaths replaces the default set of paths that bypass
// authentication entirely (probes and self-scrape).
func WithSkipPaths(paths ...string) Option {
	return func(m *Middleware) {
		m.skip = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			m.skip[p] = struct{}{}
		}
	}
}

func New(decoder TokenSource, passthrough bool, log *zap.Logger, opts ...Option) *Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Middleware{
		decoder:     decoder,
		passthrough: passthrough,
		skip:        map[string]struct{}{"/healthz": {}, "/metrics": {}, "/ping": {}},
		observe:     func(string, FailureKind) {},
		log:         log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := m.skip[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				if m.passthrough {
					o := Outcome{}
					m.observe(o.Label(), "")
					m.log.Debug("request passed through anonymous",
						zap.String("uri", r.URL.Path),
					)
					next.ServeHTTP(w, r.WithContext(withOutcome(r.Context(), o)))
					return
				}
				m.rejectRequest(w, r, FailureMissingCredentials)
				return
			}

			tok, err := m.decoder.Decode(r.Context(), raw)
			if err != nil {
				kind, classified := KindOf(err)
				if !classified {
					kind = FailureKeySetUnavailable
				}
				m.rejectRequest(w, r, kind)
				return
			}

			o := Outcome{Identity: tok}
			m.observe(o.Label(), "")
			m.log.Debug("token accepted",
				zap.String("sub", tok.Subject),
				zap.String("uri", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(withOutcome(r.Context(), o)))
		})
	}
}

func (m *Middleware) rejectRequest(w http.ResponseWriter, r *http.Request, kind FailureKind) {
	m.observe(Outcome{Failure: kind}.Label(), kind)
	// Reason and route only; token contents are never logged.
	m.log.Warn("request rejected",
		zap.String("reason", string(kind)),
		zap.String("uri", r.URL.Path),
		zap.String("httpMethod", r.Method),
		zap.String("remoteAddr", r.RemoteAddr),
	)
	WriteRejection(w, kind)
}

// WriteRejection writes the short-circuit response for a failure kind.
// Shared with route guards so every rejection has the same wire shape.
func WriteRejection(w http.ResponseWriter, kind FailureKind) {
	switch kind {
	case FailureMissingCredentials:
		w.Header().Set("WWW-Authenticate", "Bearer")
	case FailureMissingRole:
		// 403 carries no challenge; credentials were fine.
	default:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(kind)})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// A missing header or any other scheme means no credentials were supplied,
// which is distinct from an invalid token.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}
