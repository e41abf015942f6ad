// middleware/auth/context.go
package auth

import "context"

// Outcome is the per-request authentication decision.
type Outcome struct {
	Identity *DecodedToken // non-nil only when authenticated
	Failure  FailureKind   // non-empty only when rejected
}

func (o Outcome) Authenticated() bool { return o.Identity != nil }
func (o Outcome) Rejected() bool      { return o.Failure != "" }
func (o Outcome) Anonymous() bool     { return o.Identity == nil && o.Failure == "" }

// Label is the low-cardinality outcome name used by logs and metrics.
func (o Outcome) Label() string {
	switch {
	case o.Authenticated():
		return "authenticated"
	case o.Rejected():
		return "rejected"
	default:
		return "anonymous"
	}
}

type contextKey struct{ name string }

var outcomeCtxKey = &contextKey{"auth-outcome"}

func withOutcome(ctx context.Context, o Outcome) context.Context {
	return context.WithValue(ctx, outcomeCtxKey, o)
}

// OutcomeFromContext returns the decision the middleware attached, or an
// anonymous zero value when no auth middleware ran.
func OutcomeFromContext(ctx context.Context) Outcome {
	if o, ok := ctx.Value(outcomeCtxKey).(Outcome); ok {
		return o
	}
	return Outcome{}
}

// IdentityFromContext returns the validated token for an authenticated
// request.
func IdentityFromContext(ctx context.Context) (*DecodedToken, bool) {
	o := OutcomeFromContext(ctx)
	return o.Identity, o.Identity != nil
}

func IsAuthenticated(ctx context.Context) bool {
	_, ok := IdentityFromContext(ctx)
	return ok
}
