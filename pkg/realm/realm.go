// realm/realm.go
package realm

import (
	"strings"
	"time"
)

/* ===========================
   Top-level manifest
   =========================== */

// Config is the gate manifest: one Keycloak realm plus the routes it guards.
// Loaded once at startup and shared read-only; never mutated afterwards.
type Config struct {
	Realm  Realm   `toml:"realm"`
	Routes []Route `toml:"route"`
}

/* ===========================
   Realm
   =========================== */

type Realm struct {
	Issuer    string   `toml:"issuer"`
	JWKSURL   string   `toml:"jwks_url"` // optional override; default derived from issuer
	Audiences []string `toml:"audiences"`

	RefreshIntervalSeconds int  `toml:"refresh_interval_seconds"` // scheduled JWKS refresh; default 300
	ClockSkewSeconds       int  `toml:"clock_skew_seconds"`       // exp/nbf leeway; default 60
	Passthrough            bool `toml:"passthrough"`              // anonymous allowed when no credentials
}

// keycloakCertsPath is where Keycloak serves the realm JWKS document.
const keycloakCertsPath = "/protocol/openid-connect/certs"

// JWKSEndpoint returns the explicit jwks_url if set, otherwise the
// Keycloak-conventional certs endpoint under the issuer.
func (r Realm) JWKSEndpoint() string {
	if r.JWKSURL != "" {
		return r.JWKSURL
	}
	return strings.TrimRight(r.Issuer, "/") + keycloakCertsPath
}

func (r Realm) RefreshInterval() time.Duration {
	if r.RefreshIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.RefreshIntervalSeconds) * time.Second
}

func (r Realm) ClockSkew() time.Duration {
	if r.ClockSkewSeconds < 0 {
		return 0
	}
	if r.ClockSkewSeconds == 0 {
		return 60 * time.Second
	}
	return time.Duration(r.ClockSkewSeconds) * time.Second
}

/* ===========================
   HTTP routing
   =========================== */

type Route struct {
	Path    string `toml:"path"`
	Method  string `toml:"method"`
	Handler string `toml:"handler"` // registered handler name; default "whoami"
	Guard   Guard  `toml:"guard"`
}

// Guard is the optional role requirement layered on top of authentication.
// Empty guard means any authenticated-or-anonymous request reaches the handler.
type Guard struct {
	RequireAuth bool                `toml:"require_auth"`
	RealmRoles  []string            `toml:"realm_roles"`
	ClientRoles map[string][]string `toml:"client_roles"`
}

func (g Guard) Empty() bool {
	return !g.RequireAuth && len(g.RealmRoles) == 0 && len(g.ClientRoles) == 0
}
