// middleware/auth/claims.go
package auth

import "time"

// DecodedToken is the validated claim set of one request's bearer token.
// It is only ever constructed after signature verification succeeds, lives
// in the request context for one request, and is never persisted.
type DecodedToken struct {
	Subject   string
	Issuer    string
	Audiences []string

	ExpiresAt time.Time
	NotBefore time.Time // zero when the token carries no nbf
	IssuedAt  time.Time // zero when the token carries no iat

	// Claims is the full raw claim set, including everything above plus any
	// realm-specific custom claims. Typed accessors below cover the
	// well-known Keycloak ones.
	Claims map[string]any
}

func (t *DecodedToken) stringClaim(name string) string {
	s, _ := t.Claims[name].(string)
	return s
}

func (t *DecodedToken) JWTID() string             { return t.stringClaim("jti") }
func (t *DecodedToken) AuthorizedParty() string   { return t.stringClaim("azp") }
func (t *DecodedToken) PreferredUsername() string { return t.stringClaim("preferred_username") }
func (t *DecodedToken) Email() string             { return t.stringClaim("email") }
func (t *DecodedToken) GivenName() string         { return t.stringClaim("given_name") }
func (t *DecodedToken) FamilyName() string        { return t.stringClaim("family_name") }
func (t *DecodedToken) FullName() string          { return t.stringClaim("name") }

func (t *DecodedToken) EmailVerified() bool {
	v, _ := t.Claims["email_verified"].(bool)
	return v
}

// RealmRoles returns the roles under realm_access.roles, if any.
func (t *DecodedToken) RealmRoles() []string {
	access, ok := t.Claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	return rolesOf(access)
}

// ClientRoles returns the roles granted for one client under
// resource_access.<client>.roles, if any.
func (t *DecodedToken) ClientRoles(client string) []string {
	resources, ok := t.Claims["resource_access"].(map[string]any)
	if !ok {
		return nil
	}
	access, ok := resources[client].(map[string]any)
	if !ok {
		return nil
	}
	return rolesOf(access)
}

func (t *DecodedToken) HasRealmRole(role string) bool {
	return contains(t.RealmRoles(), role)
}

func (t *DecodedToken) HasClientRole(client, role string) bool {
	return contains(t.ClientRoles(client), role)
}

func rolesOf(access map[string]any) []string {
	raw, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
