package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, want FailureKind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok, "error is not a RejectionError: %v", err)
	assert.Equal(t, want, kind)
}

func TestDecodeValidToken(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["realm_access"] = map[string]any{"roles": []any{"user", "admin"}}
	claims["custom_tenant"] = "acme"
	raw := mintToken(t, key, testKid, claims)

	tok, err := dec.Decode(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "user-123", tok.Subject)
	assert.Equal(t, testIssuer, tok.Issuer)
	assert.Equal(t, []string{testAudience}, tok.Audiences)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)
	assert.Equal(t, "jdoe", tok.PreferredUsername())
	assert.Equal(t, "jdoe@example.com", tok.Email())

	// All parsed claims are retained, not just the checked ones.
	assert.Equal(t, "acme", tok.Claims["custom_tenant"])
	assert.Equal(t, []string{"user", "admin"}, tok.RealmRoles())
	assert.True(t, tok.HasRealmRole("admin"))
	assert.False(t, tok.HasRealmRole("owner"))
}

func TestDecodeExpired(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-10 * time.Minute).Unix()
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureExpired)
}

func TestDecodeExpiredWithinSkewIsValid(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-30 * time.Second).Unix() // skew is 60s
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	require.NoError(t, err)
}

func TestDecodeForgedAndExpiredReportsBadSignature(t *testing.T) {
	trusted := newTestKey(t)
	forger := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, trusted))

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-10 * time.Minute).Unix()
	// Same kid, different key material: signature must be checked first.
	raw := mintToken(t, forger, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureBadSignature)
}

func TestDecodeNotYetValid(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["nbf"] = time.Now().Add(10 * time.Minute).Unix()
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureNotYetValid)
}

func TestDecodeWrongIssuer(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["iss"] = "https://evil.test/realms/demo"
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureWrongIssuer)
}

func TestDecodeWrongAudience(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["aud"] = "other-api"
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureWrongAudience)
}

func TestDecodeAudienceListIntersects(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	claims := baseClaims()
	claims["aud"] = []string{"other-api", testAudience}
	raw := mintToken(t, key, testKid, claims)

	_, err := dec.Decode(context.Background(), raw)
	require.NoError(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	noExp := baseClaims()
	delete(noExp, "exp")

	for name, raw := range map[string]string{
		"garbage":        "not-a-token",
		"two segments":   "aaaa.bbbb",
		"empty":          "",
		"missing kid":    mintToken(t, key, "", baseClaims()),
		"missing expiry": mintToken(t, key, testKid, noExp),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := dec.Decode(context.Background(), raw)
			requireKind(t, err, FailureMalformedToken)
		})
	}
}

func TestDecodeAlgorithmSubstitutionRejected(t *testing.T) {
	key := newTestKey(t)
	dec := newTestDecoder(resolverFor(testKid, key))

	// HS256 token carrying the trusted kid: the resolved key constrains the
	// accepted algorithm, so the header's alg is never trusted on its own.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims())
	tok.Header["kid"] = testKid
	raw, err := tok.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = dec.Decode(context.Background(), raw)
	requireKind(t, err, FailureBadSignature)
}

func TestDecodeKeyLookupFailures(t *testing.T) {
	key := newTestKey(t)

	t.Run("unknown key", func(t *testing.T) {
		dec := newTestDecoder(resolverFor("some-other-kid", key))
		_, err := dec.Decode(context.Background(), mintToken(t, key, testKid, baseClaims()))
		requireKind(t, err, FailureUnknownKey)
	})

	t.Run("key set never fetched", func(t *testing.T) {
		dec := newTestDecoder(&staticResolver{err: ErrKeySetUnavailable})
		_, err := dec.Decode(context.Background(), mintToken(t, key, testKid, baseClaims()))
		requireKind(t, err, FailureKeySetUnavailable)
	})
}
