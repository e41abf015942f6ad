package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://kc.test/realms/demo"
	testAudience = "my-api"
	testKid      = "test-key-1"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func jwksDocument(t *testing.T, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()
	type member struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	doc := struct {
		Keys []member `json:"keys"`
	}{}
	for kid, pub := range keys {
		doc.Keys = append(doc.Keys, member{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                testAudience,
		"sub":                "user-123",
		"exp":                now.Add(time.Hour).Unix(),
		"iat":                now.Unix(),
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
	}
}

func mintToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

// staticResolver serves one key for any kid it knows, or a fixed error.
type staticResolver struct {
	keys map[string]SigningKey
	err  error
}

func (r *staticResolver) Resolve(_ context.Context, kid string) (SigningKey, error) {
	if r.err != nil {
		return SigningKey{}, r.err
	}
	k, ok := r.keys[kid]
	if !ok {
		return SigningKey{}, ErrUnknownKey
	}
	return k, nil
}

func resolverFor(kid string, key *rsa.PrivateKey) *staticResolver {
	return &staticResolver{keys: map[string]SigningKey{
		kid: {Kid: kid, Alg: "RS256", Key: &key.PublicKey},
	}}
}

func newTestDecoder(keys KeyResolver) *TokenDecoder {
	return NewTokenDecoder(keys, testIssuer, []string{testAudience}, 60*time.Second)
}
