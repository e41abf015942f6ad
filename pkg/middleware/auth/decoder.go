// middleware/auth/decoder.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyResolver is the key lookup the decoder depends on. *KeySetCache
// implements it; tests substitute fakes.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (SigningKey, error)
}

// TokenDecoder turns a raw bearer token into a DecodedToken or a classified
// RejectionError. It performs no I/O unless a reactive key refresh is needed.
type TokenDecoder struct {
	keys      KeyResolver
	issuer    string
	audiences []string
	skew      time.Duration
}

func NewTokenDecoder(keys KeyResolver, issuer string, audiences []string, skew time.Duration) *TokenDecoder {
	return &TokenDecoder{
		keys:      keys,
		issuer:    issuer,
		audiences: audiences,
		skew:      skew,
	}
}

// Decode validates raw end to end: header parse, key resolution, signature,
// then time/identity claims. Signature is always verified before claim
// checks, so a forged-and-expired token reports bad_signature, not expired.
func (d *TokenDecoder) Decode(ctx context.Context, raw string) (*DecodedToken, error) {
	kid, err := parseHeaderKid(raw)
	if err != nil {
		return nil, err
	}

	key, err := d.keys.Resolve(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return nil, reject(FailureUnknownKey, err)
		}
		return nil, reject(FailureKeySetUnavailable, err)
	}

	// The accepted algorithm comes from the resolved key, never from the
	// token header alone (blocks algorithm substitution).
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{key.Alg}),
		jwt.WithLeeway(d.skew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key.Key, nil
	}); err != nil {
		return nil, classifyParseError(err)
	}

	iss, _ := claims.GetIssuer()
	if iss != d.issuer {
		return nil, reject(FailureWrongIssuer, fmt.Errorf("token issuer %q", iss))
	}

	aud, _ := claims.GetAudience()
	if !intersects(aud, d.audiences) {
		return nil, reject(FailureWrongAudience, fmt.Errorf("token audience %v", []string(aud)))
	}

	exp, _ := claims.GetExpirationTime()
	sub, _ := claims.GetSubject()

	tok := &DecodedToken{
		Subject:   sub,
		Issuer:    iss,
		Audiences: aud,
		ExpiresAt: exp.Time,
		Claims:    claims,
	}
	if nbf, _ := claims.GetNotBefore(); nbf != nil {
		tok.NotBefore = nbf.Time
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		tok.IssuedAt = iat.Time
	}
	return tok, nil
}

// parseHeaderKid decodes the header segment without verifying anything.
func parseHeaderKid(raw string) (string, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", reject(FailureMalformedToken, err)
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return "", reject(FailureMalformedToken, errors.New("header has no kid"))
	}
	if alg, _ := tok.Header["alg"].(string); alg == "" {
		return "", reject(FailureMalformedToken, errors.New("header has no alg"))
	}
	return kid, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return reject(FailureMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return reject(FailureBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return reject(FailureExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return reject(FailureNotYetValid, err)
	default:
		// Required claim missing (no exp) and anything else unclassified.
		return reject(FailureMalformedToken, err)
	}
}

func intersects(have []string, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
