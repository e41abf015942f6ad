// middleware/auth/jwks.go
package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    30 * time.Second,
			DisableCompression: false,
		},
		Timeout: 8 * time.Second,
	}
}

func (c *KeySetCache) refresh(ctx context.Context, trigger string) error {
	prev := c.snapshot()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return c.refreshFailed(trigger, err)
	}
	req.Header.Set("Accept", "application/json")
	if prev != nil && prev.etag != "" {
		req.Header.Set("If-None-Match", prev.etag)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return c.refreshFailed(trigger, err)
	}
	defer res.Body.Close()

	// Honor 304 with the previous snapshot: same keys, fresh stamp.
	if res.StatusCode == http.StatusNotModified && prev != nil {
		c.snap.Store(prev.revalidated(time.Now()))
		c.observe(trigger, prev.Len(), nil)
		return nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.refreshFailed(trigger, fmt.Errorf("status %s", res.Status))
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return c.refreshFailed(trigger, err)
	}

	keys := make(map[string]SigningKey, len(doc.Keys))
	for i := range doc.Keys {
		k := &doc.Keys[i]
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		sk, err := k.signingKey()
		if err != nil {
			c.log.Debug("skipping jwks member",
				zap.String("kid", k.Kid),
				zap.String("kty", k.Kty),
				zap.Error(err),
			)
			continue
		}
		keys[sk.Kid] = sk
	}
	if len(keys) == 0 {
		return c.refreshFailed(trigger, errors.New("no usable signing keys in document"))
	}

	c.snap.Store(newKeySetSnapshot(keys, time.Now(), res.Header.Get("ETag")))
	c.observe(trigger, len(keys), nil)
	c.log.Info("jwks snapshot installed",
		zap.String("trigger", trigger),
		zap.Int("keys", len(keys)),
	)
	return nil
}

func (c *KeySetCache) refreshFailed(trigger string, err error) error {
	ferr := &FetchError{URL: c.jwksURL, Err: err}
	c.observe(trigger, 0, ferr)
	return ferr
}

// jwk is one member of the JWKS document. Keycloak publishes RSA and EC keys.
type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (k *jwk) signingKey() (SigningKey, error) {
	if k.Kid == "" {
		return SigningKey{}, errors.New("missing kid")
	}
	switch k.Kty {
	case "RSA":
		nBytes, err := b64url(k.N)
		if err != nil {
			return SigningKey{}, fmt.Errorf("bad jwks.n: %w", err)
		}
		eBytes, err := b64url(k.E)
		if err != nil {
			return SigningKey{}, fmt.Errorf("bad jwks.e: %w", err)
		}
		alg := k.Alg
		if alg == "" {
			alg = "RS256"
		}
		return SigningKey{
			Kid: k.Kid,
			Alg: alg,
			Key: &rsa.PublicKey{
				N: new(big.Int).SetBytes(nBytes),
				E: bytesToInt(eBytes),
			},
		}, nil
	case "EC":
		var curve elliptic.Curve
		var defAlg string
		switch k.Crv {
		case "P-256":
			curve, defAlg = elliptic.P256(), "ES256"
		case "P-384":
			curve, defAlg = elliptic.P384(), "ES384"
		case "P-521":
			curve, defAlg = elliptic.P521(), "ES512"
		default:
			return SigningKey{}, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		xBytes, err := b64url(k.X)
		if err != nil {
			return SigningKey{}, fmt.Errorf("bad jwks.x: %w", err)
		}
		yBytes, err := b64url(k.Y)
		if err != nil {
			return SigningKey{}, fmt.Errorf("bad jwks.y: %w", err)
		}
		alg := k.Alg
		if alg == "" {
			alg = defAlg
		}
		return SigningKey{
			Kid: k.Kid,
			Alg: alg,
			Key: &ecdsa.PublicKey{
				Curve: curve,
				X:     new(big.Int).SetBytes(xBytes),
				Y:     new(big.Int).SetBytes(yBytes),
			},
		}, nil
	default:
		return SigningKey{}, fmt.Errorf("unsupported kty %q", k.Kty)
	}
}

func b64url(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

func bytesToInt(b []byte) int {
	// little helper for RSA exponent
	n := 0
	for _, v := range b {
		n = n<<8 | int(v)
	}
	if n == 0 {
		return 65537
	}
	return n
}
