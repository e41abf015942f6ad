package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDecoder struct {
	tok *DecodedToken
	err error
}

func (d *stubDecoder) Decode(context.Context, string) (*DecodedToken, error) {
	return d.tok, d.err
}

// handlerSpy records whether it ran and the outcome it saw.
type handlerSpy struct {
	called  bool
	outcome Outcome
}

func (h *handlerSpy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.outcome = OutcomeFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(t *testing.T, m *Middleware, req *http.Request) (*handlerSpy, *httptest.ResponseRecorder) {
	t.Helper()
	spy := &handlerSpy{}
	rec := httptest.NewRecorder()
	m.Middleware()(spy).ServeHTTP(rec, req)
	return spy, rec
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestStrictRejectsMissingCredentials(t *testing.T) {
	m := New(&stubDecoder{}, false, nil)

	spy, rec := serve(t, m, bearerRequest(""))

	assert.False(t, spy.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, string(FailureMissingCredentials), decodeErrorBody(t, rec))
}

func TestPassthroughAdmitsAnonymous(t *testing.T) {
	m := New(&stubDecoder{}, true, nil)

	spy, rec := serve(t, m, bearerRequest(""))

	require.True(t, spy.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, spy.outcome.Anonymous())
	assert.Nil(t, spy.outcome.Identity)
}

func TestPassthroughStillRejectsInvalidToken(t *testing.T) {
	m := New(&stubDecoder{err: reject(FailureExpired, nil)}, true, nil)

	spy, rec := serve(t, m, bearerRequest("some-token"))

	assert.False(t, spy.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer error="invalid_token"`, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, string(FailureExpired), decodeErrorBody(t, rec))
}

func TestValidTokenExposesIdentity(t *testing.T) {
	tok := &DecodedToken{Subject: "user-123", Claims: map[string]any{"preferred_username": "jdoe"}}
	m := New(&stubDecoder{tok: tok}, false, nil)

	spy, rec := serve(t, m, bearerRequest("some-token"))

	require.True(t, spy.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, spy.outcome.Authenticated())
	assert.Equal(t, "user-123", spy.outcome.Identity.Subject)
	assert.Equal(t, "jdoe", spy.outcome.Identity.PreferredUsername())
}

func TestNonBearerSchemeIsMissingCredentials(t *testing.T) {
	m := New(&stubDecoder{}, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	spy, rec := serve(t, m, req)

	assert.False(t, spy.called)
	assert.Equal(t, string(FailureMissingCredentials), decodeErrorBody(t, rec))
}

func TestUnclassifiedDecodeErrorMapsToKeySetUnavailable(t *testing.T) {
	m := New(&stubDecoder{err: context.DeadlineExceeded}, false, nil)

	spy, rec := serve(t, m, bearerRequest("some-token"))

	assert.False(t, spy.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(FailureKeySetUnavailable), decodeErrorBody(t, rec))
}

func TestSkipPathsBypassAuthentication(t *testing.T) {
	m := New(&stubDecoder{}, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	spy, rec := serve(t, m, req)

	require.True(t, spy.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	// Skipped paths carry no outcome at all.
	assert.True(t, spy.outcome.Anonymous())
}

func TestDecisionObserver(t *testing.T) {
	type decision struct {
		outcome string
		reason  FailureKind
	}
	var seen []decision
	obs := func(outcome string, reason FailureKind) {
		seen = append(seen, decision{outcome, reason})
	}

	tok := &DecodedToken{Subject: "user-123"}
	m := New(&stubDecoder{tok: tok}, true, nil, WithDecisionObserver(obs))

	serve(t, m, bearerRequest("some-token"))
	serve(t, m, bearerRequest(""))

	m = New(&stubDecoder{err: reject(FailureBadSignature, nil)}, true, nil, WithDecisionObserver(obs))
	serve(t, m, bearerRequest("some-token"))

	require.Len(t, seen, 3)
	assert.Equal(t, decision{"authenticated", ""}, seen[0])
	assert.Equal(t, decision{"anonymous", ""}, seen[1])
	assert.Equal(t, decision{"rejected", FailureBadSignature}, seen[2])
}

func TestMissingRoleRejectionShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRejection(rec, FailureMissingRole)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, string(FailureMissingRole), decodeErrorBody(t, rec))
}
