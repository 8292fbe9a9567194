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

func TestHTTPValidatorAcceptsValidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shh", r.Header.Get("X-Admin-Secret"))

		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "good-token", req.Token)

		_ = json.NewEncoder(w).Encode(validateResponse{
			Valid:  true,
			UserID: "u-1",
			Name:   "alice",
		})
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "shh")
	identity, err := v.Validate(context.Background(), "good-token")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "alice", identity.Name)
}

func TestHTTPValidatorRejectsInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "")
	_, err := v.Validate(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorRejectsEmptyToken(t *testing.T) {
	v := NewHTTPValidator("http://unused.invalid", "")
	_, err := v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorUnavailableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "")
	_, err := v.Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPValidatorUnreachable(t *testing.T) {
	v := NewHTTPValidator("http://127.0.0.1:1", "")
	_, err := v.Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNoopValidatorAllowsEverything(t *testing.T) {
	v := NewNoopValidator()
	identity, err := v.Validate(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, identity)
}

func TestHTTPValidatorInvalidFlagInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: false, Error: "expired"})
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "")
	_, err := v.Validate(context.Background(), "expired-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
