package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyConnectionHeader(t *testing.T) {
	v := NewVerifier("test_secret")
	token, err := v.Mint("u1")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?channel=42", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := v.IdentifyConnection(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestIdentifyConnectionQueryParam(t *testing.T) {
	v := NewVerifier("test_secret")
	token, err := v.Mint("u1")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?channel=42&token="+token, nil)

	userID, err := v.IdentifyConnection(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestIdentifyConnectionFailures(t *testing.T) {
	v := NewVerifier("test_secret")

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing token", func(r *http.Request) {}},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		}},
		{"wrong key", func(r *http.Request) {
			other := NewVerifier("other_secret")
			token, _ := other.Mint("u1")
			r.Header.Set("Authorization", "Bearer "+token)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.setup(r)
			_, err := v.IdentifyConnection(r)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("test_secret")
	token, err := v.Mint("u1")
	require.NoError(t, err)

	var seen string
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/history", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", seen)
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	v := NewVerifier("test_secret")
	called := false
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}
