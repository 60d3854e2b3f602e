package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSessions struct {
	userID int64
	err    error
}

func (s *fakeSessions) GetUserID(_ context.Context, _ string) (int64, error) {
	return s.userID, s.err
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/dashboard", nil)
	assert.Empty(t, TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/api/dashboard", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/api/dashboard", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r), "cookie wins over bearer")
}

func TestSessionAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("no token", func(t *testing.T) {
		handler := SessionAuth(&fakeSessions{userID: 1})(next)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		handler := SessionAuth(&fakeSessions{err: errors.New("session not found")})(next)
		r := httptest.NewRequest("GET", "/api/dashboard", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "expired"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		handler := SessionAuth(&fakeSessions{userID: 1})(next)
		r := httptest.NewRequest("GET", "/api/dashboard", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "good"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
