package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/google/uuid"
)

type SessionStore interface {
	GetUserID(ctx context.Context, token string) (int64, error)
}

// Logger injects a request id into the context and logs request boundaries.
func Logger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()

			rqID := uuid.NewString()
			ctx := utils.CtxWithRqID(r.Context(), rqID)

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionAuth resolves the session token from the cookie or the bearer
// header and rejects the request when neither yields a user.
func SessionAuth(sessions SessionStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			if _, err := sessions.GetUserID(r.Context(), token); err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TokenFromRequest prefers the session cookie over the bearer header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}
