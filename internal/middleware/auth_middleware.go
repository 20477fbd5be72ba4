package middleware

import (
	"context"
	"net/http"
	"strings"

	"colab-review-server/internal/domain"
	"colab-review-server/pkg/response"
)

type contextKey string

const (
	SessionKey contextKey = "session"
	holderKey  contextKey = "session_holder"
)

// sessionHolder lets outer middleware see who a request was authenticated as.
type sessionHolder struct {
	userID string
}

func withSessionHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

// SessionLoader turns a bearer token into the session it belongs to.
type SessionLoader interface {
	CurrentSession(ctx context.Context, accessToken string) (*domain.Session, error)
}

func AuthMiddleware(sessions SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			session, err := sessions.CurrentSession(r.Context(), parts[1])
			if err != nil || !session.Active() {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func WithSession(ctx context.Context, session *domain.Session) context.Context {
	if h, ok := ctx.Value(holderKey).(*sessionHolder); ok {
		h.userID = session.UserID()
	}
	return context.WithValue(ctx, SessionKey, session)
}

func GetSession(r *http.Request) *domain.Session {
	session, _ := r.Context().Value(SessionKey).(*domain.Session)
	return session
}

func GetUserID(r *http.Request) string {
	return GetSession(r).UserID()
}
