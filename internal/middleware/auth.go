package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/auth"
)

// Authenticator resolves a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Actor, error)
}

// ErrorWriter renders a classified error.
type ErrorWriter interface {
	Error(w http.ResponseWriter, r *http.Request, err error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth rejects requests without a valid session and stores the actor
// and raw token in the request context.
func RequireAuth(authn Authenticator, errs ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				errs.Error(w, r, apperr.New(apperr.AuthRequired, "Authentication required"))
				return
			}
			actor, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				errs.Error(w, r, err)
				return
			}
			ctx := auth.ContextWithActor(r.Context(), actor)
			ctx = auth.ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
