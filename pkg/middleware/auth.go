package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/Mark-AImagineers/NoteKo/pkg/errors"
	"github.com/Mark-AImagineers/NoteKo/pkg/httputil"
)

type tokenCtxKey struct{}

// ErrNoBearer is returned when the Authorization header is absent or is not
// a Bearer credential.
var ErrNoBearer = errors.New("missing bearer token")

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoBearer
	}
	return token, nil
}

// RequireBearer rejects requests without a bearer credential and stores the
// raw token in the request context for the handler to verify.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			httputil.WriteError(w, r, apperrors.New("INVALID_TOKEN", "could not validate credentials", http.StatusUnauthorized, apperrors.ErrUnauthorized), nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenCtxKey{}, token)))
	})
}

// TokenFromContext returns the token stored by RequireBearer.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenCtxKey{}).(string)
	return t
}
