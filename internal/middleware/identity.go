// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const userKey ctxKey = "user"

// Identity is the caller as asserted by the identity provider.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Claims are the token claims the server reads. Subject is the user id.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var errNoIdentity = errors.New("missing or invalid credentials")

// Authenticate resolves the caller from an HS256 bearer token signed with
// secret, or failing that from a verified TLS client certificate, whose
// Common Name becomes the user id. Requests with neither are rejected with 401.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identify(r, secret)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func identify(r *http.Request, secret []byte) (Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || len(secret) == 0 {
			return Identity{}, errNoIdentity
		}
		return parseToken(strings.TrimSpace(token), secret)
	}

	if r.TLS != nil && len(r.TLS.VerifiedChains) > 0 {
		cert := r.TLS.VerifiedChains[0][0]
		if cn := strings.TrimSpace(cert.Subject.CommonName); cn != "" {
			id := Identity{ID: cn, Name: cn}
			if len(cert.EmailAddresses) > 0 {
				id.Email = cert.EmailAddresses[0]
			}
			return id, nil
		}
	}
	return Identity{}, errNoIdentity
}

func parseToken(raw string, secret []byte) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, errNoIdentity
	}
	return Identity{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(userKey).(Identity)
	return id, ok
}

// GetUserIDFromContext extracts the user ID from the request context.
// Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.ID
}
