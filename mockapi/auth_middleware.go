package mockapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-storefront-client/token/jwt"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores parsed token claims
	ContextKeyClaims ContextKey = "claims"
)

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeFailure(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeFailure(w, http.StatusUnauthorized, "Not authorized, malformed token")
				return
			}

			claims, err := s.tokens.Verify(parts[1])
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
				writeFailure(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
			if _, err := s.users.GetByID(claims.Subject); err != nil {
				writeFailure(w, http.StatusUnauthorized, "Not authorized, user not found")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyUserID).(string)
	return id
}

func claimsFrom(r *http.Request) *jwt.Claims {
	claims, _ := r.Context().Value(ContextKeyClaims).(*jwt.Claims)
	return claims
}
