package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/response"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/token"
)

type contextKey int

const userClaimsKey contextKey = iota

// UserClaims is what the auth middleware stores in the request context.
type UserClaims struct {
	UserID string
	Role   domain.UserRole
}

// TokenValidator is the part of the token service the middleware needs.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// OptionalAuth attaches claims when a bearer token is present. Requests without
// a token continue anonymously; a present but invalid token is rejected.
func OptionalAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				response.Error(w, r, nil, apperror.NewUnauthorizedError("malformed authorization header"))
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				response.Error(w, r, nil, apperror.NewUnauthorizedError("invalid or expired token"))
				return
			}

			ctx := WithUserClaims(r.Context(), UserClaims{UserID: claims.UserID, Role: domain.UserRole(claims.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose claims do not carry one of roles.
// It must run after OptionalAuth.
func RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, nil, apperror.NewUnauthorizedError("authentication required"))
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, r, nil, apperror.NewForbiddenError("missing required role"))
		})
	}
}

// WithUserClaims stores claims in ctx.
func WithUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaimsFromContext extracts the claims stored by OptionalAuth.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(UserClaims)
	return claims, ok
}

// CallerRole is admin for authenticated admins and public for everyone else.
func CallerRole(ctx context.Context) domain.UserRole {
	if claims, ok := GetUserClaimsFromContext(ctx); ok && claims.Role == domain.RoleAdmin {
		return domain.RoleAdmin
	}
	return domain.RolePublic
}
