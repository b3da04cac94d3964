package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// NewAuthMiddleware validates HS256 bearer tokens signed with secret.
// An empty secret disables authentication.
func NewAuthMiddleware(secret string) mux.MiddlewareFunc {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		if len(key) == 0 {
			log.Warn().Msg("JWT_SECRET is not set, API authentication is disabled")
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check endpoints
			if r.URL.Path == HealthPath || r.URL.Path == MetricsPath {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get(AuthorizationHeader)
			if authHeader == "" {
				http.Error(w, ErrAuthHeaderRequired, http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, BearerPrefix) {
				http.Error(w, ErrInvalidAuthHeader, http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, BearerPrefix)

			claims, err := validateJWTToken(tokenString, key)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg(LogJWTValidationFailed)
				http.Error(w, ErrInvalidToken, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UsernameKey, claims.PreferredUsername)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateJWTToken verifies the signature and time claims of a token
func validateJWTToken(tokenString string, key []byte) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf(ErrTokenParseFailed, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New(ErrInvalidTokenClaims)
	}

	return claims, nil
}

// GetUserFromContext returns the subject and username of the authenticated caller
func GetUserFromContext(ctx context.Context) (string, string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return "", "", errors.New(ErrUserIDNotFound)
	}
	username, _ := ctx.Value(UsernameKey).(string)
	return userID, username, nil
}
