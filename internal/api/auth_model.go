package api

import (
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UsernameKey contextKey = "username"
)

// HTTP header constants
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// HTTP path constants
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// Error message constants
const (
	ErrAuthHeaderRequired = "Authorization header required"
	ErrInvalidAuthHeader  = "Invalid authorization header format"
	ErrInvalidToken       = "Invalid token"

	ErrUserIDNotFound     = "user ID not found in context"
	ErrInvalidTokenClaims = "invalid token claims"
	ErrTokenParseFailed   = "failed to parse token: %w"
)

// Log message constants
const (
	LogJWTValidationFailed = "JWT token validation failed"
)

// JWTClaims represents the claims carried by a clinic staff token
type JWTClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
}
