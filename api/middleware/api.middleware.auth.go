// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Claims carries the authenticated user's identity.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTMiddleware issues and validates HS256 bearer tokens.
type JWTMiddleware struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewJWTMiddleware(cfg config.AuthConfig) *JWTMiddleware {
	secret := cfg.JWTSecret
	if secret == "" {
		// Random per-process secret: tokens survive only until restart.
		secret = nuts.NID("jwt", 32)
		nuts.L.Warnf("[Auth] No JWT secret configured, using an ephemeral one")
	}
	return &JWTMiddleware{
		secret:   []byte(secret),
		tokenTTL: cfg.TokenTTL,
	}
}

// GenerateToken creates a signed token for a user.
func (m *JWTMiddleware) GenerateToken(user *models.User) (string, error) {
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "greeneye-hub",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and verifies a token string.
func (m *JWTMiddleware) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAuthError("unexpected signing method", nil)
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.NewAuthError("invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.NewAuthError("invalid token claims", nil)
	}
	return claims, nil
}

// Authenticate guards a route subtree with bearer-token auth.
func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.ValidateToken(parts[1])
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"type":"authentication","message":"` + msg + `","code":401}`))
}
