package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	"github.com/honeynil/PaymentLedgerService/internal/models"
)

type ctxKey int

const claimsKey ctxKey = iota

// TokenKey is where the active token of a user is kept; logging in again
// replaces it, and deleting it revokes the session.
func TokenKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:token", userID)
}

func AuthMiddleware(redisClient redis.RedisClient, tokens *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fail(w, http.StatusUnauthorized, "authorization header missing")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				fail(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			tokenStr := parts[1]
			c, err := tokens.Validate(tokenStr)
			if err != nil {
				slog.Warn("invalid token", "error", err)
				fail(w, http.StatusUnauthorized, "invalid token")
				return
			}

			storedToken, err := redisClient.Get(r.Context(), TokenKey(c.UserID))
			if err != nil || storedToken != tokenStr {
				slog.Error("invalid or revoked token", "user_id", c.UserID, "error", err)
				fail(w, http.StatusUnauthorized, "invalid or revoked token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}

// RequireRole rejects authenticated callers whose role differs from role.
// It must run after AuthMiddleware.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFrom(r.Context())
			if !ok || c.Role != role {
				fail(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, c *models.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*models.TokenClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*models.TokenClaims)
	return c, ok && c != nil
}

func fail(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": message})
}
