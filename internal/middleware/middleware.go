package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/config"
	"github.com/mpetrov/bank-cards/internal/models"
	"github.com/mpetrov/bank-cards/internal/service"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// AuthMiddleware validates the Bearer token and stores the caller's id
// and role in the request context. Handlers pass them explicitly into
// services; nothing below the handler layer reads them from the context.
func AuthMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := &service.Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
				func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
					}
					return []byte(cfg.JWTSecret), nil
				})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), userID, claims.Role)))
		})
	}
}

// RequireAdmin rejects callers without the ADMIN role. Must run after
// AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, role, ok := CallerFromContext(r.Context())
		if !ok || role != models.RoleAdmin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContextWithCaller returns ctx carrying the authenticated caller.
func ContextWithCaller(ctx context.Context, userID int64, role models.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// CallerFromContext extracts the authenticated caller set by
// AuthMiddleware.
func CallerFromContext(ctx context.Context) (int64, models.Role, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, "", false
	}
	role, ok := ctx.Value(roleKey).(models.Role)
	if !ok {
		return 0, "", false
	}
	return userID, role, true
}

// RequestLogger logs each request with a generated request id.
func RequestLogger(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"duration":   time.Since(start).String(),
			}).Info("request handled")
		})
	}
}
