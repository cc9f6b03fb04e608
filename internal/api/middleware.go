/**
 * @description
 * This file contains the JWT authentication middleware protecting the admin
 * surface. It expects an `Authorization: Bearer <token>` header, validates
 * the HS256 signature and expiry, and stores the admin identity in the
 * request context for downstream handlers.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Token parsing and validation.
 */

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminContextKey contextKey = "admin"

// AdminIdentity is the claim set the middleware extracts from a valid token.
type AdminIdentity struct {
	ID    string
	Email string
}

// AdminFromContext returns the authenticated admin, if any.
func AdminFromContext(ctx context.Context) (AdminIdentity, bool) {
	identity, ok := ctx.Value(adminContextKey).(AdminIdentity)
	return identity, ok
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, "Missing or invalid authorization header")
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			identity := AdminIdentity{}
			if id, ok := claims["id"].(string); ok {
				identity.ID = id
			}
			if email, ok := claims["email"].(string); ok {
				identity.Email = email
			}

			ctx := context.WithValue(r.Context(), adminContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
