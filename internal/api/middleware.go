/**
 * @description
 * Authentication middleware for the HTTP layer. Sessions are issued by the
 * identity provider as HMAC-signed JWTs carrying `name` and `role` claims;
 * this middleware verifies the signature and hands the resulting Actor to
 * the handlers through the request context. The lifecycle manager trusts
 * nothing else from the identity layer.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

// actorContextKey is a custom type for the context key to avoid collisions.
type actorContextKey string

const actorKey actorContextKey = "actor"

// AuthMiddleware creates a middleware that validates session JWTs and
// injects the acting user into the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			name, _ := claims["name"].(string)
			roleStr, _ := claims["role"].(string)
			actor := domain.Actor{Name: name, Role: domain.Role(roleStr)}
			if strings.TrimSpace(actor.Name) == "" || !actor.Role.Valid() {
				http.Error(w, "Token missing actor name or role", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor retrieves the authenticated actor from the request context.
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
