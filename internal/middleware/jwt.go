// internal/middleware/jwt.go
package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"
)

// Token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

// Claims represents the JWT claims for our application
type Claims struct {
	UserID primitive.ObjectID `json:"user_id"`
	Role   models.Role        `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and validates the application's JWT tokens.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// GenerateToken creates a new JWT token carrying the user's ID and role.
func (a *Auth) GenerateToken(userID primitive.ObjectID, role models.Role) (string, error) {
	expirationTime := time.Now().Add(tokenExpiration)

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "peerbridge-api",
			Subject:   userID.Hex(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates the provided JWT token and returns its claims.
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
	)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "Invalid or expired token", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, utils.NewAppError(utils.ErrInvalidToken, "Invalid token claims", nil)
}

// RequireAuth wraps a handler so it only runs with a valid Bearer token. The
// caller's ID and role land in the request context.
func (a *Auth) RequireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT Error: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := SetUserIDInContext(r.Context(), claims.UserID)
		ctx = SetRoleInContext(ctx, claims.Role)

		handler(w, r.WithContext(ctx))
	}
}

// RequireRoles wraps a handler so it only runs for callers holding one of the
// given roles. It implies RequireAuth.
func (a *Auth) RequireRoles(handler http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return a.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRoleFromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// TokenFromRequest extracts a token from the Authorization header or, for
// websocket upgrades where custom headers are unavailable, the token query
// parameter.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Define a custom context key type to avoid collisions
type contextKey string

// UserIDKey is the key used to store the user ID in the context
const UserIDKey contextKey = "user_id"

// RoleKey is the key used to store the caller's role in the context
const RoleKey contextKey = "role"

// SetUserIDInContext saves the user ID in the request context
func SetUserIDInContext(ctx context.Context, userID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return userID, ok
}

// SetRoleInContext saves the caller's role in the request context
func SetRoleInContext(ctx context.Context, role models.Role) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetRoleFromContext retrieves the caller's role from the context
func GetRoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}
