package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuth("test-secret")
	userID := primitive.NewObjectID()

	token, err := auth.GenerateToken(userID, models.RoleModerator)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)
	assert.Equal(t, userID.Hex(), claims.Subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAuth("secret-one").GenerateToken(primitive.NewObjectID(), models.RoleUser)
	require.NoError(t, err)

	_, err = NewAuth("secret-two").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := NewAuth("test-secret").ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuth("test-secret")
	userID := primitive.NewObjectID()

	var gotID primitive.ObjectID
	var gotRole models.Role
	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserIDFromContext(r.Context())
		gotRole, _ = GetRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Valid token passes and fills the context", func(t *testing.T) {
		token, err := auth.GenerateToken(userID, models.RoleAdmin)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotID)
		assert.Equal(t, models.RoleAdmin, gotRole)
	})

	t.Run("Missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Non-bearer header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	auth := NewAuth("test-secret")
	handler := auth.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, models.RoleUser, models.RoleAdmin)

	call := func(role models.Role) int {
		token, err := auth.GenerateToken(primitive.NewObjectID(), role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/assistant", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(models.RoleUser))
	assert.Equal(t, http.StatusOK, call(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, call(models.RoleModerator))
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	assert.Equal(t, "query-token", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, "", TokenFromRequest(req))
}
