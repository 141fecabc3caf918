package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bugbase/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	user := &models.User{
		Model:    gorm.Model{ID: 7},
		Username: "reporter1",
		Email:    "reporter1@example.com",
		Role:     models.RoleUser,
	}

	token, err := GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAndValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, "reporter1", claims.Username)
	assert.Equal(t, "reporter1@example.com", claims.Email)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseAndValidateTokenFailures(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		_, err := ParseAndValidateToken("not-a-token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed token")
	})

	t.Run("expired", func(t *testing.T) {
		claims := &CustomClaims{
			UserID:   1,
			Role:     models.RoleUser,
			Username: "reporter1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signedToken, err := token.SignedString(mySigningKey)
		require.NoError(t, err)

		_, err = ParseAndValidateToken(signedToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong key", func(t *testing.T) {
		claims := &CustomClaims{
			UserID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signedToken, err := token.SignedString([]byte("some-other-key"))
		require.NoError(t, err)

		_, err = ParseAndValidateToken(signedToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token signature")
	})
}

// protectedContainer builds a restful container with one route behind the
// auth filter that echoes the caller attributes.
func protectedContainer() *restful.Container {
	restful.PrettyPrintResponses = false
	container := restful.NewContainer()
	ws := new(restful.WebService)
	ws.Path("/protected").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").Filter(AuthFilter()).To(func(req *restful.Request, resp *restful.Response) {
		_ = resp.WriteHeaderAndJson(http.StatusOK, map[string]interface{}{
			"user_id":  req.Attribute(AttrUserID),
			"role":     req.Attribute(AttrRole),
			"username": req.Attribute(AttrUsername),
		}, restful.MIME_JSON)
	}))
	container.Add(ws)
	return container
}

func TestAuthFilter(t *testing.T) {
	container := protectedContainer()

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Authorization header required")
	})

	t.Run("invalid header format", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "InvalidTokenFormat")
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid authorization header format")
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		user := &models.User{
			Model:    gorm.Model{ID: 42},
			Username: "qa1",
			Email:    "qa1@example.com",
			Role:     models.RoleQA,
		}
		token, err := GenerateToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":42`)
		assert.Contains(t, w.Body.String(), `"role":"qa"`)
		assert.Contains(t, w.Body.String(), `"username":"qa1"`)
	})
}

func TestSetSigningKey(t *testing.T) {
	original := mySigningKey
	defer SetSigningKey(original)

	SetSigningKey([]byte("rotated-secret"))
	user := &models.User{Model: gorm.Model{ID: 1}, Username: "u", Role: models.RoleUser}
	token, err := GenerateToken(user)
	require.NoError(t, err)

	_, err = ParseAndValidateToken(token)
	require.NoError(t, err)

	// Empty key is ignored.
	SetSigningKey(nil)
	_, err = ParseAndValidateToken(token)
	require.NoError(t, err)
}
