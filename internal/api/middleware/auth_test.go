package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(userID),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authRouter() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(testSecret)
	engine := gin.New()
	return engine, am
}

func TestParseUserID(t *testing.T) {
	userID, err := ParseUserID(signToken(t, testSecret, 42), testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestParseUserIDWrongSecret(t *testing.T) {
	_, err := ParseUserID(signToken(t, "other-secret", 42), testSecret)
	assert.Error(t, err)
}

func TestParseUserIDGarbage(t *testing.T) {
	_, err := ParseUserID("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestRequireAuthSetsUserID(t *testing.T) {
	engine, am := authRouter()
	engine.GET("/", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, 7))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestRequireAuthMissingHeader(t *testing.T) {
	engine, am := authRouter()
	engine.GET("/", am.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWSAuthTokenFromQuery(t *testing.T) {
	engine, am := authRouter()
	engine.GET("/ws", am.WSAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, testSecret, 9), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9}`, w.Body.String())
}

func TestWSAuthMissingToken(t *testing.T) {
	engine, am := authRouter()
	engine.GET("/ws", am.WSAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing token")
}

func TestWSAuthInvalidToken(t *testing.T) {
	engine, am := authRouter()
	engine.GET("/ws", am.WSAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=bogus", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}
