package middleware

import (
	"net/http"
	"strings"

	"collab-service/internal/models"

	"github.com/gin-gonic/gin"
)

// WSAuth authenticates the websocket handshake. Browsers cannot set headers
// on websocket upgrades, so the credential travels as a query parameter. A
// bad handshake is refused before the upgrade; there is no event stream to
// send an error on.
func (am *AuthMiddleware) WSAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing token",
			})
			return
		}
		tokenString = strings.Replace(tokenString, "Bearer ", "", 1)

		userID, err := ParseUserID(tokenString, am.jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid token",
			})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
