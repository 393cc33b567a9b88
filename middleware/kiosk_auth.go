package middleware

import (
	"net/http"
	"strings"

	"enaya/utils"

	"github.com/gin-gonic/gin"
)

// KioskAuthMiddleware requires a bearer token signed with secret. The token
// subject names the kiosk device. An empty secret disables the check.
func KioskAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		deviceID, err := utils.ExtractKioskID(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}
		c.Set("kioskID", deviceID)
		c.Next()
	}
}
