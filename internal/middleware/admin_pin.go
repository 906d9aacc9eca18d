package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// RequireAdminPIN guards maintenance routes with the staff PIN carried in
// the X-Admin-Pin header. The configured value is a bcrypt hash so the plain
// PIN never lives in the environment. An empty hash disables the guard,
// which configuration validation only permits outside production.
func RequireAdminPIN(pinHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinHash == "" {
			c.Next()
			return
		}

		pin := c.GetHeader("X-Admin-Pin")
		if pin == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin PIN required",
			})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid admin PIN",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
