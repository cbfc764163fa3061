package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// InitData validates the Telegram Mini App init_data header the admin web
// client sends and stores the authenticated user in the request context.
func InitData() gin.HandlerFunc {
	return func(c *gin.Context) {
		initDataQuery := c.GetHeader("init_data")
		if initDataQuery != "" {
			token := os.Getenv("BOT_TOKEN")
			expIn := time.Minute * 20

			if os.Getenv("DEBUG") == "true" {
				expIn = time.Hour * 5000
			}

			if err := initdata.Validate(initDataQuery, token, expIn); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to validate init data"})
				c.Abort()
				return
			}

			parsedData, err := initdata.Parse(initDataQuery)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse init data"})
				c.Abort()
				return
			}

			c.Set("user", parsedData.User)
		}

		c.Next()
	}
}

// RequireAuth rejects requests that did not carry valid init data.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user"); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}
		c.Next()
	}
}

// UserID extracts the authenticated Telegram user id, or 0.
func UserID(c *gin.Context) int64 {
	user, exists := c.Get("user")
	if !exists {
		return 0
	}
	if u, ok := user.(initdata.User); ok {
		return u.ID
	}
	return 0
}
