package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
	"eventmanager/utils"
)

const (
	ctxUserID   = "userId"
	ctxRole     = "role"
	ctxUsername = "username"
)

// Authenticate accepts the session cookie first and falls back to an
// Authorization: Bearer header. On success it stores the user id, role and
// username on the gin context.
func Authenticate(tokens *utils.JWTManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			token, _ = utils.TokenFromHeader(c.GetHeader("Authorization"))
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}
		userID, _ := claims.UserID()

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, models.Role(claims.Role))
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "User does not have " + string(role) + " role",
			})
			return
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) int64 { return c.GetInt64(ctxUserID) }

func CurrentRole(c *gin.Context) models.Role {
	role, _ := c.Get(ctxRole)
	r, _ := role.(models.Role)
	return r
}
