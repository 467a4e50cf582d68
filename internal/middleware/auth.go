package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

// Auth validates the bearer token and stores the claims on the context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			util.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := util.ParseJWT(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			util.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// AdminOnly requires the admin role; run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := util.GetUserFromContext(c)
		if !ok || claims.Role != string(model.Admin) {
			util.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
