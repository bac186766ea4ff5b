package middleware

import (
	"strings"

	apperrors "account-service/errors"
	"account-service/services"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// RequireAuth validates the access token from the Authorization header or
// the token cookie and stores the caller identity on the context. Failures
// are attached as errors for ErrorMiddleware to render.
func RequireAuth(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		if tokenString == "" {
			if cookie, err := c.Cookie("token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			c.Error(apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokenService.ValidateToken(tokenString, "access")
		if err != nil {
			c.Error(apperrors.ErrInvalidToken)
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" {
			c.Error(apperrors.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(ContextUserID, sub)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// RequireRole gates a route on the caller's role. Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			c.Error(apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
