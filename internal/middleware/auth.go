package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qbank-service/internal/utils"
)

const (
	authCookie    = "auth_token"
	sittingCookie = "sitting_id"

	ContextUserID  = "user_id"
	ContextRole    = "role"
	ContextSitting = "sitting_id"
)

// Identify resolves the caller on every request. A valid JWT (cookie or
// Authorization header) sets the user id and role; otherwise an anonymous
// sitting cookie is issued so the sequential test flow can keep attempt
// state without login.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(authCookie)
		if err != nil || token == "" {
			if header := c.GetHeader("Authorization"); header != "" {
				if claims, err := utils.GetClaimsFromAuthHeader(header); err == nil {
					setIdentity(c, claims.UserID, claims.Role)
					c.Next()
					return
				}
			}
			anonymousSitting(c)
			c.Next()
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			anonymousSitting(c)
			c.Next()
			return
		}
		setIdentity(c, claims.UserID, claims.Role)
		c.Next()
	}
}

func setIdentity(c *gin.Context, userID, role string) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		anonymousSitting(c)
		return
	}
	c.Set(ContextUserID, id)
	c.Set(ContextRole, role)
	c.Set(ContextSitting, userID)
}

func anonymousSitting(c *gin.Context) {
	sitting, err := c.Cookie(sittingCookie)
	if err != nil || sitting == "" {
		sitting = "anon-" + uuid.NewString()
		c.SetCookie(sittingCookie, sitting, 86400*30, "/", "", false, true)
	}
	c.Set(ContextSitting, sitting)
}

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserID); !ok {
			utils.UnauthorizedResponse(c, "Login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anyone without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextRole)
		if !ok || role != "admin" {
			utils.ForbiddenResponse(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id, or 0 for anonymous callers.
func UserID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextUserID); ok {
		return v.(int64)
	}
	return 0
}

// SittingID returns the attempt-state key for the caller: the user id
// string when logged in, the anonymous cookie id otherwise.
func SittingID(c *gin.Context) string {
	if v, ok := c.Get(ContextSitting); ok {
		return v.(string)
	}
	return ""
}

func IsLoggedIn(c *gin.Context) bool {
	_, ok := c.Get(ContextUserID)
	return ok
}
