package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/jwt"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/response"
)

const (
	UserIDKey     = "user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates an access token.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates bearer tokens locally.
type AuthMiddleware struct {
	validator  TokenValidator
	selfUserID string
}

// NewAuthMiddleware creates a new auth middleware. A non-empty selfUserID
// restricts access to tokens issued for that user.
func NewAuthMiddleware(validator TokenValidator, selfUserID string) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, selfUserID: selfUserID}
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		if m.selfUserID != "" && claims.UserID != m.selfUserID {
			response.Forbidden(c, "token does not belong to this profile")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	if id, ok := c.Get(UserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
