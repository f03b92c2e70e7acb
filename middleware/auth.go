package middleware

import (
	"context"
	"errors"
	"strings"

	"kb-portal/helper"
	"kb-portal/models"
	"kb-portal/policy"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	userKey      = "user"
)

var HTTPHelper = helper.NewHTTPHelper()

// Authenticator resolves a bearer token to the stored user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// OptionalAuth attaches the principal when a valid token is present and
// lets anonymous requests through. A malformed or stale token is rejected
// so clients notice it instead of silently reading as anonymous.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !resolve(c, auth, header) {
			return
		}
		c.Next()
	}
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			HTTPHelper.SendUnauthorizedError(c, "Authorization header required", HTTPHelper.EmptyJsonMap())
			c.Abort()
			return
		}
		if !resolve(c, auth, header) {
			return
		}
		c.Next()
	}
}

func resolve(c *gin.Context, auth Authenticator, header string) bool {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		HTTPHelper.SendUnauthorizedError(c, "Bearer token required", HTTPHelper.EmptyJsonMap())
		c.Abort()
		return false
	}

	user, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		var unauth models.ErrorUnauthorized
		if errors.As(err, &unauth) {
			HTTPHelper.SendUnauthorizedError(c, unauth.Error(), HTTPHelper.EmptyJsonMap())
		} else {
			HTTPHelper.SendServiceError(c, err)
		}
		c.Abort()
		return false
	}

	c.Set(userKey, user)
	c.Set(principalKey, policy.PrincipalOf(user))
	return true
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			HTTPHelper.SendUnauthorizedError(c, "authentication required", HTTPHelper.EmptyJsonMap())
			c.Abort()
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		HTTPHelper.SendForbiddenError(c, "Insufficient permissions", HTTPHelper.EmptyJsonMap())
		c.Abort()
	}
}

// PrincipalFrom returns nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *policy.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*policy.Principal)
	return p
}

func UserFrom(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
