package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
	"github.com/roads-authority/roadworks-api/pkg/response"
)

// RequireRoles lets the request through only when the token role is one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
