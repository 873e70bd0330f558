package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/pkg/apperror"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (*helpers.Claims, error)
}

// Auth validates the Authorization: Bearer token and sets userID and userRole in the Gin context.
// Parse failures are logged; the client only sees a generic 401.
func Auth(tokens TokenParser, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"request_id": c.GetString("request_id"),
					"path":       c.FullPath(),
				}).Debug("bearer token rejected")
			}
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, claims.UserID())
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole lets only callers with the given role through.
func RequireRole(role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRoleKey) != role {
			response.FromError(c, apperror.New(apperror.KindForbidden, message), nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
