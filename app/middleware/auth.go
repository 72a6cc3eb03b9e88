package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserRole  = "user_role"
)

type sessionValidator interface {
	Validate(tokenString string) (*service.SessionClaims, error)
}

type AuthMiddleware struct {
	sessions sessionValidator
}

func NewAuthMiddleware(sessions sessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth rejects requests without a valid session token.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := sessionToken(c)
		if tokenString == "" {
			logrus.Debug("Missing session token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}

		claims, err := m.sessions.Validate(tokenString)
		if err != nil {
			logrus.Debug("Invalid or expired session token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		setSessionContext(c, claims)
		return next(c)
	}
}

// RequireAdmin additionally checks the role claim. It stacks on RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(func(c echo.Context) error {
		role, _ := c.Get(ContextKeyUserRole).(string)
		if role != entity.RoleAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "forbidden",
			})
		}
		return next(c)
	})
}

func setSessionContext(c echo.Context, claims *service.SessionClaims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUserEmail, claims.Email)
	c.Set(ContextKeyUserRole, claims.Role)
}
