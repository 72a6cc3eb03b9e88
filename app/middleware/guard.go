package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

// SessionCookieName is where browser clients carry the session token.
const SessionCookieName = "session"

type GuardAction int

const (
	// GuardPass lets the request through unchanged.
	GuardPass GuardAction = iota
	// GuardRedirect sends the browser to Target.
	GuardRedirect
	// GuardForbid answers 403 with a JSON body, for API paths.
	GuardForbid
)

type GuardDecision struct {
	Action GuardAction
	Target string
}

// DecideRoute maps a request path plus session state to a routing decision.
// Pure: claims is nil when no token was presented, tokenErr is non-nil when
// a token was presented but failed validation.
//
// A malformed token never falls through to the public rules. Whoever sends
// one gets parked on the error page until their cookie is cleared.
func DecideRoute(path string, claims *service.SessionClaims, tokenErr error) GuardDecision {
	if tokenErr != nil {
		return GuardDecision{Action: GuardRedirect, Target: "/error"}
	}

	authed := claims != nil
	isAdmin := authed && claims.Role == entity.RoleAdmin

	switch {
	case strings.HasPrefix(path, "/auth"):
		if authed {
			return GuardDecision{Action: GuardRedirect, Target: "/dashboard"}
		}
		return GuardDecision{Action: GuardPass}

	case strings.HasPrefix(path, "/api/admin"):
		if !isAdmin {
			return GuardDecision{Action: GuardForbid}
		}
		return GuardDecision{Action: GuardPass}

	case strings.HasPrefix(path, "/admin"):
		if !authed {
			return GuardDecision{Action: GuardRedirect, Target: "/auth/signin"}
		}
		if !isAdmin {
			return GuardDecision{Action: GuardRedirect, Target: "/dashboard"}
		}
		return GuardDecision{Action: GuardPass}

	case strings.HasPrefix(path, "/dashboard"),
		strings.HasPrefix(path, "/settings"),
		strings.HasPrefix(path, "/api/protected"):
		if !authed {
			return GuardDecision{Action: GuardRedirect, Target: "/auth/signin"}
		}
		return GuardDecision{Action: GuardPass}
	}

	return GuardDecision{Action: GuardPass}
}

// RouteGuard applies DecideRoute in front of the page-style routes. It reads
// the session from the cookie, falling back to a bearer header.
func (m *AuthMiddleware) RouteGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Guard browser navigation only. The JSON endpoints enforce their
		// own auth and must not be redirected.
		if c.Request().Method != http.MethodGet {
			return next(c)
		}

		tokenString := sessionToken(c)

		var claims *service.SessionClaims
		var tokenErr error
		if tokenString != "" {
			claims, tokenErr = m.sessions.Validate(tokenString)
			if tokenErr != nil {
				logrus.WithField("path", c.Request().URL.Path).Debug("Session token failed validation")
			}
		}

		decision := DecideRoute(c.Request().URL.Path, claims, tokenErr)
		switch decision.Action {
		case GuardRedirect:
			return c.Redirect(http.StatusTemporaryRedirect, decision.Target)
		case GuardForbid:
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "forbidden",
			})
		}

		if claims != nil {
			setSessionContext(c, claims)
		}
		return next(c)
	}
}

func sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}
