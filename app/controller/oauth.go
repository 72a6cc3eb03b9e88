package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/oauth"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

const oauthStateCookie = "oauth_state"

type OAuthController struct {
	providers      map[string]*oauth.Provider
	linkingService *service.LinkingService
}

func NewOAuthController(providers map[string]*oauth.Provider, linkingService *service.LinkingService) *OAuthController {
	return &OAuthController{providers: providers, linkingService: linkingService}
}

// Begin redirects the browser to the provider's consent screen. The state
// parameter is HMAC-signed and mirrored in a short-lived cookie.
func (c *OAuthController) Begin(ctx echo.Context) error {
	provider, ok := c.providers[ctx.Param("provider")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown provider"})
	}

	state := provider.MakeState(uuid.New().String())
	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return ctx.Redirect(http.StatusTemporaryRedirect, provider.AuthURL(state))
}

// Callback handles the provider redirect: verify state, exchange the code,
// then run the identity through the linking rules. Denied sign-ins bounce
// back to the sign-in page with the reason in the query string.
func (c *OAuthController) Callback(ctx echo.Context) error {
	provider, ok := c.providers[ctx.Param("provider")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown provider"})
	}

	state := ctx.QueryParam("state")
	cookie, err := ctx.Cookie(oauthStateCookie)
	if err != nil || cookie.Value != state || !provider.VerifyState(state) {
		logrus.WithField("provider", provider.Name()).Warn("OAuth state mismatch")
		return ctx.Redirect(http.StatusTemporaryRedirect, "/auth/signin?error=state_mismatch")
	}

	code := ctx.QueryParam("code")
	if code == "" {
		// User cancelled on the consent screen.
		return ctx.Redirect(http.StatusTemporaryRedirect, "/auth/signin")
	}

	identity, err := provider.FetchIdentity(ctx.Request().Context(), code)
	if err != nil {
		metrics.SigninsTotal.WithLabelValues(provider.Name(), "exchange_failure").Inc()
		logrus.WithError(err).WithField("provider", provider.Name()).Error("OAuth code exchange failed")
		return ctx.Redirect(http.StatusTemporaryRedirect, "/auth/signin?error=oauth_failure")
	}

	result, err := c.linkingService.OAuthSignIn(ctx.Request().Context(), *identity)
	if err != nil {
		var conflict *service.LinkConflictError
		if errors.As(err, &conflict) {
			metrics.SigninsTotal.WithLabelValues(provider.Name(), conflict.Reason).Inc()
			logrus.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"reason":   conflict.Reason,
			}).Info("OAuth sign-in denied")
			return ctx.Redirect(http.StatusTemporaryRedirect, denialURL(conflict))
		}
		metrics.SigninsTotal.WithLabelValues(provider.Name(), "error").Inc()
		logrus.WithError(err).WithField("provider", provider.Name()).Error("OAuth sign-in failed")
		return ctx.Redirect(http.StatusTemporaryRedirect, "/auth/signin?error=oauth_failure")
	}

	metrics.SigninsTotal.WithLabelValues(provider.Name(), "ok").Inc()
	if result.Created {
		metrics.SignupsTotal.WithLabelValues("oauth").Inc()
	}
	setSessionCookie(ctx, result.Token, result.ExpiresIn)
	return ctx.Redirect(http.StatusTemporaryRedirect, "/dashboard")
}

func denialURL(conflict *service.LinkConflictError) string {
	u := fmt.Sprintf("/auth/signin?error=%s", url.QueryEscape(conflict.Reason))
	if conflict.Provider != "" {
		u += "&provider=" + url.QueryEscape(conflict.Provider)
	}
	return u
}
