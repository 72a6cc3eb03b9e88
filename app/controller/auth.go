package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) SignUp(ctx echo.Context) error {
	var req dto.SignUpRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if len(req.Name) < 2 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "name must be at least 2 characters"})
	}
	if !service.IsValidEmail(req.Email) {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid email address"})
	}
	if req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "password is required"})
	}

	result, err := c.authService.SignUp(ctx.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			metrics.SignupsTotal.WithLabelValues("email_taken").Inc()
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "an account with this email already exists"})
		case errors.Is(err, service.ErrWeakPassword):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrEmailDispatch):
			metrics.SignupsTotal.WithLabelValues("email_failure").Inc()
			logrus.WithError(err).Error("Sign-up rolled back, verification email failed")
			return ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "could not send verification email, please try again"})
		}
		logrus.WithError(err).Error("Sign-up failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	metrics.SignupsTotal.WithLabelValues("ok").Inc()
	logrus.WithField("user_id", result.UserID).Info("User signed up")
	return ctx.JSON(http.StatusCreated, dto.SignUpResponse{
		UserID:  result.UserID,
		Email:   req.Email,
		Message: "account created, please check your email for the verification code",
	})
}

func (c *AuthController) SignIn(ctx echo.Context) error {
	var req dto.SignInRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
	}

	result, err := c.authService.SignIn(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			metrics.SigninsTotal.WithLabelValues("credentials", "invalid").Inc()
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, service.ErrEmailNotVerified):
			metrics.SigninsTotal.WithLabelValues("credentials", "unverified").Inc()
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "email not verified"})
		}
		logrus.WithError(err).Error("Sign-in failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	metrics.SigninsTotal.WithLabelValues("credentials", "ok").Inc()
	setSessionCookie(ctx, result.Token, result.ExpiresIn)
	return ctx.JSON(http.StatusOK, dto.SignInResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	})
}

func (c *AuthController) SignOut(ctx echo.Context) error {
	clearSessionCookie(ctx)
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "signed out"})
}

func (c *AuthController) VerifyEmail(ctx echo.Context) error {
	var req dto.VerifyEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Code == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and code are required"})
	}

	err := c.authService.VerifyEmail(ctx.Request().Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		case errors.Is(err, service.ErrAlreadyVerified):
			return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "email already verified"})
		case errors.Is(err, service.ErrCodeMismatch):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid verification code"})
		case errors.Is(err, service.ErrCodeExpired):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "verification code has expired, request a new one"})
		}
		logrus.WithError(err).Error("Email verification failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "email verified, you can sign in now"})
}

func (c *AuthController) ResendVerification(ctx echo.Context) error {
	var req dto.ResendVerificationRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	err := c.authService.ResendVerification(ctx.Request().Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		case errors.Is(err, service.ErrAlreadyVerified):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email already verified"})
		case errors.Is(err, service.ErrEmailDispatch):
			logrus.WithError(err).Error("Resend verification email failed")
			return ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "could not send verification email, please try again"})
		}
		logrus.WithError(err).Error("Resend verification failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "verification email sent"})
}

// ForgotPassword never reveals whether the email is registered; the only
// distinguished failure is an account that signs in through a provider.
func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	var req dto.RequestPasswordResetRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	err := c.authService.RequestPasswordReset(ctx.Request().Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			metrics.PasswordResetsTotal.WithLabelValues("request", "unknown_email").Inc()
		case errors.Is(err, service.ErrProviderAccount):
			metrics.PasswordResetsTotal.WithLabelValues("request", "provider_account").Inc()
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "this account signs in with a provider and has no password"})
		case errors.Is(err, service.ErrEmailDispatch):
			metrics.PasswordResetsTotal.WithLabelValues("request", "email_failure").Inc()
			logrus.WithError(err).Error("Password reset email failed")
			return ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "could not send reset email, please try again"})
		default:
			logrus.WithError(err).Error("Password reset request failed")
			return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		}
	} else {
		metrics.PasswordResetsTotal.WithLabelValues("request", "ok").Inc()
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{
		Message: "if an account exists for this email, a reset link has been sent",
	})
}

func (c *AuthController) ResetPassword(ctx echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token and new_password are required"})
	}

	err := c.authService.ResetPassword(ctx.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			metrics.PasswordResetsTotal.WithLabelValues("consume", "invalid").Inc()
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired reset token"})
		case errors.Is(err, service.ErrWeakPassword):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Password reset failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	metrics.PasswordResetsTotal.WithLabelValues("consume", "ok").Inc()
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated, you can sign in now"})
}

// ValidateToken lets sibling services check a session token without sharing
// the signing secret.
func (c *AuthController) ValidateToken(ctx echo.Context) error {
	var req dto.ValidateTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token is required"})
	}

	claims, err := c.authService.ValidateSessionToken(req.Token)
	if err != nil {
		return ctx.JSON(http.StatusOK, dto.ValidateTokenResponse{Valid: false})
	}

	return ctx.JSON(http.StatusOK, dto.ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	})
}

func setSessionCookie(ctx echo.Context, token string, expiresIn int64) {
	ctx.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(expiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
