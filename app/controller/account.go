package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

type AccountController struct {
	accountService *service.AccountService
}

func NewAccountController(accountService *service.AccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

func (c *AccountController) Profile(ctx echo.Context) error {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	user, links, err := c.accountService.Profile(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("Profile lookup failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, profileResponse(user, links))
}

func (c *AccountController) UpdateProfile(ctx echo.Context) error {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.UpdateProfileRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Name == nil && req.Email == nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "nothing to update"})
	}
	if req.Name != nil && len(*req.Name) < 2 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "name must be at least 2 characters"})
	}
	if req.Email != nil && !service.IsValidEmail(*req.Email) {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid email address"})
	}

	user, err := c.accountService.UpdateProfile(ctx.Request().Context(), userID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		case errors.Is(err, service.ErrEmailTaken):
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "an account with this email already exists"})
		}
		logrus.WithError(err).Error("Profile update failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	links, err := c.accountService.LinkedProviders(ctx.Request().Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("Linked provider lookup failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, profileResponse(user, links))
}

func (c *AccountController) DeleteAccount(ctx echo.Context) error {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.DeleteAccountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	err := c.accountService.DeleteAccount(ctx.Request().Context(), userID, req.Confirmation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadConfirmation):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "type DELETE to confirm"})
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("Account deletion failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Account deleted")
	clearSessionCookie(ctx)
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "account deleted"})
}

// ExportData streams the user's stored data as a plain text attachment.
func (c *AccountController) ExportData(ctx echo.Context) error {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	export, err := c.accountService.ExportData(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("Data export failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="account-export.txt"`)
	return ctx.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(export))
}

func profileResponse(user *entity.User, links []entity.LinkedAccount) dto.ProfileResponse {
	resp := dto.ProfileResponse{
		ID:              user.ID,
		Email:           user.Email,
		Role:            user.Role,
		EmailVerified:   user.IsVerified(),
		CreatedAt:       user.CreatedAt.UTC().Format(time.RFC3339),
		LinkedProviders: make([]dto.LinkedProvider, 0, len(links)),
	}
	if user.Name.Valid {
		resp.Name = user.Name.String
	}
	for _, link := range links {
		resp.LinkedProviders = append(resp.LinkedProviders, dto.LinkedProvider{
			Provider: link.Provider,
			LinkedAt: link.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}
