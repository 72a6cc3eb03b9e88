package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

const usersPerPage = 20

type AdminController struct {
	adminService *service.AdminService
}

func NewAdminController(adminService *service.AdminService) *AdminController {
	return &AdminController{adminService: adminService}
}

func (c *AdminController) ListUsers(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	params := repository.ListUsersParams{
		Search:        ctx.QueryParam("search"),
		SortColumn:    ctx.QueryParam("sort"),
		SortDirection: ctx.QueryParam("order"),
		Limit:         usersPerPage,
		Offset:        (page - 1) * usersPerPage,
	}

	users, total, err := c.adminService.ListUsers(ctx.Request().Context(), params)
	if err != nil {
		logrus.WithError(err).Error("User listing failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	items := make([]dto.UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, dto.UserListItem{
			ID:        u.ID,
			Name:      u.Name.String,
			Email:     u.Email,
			Role:      u.Role,
			Verified:  u.EmailVerifiedAt.Valid,
			CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	pages := int((total + usersPerPage - 1) / usersPerPage)
	return ctx.JSON(http.StatusOK, dto.UserListResponse{
		Users: items,
		Total: int(total),
		Page:  page,
		Pages: pages,
	})
}

func (c *AdminController) UpdateUserRole(ctx echo.Context) error {
	actorID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user id"})
	}

	var req dto.UpdateUserRoleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	err = c.adminService.UpdateUserRole(ctx.Request().Context(), actorID, targetID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfRole):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "you cannot change your own role"})
		case errors.Is(err, service.ErrInvalidRole):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("Role update failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"actor_id":  actorID,
		"target_id": targetID,
		"role":      req.Role,
	}).Info("User role updated")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "role updated"})
}

func (c *AdminController) DeleteUser(ctx echo.Context) error {
	actorID, ok := ctx.Get(middleware.ContextKeyUserID).(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user id"})
	}

	err = c.adminService.DeleteUser(ctx.Request().Context(), actorID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfDelete):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "you cannot delete your own account here"})
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("User deletion failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"actor_id":  actorID,
		"target_id": targetID,
	}).Info("User deleted by admin")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "user deleted"})
}
