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

type ContactController struct {
	contactService *service.ContactService
}

func NewContactController(contactService *service.ContactService) *ContactController {
	return &ContactController{contactService: contactService}
}

func (c *ContactController) Submit(ctx echo.Context) error {
	var req dto.ContactRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if len(req.Name) < 2 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "name must be at least 2 characters"})
	}
	if !service.IsValidEmail(req.Email) {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid email address"})
	}
	if len(req.Subject) < 5 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "subject must be at least 5 characters"})
	}
	if len(req.Message) < 10 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "message must be at least 10 characters"})
	}

	err := c.contactService.Submit(ctx.Request().Context(), ctx.RealIP(), req.Name, req.Email, req.Subject, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContactCooldown):
			metrics.ContactMessagesTotal.WithLabelValues("throttled").Inc()
			return ctx.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "please wait a minute before sending another message"})
		case errors.Is(err, service.ErrEmailDispatch):
			metrics.ContactMessagesTotal.WithLabelValues("email_failure").Inc()
			logrus.WithError(err).Error("Contact relay failed")
			return ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "could not deliver your message, please try again"})
		}
		logrus.WithError(err).Error("Contact submission failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	metrics.ContactMessagesTotal.WithLabelValues("ok").Inc()
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "message sent, we will get back to you soon"})
}
