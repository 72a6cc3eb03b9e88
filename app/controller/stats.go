package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
)

type StatsController struct {
	statsService *service.StatsService
}

func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{statsService: statsService}
}

func (c *StatsController) UserCount(ctx echo.Context) error {
	total, err := c.statsService.UserCount(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("User count failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
	return ctx.JSON(http.StatusOK, dto.UserCountResponse{Count: total})
}

func (c *StatsController) UserGrowth(ctx echo.Context) error {
	growth, err := c.statsService.UserGrowth(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("User growth failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	months := make([]dto.MonthlyCount, 0, len(growth))
	for _, m := range growth {
		months = append(months, dto.MonthlyCount{Month: m.Month, Count: m.Count})
	}
	return ctx.JSON(http.StatusOK, dto.UserGrowthResponse{Growth: months})
}

func (c *StatsController) ProviderDistribution(ctx echo.Context) error {
	distribution, err := c.statsService.ProviderDistribution(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("Provider distribution failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	providers := make(map[string]int64, len(distribution))
	for _, p := range distribution {
		providers[p.Name] = p.Count
	}
	return ctx.JSON(http.StatusOK, dto.ProviderDistributionResponse{Providers: providers})
}
