package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

// StatsService aggregates the numbers shown on the admin dashboard.
type StatsService struct {
	userRepo    *repository.UserRepository
	accountRepo *repository.LinkedAccountRepository
}

func NewStatsService(userRepo *repository.UserRepository, accountRepo *repository.LinkedAccountRepository) *StatsService {
	return &StatsService{userRepo: userRepo, accountRepo: accountRepo}
}

func (s *StatsService) UserCount(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *StatsService) UserGrowth(ctx context.Context) ([]repository.MonthlyCount, error) {
	return s.userRepo.MonthlyGrowth(ctx)
}

func (s *StatsService) ProviderDistribution(ctx context.Context) ([]repository.ProviderCount, error) {
	return s.accountRepo.ProviderDistribution(ctx)
}
