package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

var (
	ErrInvalidRole   = errors.New("invalid role")
	ErrSelfRole      = errors.New("cannot change own role")
	ErrSelfDelete    = errors.New("cannot delete own account")
)

// AdminService backs the user management endpoints. The acting admin's ID
// threads through so self-targeting operations can be refused.
type AdminService struct {
	userRepo *repository.UserRepository
}

func NewAdminService(userRepo *repository.UserRepository) *AdminService {
	return &AdminService{userRepo: userRepo}
}

func (s *AdminService) ListUsers(ctx context.Context, params repository.ListUsersParams) ([]repository.UserSummary, int64, error) {
	return s.userRepo.List(ctx, params)
}

func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, targetID uint64, role string) error {
	if actorID == targetID {
		return ErrSelfRole
	}
	if !entity.ValidRole(role) {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	user.Role = role
	return s.userRepo.Update(ctx, user)
}

func (s *AdminService) DeleteUser(ctx context.Context, actorID, targetID uint64) error {
	if actorID == targetID {
		return ErrSelfDelete
	}

	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	return s.userRepo.Delete(ctx, targetID)
}
