package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

const deleteConfirmation = "DELETE"

var ErrBadConfirmation = errors.New("confirmation text does not match")

// AccountService covers a signed-in user's self-service operations.
type AccountService struct {
	userRepo    *repository.UserRepository
	accountRepo *repository.LinkedAccountRepository
}

func NewAccountService(userRepo *repository.UserRepository, accountRepo *repository.LinkedAccountRepository) *AccountService {
	return &AccountService{userRepo: userRepo, accountRepo: accountRepo}
}

func (s *AccountService) Profile(ctx context.Context, userID uint64) (*entity.User, []entity.LinkedAccount, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	links, err := s.accountRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, links, nil
}

// UpdateProfile changes name and/or email. A changed email address must
// still be unique, with the store's constraint as the final word.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint64, name, email *string) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if name != nil {
		user.Name = sql.NullString{String: *name, Valid: *name != ""}
	}

	if email != nil && *email != user.Email {
		canonicalEmail := CanonicalizeEmail(*email)
		if canonicalEmail != user.CanonicalEmail {
			existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != userID {
				return nil, ErrEmailTaken
			}
		}
		user.Email = *email
		user.CanonicalEmail = canonicalEmail
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user after an explicit typed confirmation.
// Linked accounts go with the user row via the foreign key cascade.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint64, confirmation string) error {
	if confirmation != deleteConfirmation {
		return ErrBadConfirmation
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	return s.userRepo.Delete(ctx, userID)
}

// ExportData renders everything stored about the user as plain text for a
// data portability request.
func (s *AccountService) ExportData(ctx context.Context, userID uint64) (string, error) {
	user, links, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Account data export\n")
	b.WriteString("===================\n\n")
	fmt.Fprintf(&b, "Exported at: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "ID: %d\n", user.ID)
	if user.Name.Valid {
		fmt.Fprintf(&b, "Name: %s\n", user.Name.String)
	}
	fmt.Fprintf(&b, "Email: %s\n", user.Email)
	fmt.Fprintf(&b, "Role: %s\n", user.Role)
	fmt.Fprintf(&b, "Email verified: %t\n", user.IsVerified())
	fmt.Fprintf(&b, "Password set: %t\n", user.IsCredentialAccount())
	fmt.Fprintf(&b, "Created: %s\n", user.CreatedAt.UTC().Format("2006-01-02 15:04:05"))

	b.WriteString("\nLinked sign-in providers:\n")
	if len(links) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, link := range links {
		fmt.Fprintf(&b, "  - %s (linked %s)\n", link.Provider, link.CreatedAt.UTC().Format("2006-01-02"))
	}

	return b.String(), nil
}

func (s *AccountService) LinkedProviders(ctx context.Context, userID uint64) ([]entity.LinkedAccount, error) {
	return s.accountRepo.ListByUserID(ctx, userID)
}
