package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/oauth"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

const (
	LinkDenyPasswordAccount = "existing_password_account"
	LinkDenyOtherProvider   = "existing_provider"
)

// LinkConflictError reports why a provider sign-in was refused. Provider is
// set when the conflict is an existing link to a different provider, so the
// caller can tell the user which provider to use instead.
type LinkConflictError struct {
	Reason   string
	Provider string
}

func (e *LinkConflictError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("account linking denied: %s (%s)", e.Reason, e.Provider)
	}
	return fmt.Sprintf("account linking denied: %s", e.Reason)
}

// LinkDecision is the outcome of ResolveLink.
type LinkDecision struct {
	// CreateUser is true when no account exists for the email and a new
	// one should be created alongside the link.
	CreateUser bool
	// Conflict is non-nil when the sign-in must be denied.
	Conflict *LinkConflictError
}

// ResolveLink decides whether an identity from an OAuth provider may attach
// to the account holding its email address. Pure: it looks at nothing but
// its arguments.
//
// A password-holding account is never silently linked, because the provider
// only vouches for the email, not for ownership of the local password. An
// account already linked elsewhere stays with its original provider.
func ResolveLink(user *entity.User, links []entity.LinkedAccount, provider string) LinkDecision {
	if user == nil {
		return LinkDecision{CreateUser: true}
	}

	if user.IsCredentialAccount() {
		return LinkDecision{Conflict: &LinkConflictError{Reason: LinkDenyPasswordAccount}}
	}

	for _, link := range links {
		if link.Provider != provider {
			return LinkDecision{Conflict: &LinkConflictError{
				Reason:   LinkDenyOtherProvider,
				Provider: link.Provider,
			}}
		}
	}

	return LinkDecision{}
}

// LinkingService turns provider identities into local sessions.
type LinkingService struct {
	db          *sql.DB
	userRepo    *repository.UserRepository
	accountRepo *repository.LinkedAccountRepository
	sessions    *SessionIssuer
}

func NewLinkingService(db *sql.DB, userRepo *repository.UserRepository, accountRepo *repository.LinkedAccountRepository, sessions *SessionIssuer) *LinkingService {
	return &LinkingService{
		db:          db,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		sessions:    sessions,
	}
}

// OAuthSignIn signs in (or up) a user for a verified provider identity.
// Returns a *LinkConflictError when the identity may not attach to the
// account owning its email.
//
// A duplicate-key error while inserting means a concurrent callback for the
// same email or identity won the race. The flow is re-run once so it now
// sees the winner's rows.
func (s *LinkingService) OAuthSignIn(ctx context.Context, identity oauth.Identity) (*dto.OAuthSignInResult, error) {
	result, err := s.signIn(ctx, identity)
	if errors.Is(err, errLostInsertRace) {
		return s.signIn(ctx, identity)
	}
	return result, err
}

func (s *LinkingService) signIn(ctx context.Context, identity oauth.Identity) (*dto.OAuthSignInResult, error) {
	// Returning visitor: the exact (provider, account id) pair is already
	// linked, no resolution needed.
	link, err := s.accountRepo.FindByProviderAccount(ctx, identity.Provider, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		user, err := s.userRepo.FindByID(ctx, link.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("linked account %d references missing user %d", link.ID, link.UserID)
		}
		return s.issue(user, false)
	}

	canonicalEmail := CanonicalizeEmail(identity.Email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}

	var links []entity.LinkedAccount
	if user != nil {
		links, err = s.accountRepo.ListByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	}

	decision := ResolveLink(user, links, identity.Provider)
	if decision.Conflict != nil {
		return nil, decision.Conflict
	}

	if decision.CreateUser {
		return s.createAndLink(ctx, identity, canonicalEmail)
	}

	if err := s.link(ctx, user.ID, identity); err != nil {
		return nil, err
	}
	return s.issue(user, false)
}

func (s *LinkingService) createAndLink(ctx context.Context, identity oauth.Identity, canonicalEmail string) (*dto.OAuthSignInResult, error) {
	now := time.Now()
	user := &entity.User{
		Name:           sql.NullString{String: identity.Name, Valid: identity.Name != ""},
		Email:          identity.Email,
		CanonicalEmail: canonicalEmail,
		Role:           entity.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
		if isDuplicateEntry(err) {
			return nil, errLostInsertRace
		}
		return nil, err
	}

	account := &entity.LinkedAccount{
		UserID:            user.ID,
		Provider:          identity.Provider,
		ProviderAccountID: identity.AccountID,
		CreatedAt:         now,
	}
	if err := s.accountRepo.WithTx(tx).Create(ctx, account); err != nil {
		if isDuplicateEntry(err) {
			return nil, errLostInsertRace
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.issue(user, true)
}

func (s *LinkingService) link(ctx context.Context, userID uint64, identity oauth.Identity) error {
	account := &entity.LinkedAccount{
		UserID:            userID,
		Provider:          identity.Provider,
		ProviderAccountID: identity.AccountID,
		CreatedAt:         time.Now(),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if isDuplicateEntry(err) {
			// Concurrent callback created the same link first. The link
			// exists either way.
			return nil
		}
		return err
	}
	return nil
}

func (s *LinkingService) issue(user *entity.User, created bool) (*dto.OAuthSignInResult, error) {
	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.OAuthSignInResult{
		Token:     token,
		ExpiresIn: int64(s.sessions.TTL().Seconds()),
		UserID:    user.ID,
		Created:   created,
	}, nil
}

var errLostInsertRace = errors.New("lost insert race")
