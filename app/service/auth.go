package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/config"
)

var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrCodeMismatch       = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code has expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrProviderAccount    = errors.New("password reset not available for provider accounts")
	ErrWeakPassword       = errors.New("password does not meet policy requirements")
	ErrEmailDispatch      = errors.New("unable to send email")
)

const (
	resetTokenBytes       = 32
	maxResetTokenAttempts = 5
)

// AuthService owns the credential side of the account lifecycle: sign-up
// with email verification, sign-in, and the password reset flow.
type AuthService struct {
	db       *sql.DB
	userRepo *repository.UserRepository
	sessions *SessionIssuer
	mail     mailer.Mailer
	cfg      *config.Config
}

func NewAuthService(db *sql.DB, userRepo *repository.UserRepository, sessions *SessionIssuer, mail mailer.Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		sessions: sessions,
		mail:     mail,
		cfg:      cfg,
	}
}

// SignUp creates a credential account. The user row and the verification
// email are one unit: the insert happens inside a transaction that only
// commits after the email went out, so a failed dispatch never leaves a
// registered-but-never-emailed account behind.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*dto.SignUpResult, error) {
	canonicalEmail := CanonicalizeEmail(email)

	existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	if err := s.cfg.PasswordPolicy.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}
	now := time.Now()

	user := &entity.User{
		Name:             sql.NullString{String: name, Valid: name != ""},
		Email:            email,
		CanonicalEmail:   canonicalEmail,
		PasswordHash:     sql.NullString{String: string(hashedPassword), Valid: true},
		Role:             entity.RoleUser,
		VerificationCode: sql.NullString{String: code, Valid: true},
		VerificationCodeExpiresAt: sql.NullTime{
			Time:  now.Add(s.cfg.VerificationCodeTTL),
			Valid: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txUserRepo := s.userRepo.WithTx(tx)
	if err := txUserRepo.Create(ctx, user); err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	subject, body := mailer.VerificationMessage(s.cfg.BaseURL, email, code)
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailDispatch, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &dto.SignUpResult{UserID: user.ID}, nil
}

// SignIn authenticates a credential account and mints a session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*dto.SignInResult, error) {
	canonicalEmail := CanonicalizeEmail(email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsCredentialAccount() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified() {
		return nil, ErrEmailNotVerified
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}

	return &dto.SignInResult{
		Token:     token,
		ExpiresIn: int64(s.sessions.TTL().Seconds()),
		UserID:    user.ID,
		Role:      user.Role,
	}, nil
}

// VerifyEmail checks a submitted code and stamps the account verified.
// Check order matters for the messages the caller may surface: unknown
// user, already verified, wrong code, expired code.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	canonicalEmail := CanonicalizeEmail(email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if user.IsVerified() {
		return ErrAlreadyVerified
	}

	if !user.VerificationCode.Valid || user.VerificationCode.String != code {
		return ErrCodeMismatch
	}

	if !user.VerificationCodeExpiresAt.Valid || user.VerificationCodeExpiresAt.Time.Before(time.Now()) {
		return ErrCodeExpired
	}

	user.EmailVerifiedAt = sql.NullTime{Time: time.Now(), Valid: true}
	user.VerificationCode = sql.NullString{}
	user.VerificationCodeExpiresAt = sql.NullTime{}

	return s.userRepo.Update(ctx, user)
}

// ResendVerification issues a fresh code. Like SignUp, the new code only
// sticks if the email carrying it went out.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	canonicalEmail := CanonicalizeEmail(email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if user.IsVerified() {
		return ErrAlreadyVerified
	}

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}

	user.VerificationCode = sql.NullString{String: code, Valid: true}
	user.VerificationCodeExpiresAt = sql.NullTime{
		Time:  time.Now().Add(s.cfg.VerificationCodeTTL),
		Valid: true,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.userRepo.WithTx(tx).Update(ctx, user); err != nil {
		return err
	}

	subject, body := mailer.ResendVerificationMessage(s.cfg.BaseURL, user.Email, code)
	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("%w: %s", ErrEmailDispatch, err.Error())
	}

	return tx.Commit()
}

// RequestPasswordReset issues a reset token for a credential account.
// Callers mask ErrUserNotFound behind a generic "if registered, email sent"
// response; ErrProviderAccount is deliberately surfaced as-is.
//
// Token generation is optimistic: the application-level collision check is
// a courtesy, the unique index on reset_token is the guarantee, and a
// duplicate-key error from the store sends us around the loop again.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	canonicalEmail := CanonicalizeEmail(email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !user.IsCredentialAccount() {
		return ErrProviderAccount
	}

	for attempt := 0; attempt < maxResetTokenAttempts; attempt++ {
		token, err := generateResetToken()
		if err != nil {
			return err
		}

		existing, err := s.userRepo.FindByResetToken(ctx, token)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		user.ResetToken = sql.NullString{String: token, Valid: true}
		user.ResetTokenExpiresAt = sql.NullTime{
			Time:  time.Now().Add(s.cfg.ResetTokenTTL),
			Valid: true,
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if err := s.userRepo.WithTx(tx).Update(ctx, user); err != nil {
			tx.Rollback()
			if isDuplicateEntry(err) {
				continue
			}
			return err
		}

		subject, body := mailer.PasswordResetMessage(s.cfg.BaseURL, token)
		if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %s", ErrEmailDispatch, err.Error())
		}

		return tx.Commit()
	}

	return errors.New("could not generate a unique reset token")
}

// ResetPassword consumes a reset token. Clearing the token in the same
// update that sets the new hash is what makes tokens single-use: a second
// concurrent consumer simply finds no matching row.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	if !user.ResetTokenExpiresAt.Valid || user.ResetTokenExpiresAt.Time.Before(time.Now()) {
		return ErrInvalidResetToken
	}

	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = sql.NullString{String: string(hashedPassword), Valid: true}
	user.ResetToken = sql.NullString{}
	user.ResetTokenExpiresAt = sql.NullTime{}

	return s.userRepo.Update(ctx, user)
}

// ValidateSessionToken exposes token validation for middleware and for the
// validate-token endpoint consumed by sibling services.
func (s *AuthService) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	return s.sessions.Validate(tokenString)
}

func generateVerificationCode() (string, error) {
	// Uniform over 100000-999999.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
