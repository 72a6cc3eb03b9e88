package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, name, email, canonical_email, password_hash, role, email_verified_at,
		       verification_code, verification_code_expires_at, reset_token, reset_token_expires_at,
		       created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (name, email, canonical_email, password_hash, role, email_verified_at, verification_code, verification_code_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Role,
		user.EmailVerifiedAt,
		user.VerificationCode,
		user.VerificationCodeExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE canonical_email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, canonicalEmail))
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE reset_token = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *UserRepository) scanOne(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CanonicalEmail,
		&user.PasswordHash,
		&user.Role,
		&user.EmailVerifiedAt,
		&user.VerificationCode,
		&user.VerificationCodeExpiresAt,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			name = ?,
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			role = ?,
			email_verified_at = ?,
			verification_code = ?,
			verification_code_expires_at = ?,
			reset_token = ?,
			reset_token_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Role,
		user.EmailVerifiedAt,
		user.VerificationCode,
		user.VerificationCodeExpiresAt,
		user.ResetToken,
		user.ResetTokenExpiresAt,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

// Delete removes the user row; linked accounts go with it via the
// ON DELETE CASCADE foreign key.
func (r *UserRepository) Delete(ctx context.Context, id uint64) error {
	query := `DELETE FROM users WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

type ListUsersParams struct {
	Offset        int
	Limit         int
	SortColumn    string
	SortDirection string
	Search        string
}

// UserSummary is the projection shown in the admin users table.
type UserSummary struct {
	ID              uint64
	Name            sql.NullString
	Email           string
	Role            string
	EmailVerifiedAt sql.NullTime
	CreatedAt       time.Time
}

var listSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

// List returns one page of users plus the total count for the same filter.
// The sort column is whitelisted; anything unknown falls back to email.
func (r *UserRepository) List(ctx context.Context, params ListUsersParams) ([]UserSummary, int64, error) {
	column, ok := listSortColumns[params.SortColumn]
	if !ok {
		column = "email"
	}
	direction := "ASC"
	if params.SortDirection == "desc" {
		direction = "DESC"
	}

	where := ""
	args := []any{}
	if params.Search != "" {
		where = `WHERE name LIKE ? OR email LIKE ?`
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM users ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, name, email, role, email_verified_at, created_at FROM users %s ORDER BY %s %s LIMIT ? OFFSET ?`, where, column, direction)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.EmailVerifiedAt, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type MonthlyCount struct {
	Month string
	Count int64
}

// MonthlyGrowth returns the number of users created per month, with empty
// months filled in, covering at most the last 13 months on record.
func (r *UserRepository) MonthlyGrowth(ctx context.Context) ([]MonthlyCount, error) {
	query := `
		WITH RECURSIVE months (month_start) AS (
			SELECT DATE_FORMAT(MIN(created_at), '%Y-%m-01') FROM users
			UNION ALL
			SELECT DATE_ADD(month_start, INTERVAL 1 MONTH) FROM months
			WHERE month_start < DATE_FORMAT(CURDATE(), '%Y-%m-01')
		)
		SELECT DATE_FORMAT(m.month_start, '%Y-%m') AS month, COUNT(u.id) AS count
		FROM months m
		LEFT JOIN users u ON DATE_FORMAT(u.created_at, '%Y-%m-01') = m.month_start
		GROUP BY m.month_start
		ORDER BY m.month_start ASC
		LIMIT 13
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var growth []MonthlyCount
	for rows.Next() {
		var mc MonthlyCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		growth = append(growth, mc)
	}
	return growth, rows.Err()
}
