package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

type LinkedAccountRepository struct {
	db DBTX
}

func NewLinkedAccountRepository(db DBTX) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

func (r *LinkedAccountRepository) WithTx(tx *sql.Tx) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: tx}
}

func (r *LinkedAccountRepository) Create(ctx context.Context, account *entity.LinkedAccount) error {
	query := `
		INSERT INTO linked_accounts (user_id, provider, provider_account_id, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		account.UserID,
		account.Provider,
		account.ProviderAccountID,
		account.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = uint64(id)
	return nil
}

func (r *LinkedAccountRepository) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*entity.LinkedAccount, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, created_at
		FROM linked_accounts WHERE provider = ? AND provider_account_id = ?
	`
	account := &entity.LinkedAccount{}
	err := r.db.QueryRowContext(ctx, query, provider, providerAccountID).Scan(
		&account.ID,
		&account.UserID,
		&account.Provider,
		&account.ProviderAccountID,
		&account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *LinkedAccountRepository) ListByUserID(ctx context.Context, userID uint64) ([]entity.LinkedAccount, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, created_at
		FROM linked_accounts WHERE user_id = ? ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []entity.LinkedAccount
	for rows.Next() {
		var a entity.LinkedAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type ProviderCount struct {
	Name  string
	Count int64
}

// ProviderDistribution counts accounts by sign-in provider. Credential
// accounts (password set, no link) show up under "credentials".
func (r *LinkedAccountRepository) ProviderDistribution(ctx context.Context) ([]ProviderCount, error) {
	query := `
		SELECT name, COUNT(*) AS count
		FROM (
			SELECT provider AS name FROM linked_accounts
			UNION ALL
			SELECT 'credentials' AS name FROM users WHERE password_hash IS NOT NULL
		) combined
		GROUP BY name
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ProviderCount
	for rows.Next() {
		var pc ProviderCount
		if err := rows.Scan(&pc.Name, &pc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, pc)
	}
	return counts, rows.Err()
}
