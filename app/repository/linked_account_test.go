package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	insertLinkedAccountQuery = `(?s)INSERT INTO linked_accounts \(user_id, provider, provider_account_id, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findByProviderQuery      = `(?s)FROM linked_accounts WHERE provider = \? AND provider_account_id = \?`
	listByUserQuery          = `(?s)FROM linked_accounts WHERE user_id = \? ORDER BY id`
	distributionQuery        = `(?s)SELECT name, COUNT\(\*\) AS count\s+FROM \(\s+SELECT provider AS name FROM linked_accounts\s+UNION ALL\s+SELECT 'credentials' AS name FROM users WHERE password_hash IS NOT NULL\s+\) combined\s+GROUP BY name`
)

var linkedAccountColumns = []string{
	"id",
	"user_id",
	"provider",
	"provider_account_id",
	"created_at",
}

func TestLinkedAccountRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewLinkedAccountRepository(db)
	now := time.Now()
	account := &entity.LinkedAccount{
		UserID:            4,
		Provider:          "github",
		ProviderAccountID: "gh-123",
		CreatedAt:         now,
	}

	mock.ExpectExec(insertLinkedAccountQuery).
		WithArgs(account.UserID, account.Provider, account.ProviderAccountID, account.CreatedAt).
		WillReturnResult(sqlmock.NewResult(11, 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if account.ID != 11 {
		t.Fatalf("expected id 11, got %d", account.ID)
	}
}

func TestLinkedAccountRepository_FindByProviderAccount(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewLinkedAccountRepository(db)
	now := time.Now()

	mock.ExpectQuery(findByProviderQuery).
		WithArgs("google", "g-42").
		WillReturnRows(sqlmock.NewRows(linkedAccountColumns).AddRow(2, 4, "google", "g-42", now))

	account, err := repo.FindByProviderAccount(context.Background(), "google", "g-42")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if account == nil || account.UserID != 4 || account.Provider != "google" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestLinkedAccountRepository_FindByProviderAccountNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewLinkedAccountRepository(db)
	mock.ExpectQuery(findByProviderQuery).
		WithArgs("google", "missing").
		WillReturnRows(sqlmock.NewRows(linkedAccountColumns))

	account, err := repo.FindByProviderAccount(context.Background(), "google", "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}
}

func TestLinkedAccountRepository_ListByUserID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewLinkedAccountRepository(db)
	now := time.Now()

	mock.ExpectQuery(listByUserQuery).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(linkedAccountColumns).
			AddRow(1, 4, "google", "g-1", now).
			AddRow(2, 4, "github", "gh-1", now))

	accounts, err := repo.ListByUserID(context.Background(), 4)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Provider != "google" || accounts[1].Provider != "github" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestLinkedAccountRepository_ProviderDistribution(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewLinkedAccountRepository(db)
	mock.ExpectQuery(distributionQuery).
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).
			AddRow("credentials", 30).
			AddRow("github", 12).
			AddRow("google", 25))

	counts, err := repo.ProviderDistribution(context.Background())
	if err != nil {
		t.Fatalf("distribution failed: %v", err)
	}
	if len(counts) != 3 || counts[0].Name != "credentials" || counts[0].Count != 30 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
