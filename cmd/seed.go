package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create fake users for development",
	Long:  `Create fake verified users spread across the sign-in providers, with creation dates scattered over the last year.`,
	Run:   runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of users to create")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewLinkedAccountRepository(db)

	// The same hash for everyone keeps the seed fast; these are throwaway
	// development accounts.
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to hash seed password")
	}

	providers := []string{"google", "github", "credentials", "discord"}
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= seedCount; i++ {
		provider := providers[rand.Intn(len(providers))]
		createdAt := now.Add(-time.Duration(rand.Int63n(int64(365 * 24 * time.Hour))))
		email := fmt.Sprintf("user%d@example.com", i)

		user := &entity.User{
			Name:            sql.NullString{String: fmt.Sprintf("User %d", i), Valid: true},
			Email:           email,
			CanonicalEmail:  email,
			Role:            entity.RoleUser,
			EmailVerifiedAt: sql.NullTime{Time: now, Valid: true},
			CreatedAt:       createdAt,
			UpdatedAt:       createdAt,
		}
		if provider == "credentials" {
			user.PasswordHash = sql.NullString{String: string(passwordHash), Valid: true}
		}

		if err := userRepo.Create(ctx, user); err != nil {
			logrus.WithError(err).WithField("email", email).Fatal("Failed to create seed user")
		}

		if provider != "credentials" {
			account := &entity.LinkedAccount{
				UserID:            user.ID,
				Provider:          provider,
				ProviderAccountID: fmt.Sprintf("provider%d", i),
				CreatedAt:         createdAt,
			}
			if err := accountRepo.Create(ctx, account); err != nil {
				logrus.WithError(err).WithField("email", email).Fatal("Failed to link seed account")
			}
		}
	}

	logrus.WithField("count", seedCount).Info("Fake users created")
}
