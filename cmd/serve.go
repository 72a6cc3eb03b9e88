package cmd

import (
	"database/sql"
	"fmt"
	"net"

	"github.com/vibast-solutions/ms-go-accounts/app/controller"
	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/oauth"
	"github.com/vibast-solutions/ms-go-accounts/app/ratelimit"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the accounts service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
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

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	metrics.MustRegister()

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewLinkedAccountRepository(db)

	mail := mailer.NewSMTPMailer(cfg.SMTP)
	sessions := service.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL)

	authService := service.NewAuthService(db, userRepo, sessions, mail, cfg)
	linkingService := service.NewLinkingService(db, userRepo, accountRepo, sessions)
	accountService := service.NewAccountService(userRepo, accountRepo)
	adminService := service.NewAdminService(userRepo)
	statsService := service.NewStatsService(userRepo, accountRepo)
	contactService := service.NewContactService(mail, contactLimiter(cfg), cfg)

	startHTTPServer(cfg, authService, linkingService, accountService, adminService, statsService, contactService, sessions)
}

// contactLimiter prefers the shared Redis window so the cooldown holds
// across replicas, and falls back to a per-process limiter without it.
func contactLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.Contact.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(cfg.Contact.Cooldown)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Contact.RedisAddr})
	logrus.WithField("addr", cfg.Contact.RedisAddr).Info("Using Redis contact rate limiter")
	return ratelimit.NewRedisLimiter(client, cfg.Contact.Cooldown)
}

func startHTTPServer(
	cfg *config.Config,
	authService *service.AuthService,
	linkingService *service.LinkingService,
	accountService *service.AccountService,
	adminService *service.AdminService,
	statsService *service.StatsService,
	contactService *service.ContactService,
	sessions *service.SessionIssuer,
) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(authService)
	oauthController := controller.NewOAuthController(buildProviders(cfg), linkingService)
	accountController := controller.NewAccountController(accountService)
	adminController := controller.NewAdminController(adminService)
	statsController := controller.NewStatsController(statsService)
	contactController := controller.NewContactController(contactService)
	authMiddleware := middleware.NewAuthMiddleware(sessions)

	e.Use(authMiddleware.RouteGuard)

	auth := e.Group("/auth")
	auth.POST("/signup", authController.SignUp)
	auth.POST("/signin", authController.SignIn)
	auth.POST("/signout", authController.SignOut)
	auth.POST("/verify-email", authController.VerifyEmail)
	auth.POST("/resend-verification", authController.ResendVerification)
	auth.POST("/request-password-reset", authController.RequestPasswordReset)
	auth.POST("/reset-password", authController.ResetPassword)
	auth.POST("/validate-token", authController.ValidateToken)

	oauthGroup := e.Group("/auth/oauth")
	oauthGroup.GET("/:provider", oauthController.Begin)
	oauthGroup.GET("/:provider/callback", oauthController.Callback)

	user := e.Group("/api/user")
	user.Use(authMiddleware.RequireAuth)
	user.GET("/me", accountController.Profile)
	user.PUT("/update", accountController.UpdateProfile)
	user.DELETE("/delete", accountController.DeleteAccount)
	user.GET("/data", accountController.ExportData)

	stats := e.Group("/api/users")
	stats.Use(authMiddleware.RequireAuth)
	stats.GET("/count", statsController.UserCount)
	stats.GET("/growth", statsController.UserGrowth)
	stats.GET("/providers", statsController.ProviderDistribution)

	admin := e.Group("/api/admin")
	admin.Use(authMiddleware.RequireAdmin)
	admin.GET("/users", adminController.ListUsers)
	admin.PUT("/users/:id/role", adminController.UpdateUserRole)
	admin.DELETE("/users/:id", adminController.DeleteUser)

	e.POST("/api/contact", contactController.Submit)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func buildProviders(cfg *config.Config) map[string]*oauth.Provider {
	providers := map[string]*oauth.Provider{}
	for name, pc := range cfg.OAuthProviders {
		redirectURL := fmt.Sprintf("%s/auth/oauth/%s/callback", cfg.BaseURL, name)
		switch name {
		case "google":
			providers[name] = oauth.NewGoogle(pc.ClientID, pc.ClientSecret, redirectURL, cfg.OAuthStateKey)
		case "github":
			providers[name] = oauth.NewGithub(pc.ClientID, pc.ClientSecret, redirectURL, cfg.OAuthStateKey)
		case "discord":
			providers[name] = oauth.NewDiscord(pc.ClientID, pc.ClientSecret, redirectURL, cfg.OAuthStateKey)
		}
	}
	for name := range providers {
		logrus.WithField("provider", name).Info("OAuth provider enabled")
	}
	return providers
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
