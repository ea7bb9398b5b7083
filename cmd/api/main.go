package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/background"
	"github.com/BradenHooton/sessionauth/internal/config"
	"github.com/BradenHooton/sessionauth/internal/database"
	"github.com/BradenHooton/sessionauth/internal/events"
	"github.com/BradenHooton/sessionauth/internal/handlers"
	middlewareCustom "github.com/BradenHooton/sessionauth/internal/middleware"
	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/BradenHooton/sessionauth/internal/repositories"
	"github.com/BradenHooton/sessionauth/internal/routes"
	"github.com/BradenHooton/sessionauth/internal/services"
	pkgauth "github.com/BradenHooton/sessionauth/pkg/auth"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	pkglogger "github.com/BradenHooton/sessionauth/pkg/logger"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Event side channel; a no-op when REDIS_ADDR is unset
	publisher, err := events.NewPublisher(context.Background(), cfg.Events, logger)
	if err != nil {
		logger.Error("failed to connect event publisher", slog.Any("error", err))
		os.Exit(1)
	}
	defer publisher.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	failedLoginRepo := repositories.NewFailedLoginRepository(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	trxGen := trxid.NewGenerator(cfg.Server.Env)
	auditLogger := pkglogger.NewAuditLogger(logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Initialize services
	userService := services.NewUserService(userRepo, hasher, publisher, trxGen, logger)
	lockoutService := services.NewLockoutService(failedLoginRepo, cfg.Auth.LockoutThreshold, logger)
	sessionService := services.NewSessionService(sessionRepo, db, tokenManager, cfg.Auth.SessionExpiry, logger)
	resetService := services.NewPasswordResetService(resetRepo, userService, db, cfg.Auth.ResetTokenExpiry, logger)
	authService := services.NewAuthService(services.AuthDependencies{
		Users:       userService,
		Lockout:     lockoutService,
		Sessions:    sessionService,
		Resets:      resetService,
		Tokens:      tokenManager,
		Hasher:      hasher,
		Timing:      timingDelay,
		Logger:      logger,
		AuditLogger: auditLogger,
	})

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userService, cfg.Admin, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	userHandler := handlers.NewUserHandler(userService)
	authHandler := handlers.NewAuthHandler(authService, ipConfig)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.TrxID(trxGen))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, userHandler, authHandler, tokenManager, middlewareCustom.RateLimitConfig{
		Requests: cfg.Auth.LoginRateLimitCount,
		Window:   cfg.Auth.LoginRateLimitWindow,
	})
	router.Get("/health", handlers.Health(db))

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(authService, logger, cfg.Auth.SessionCleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user when ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, users *services.UserService, admin config.AdminConfig, logger *slog.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := users.FindByUsername(ctx, admin.Username)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if _, err := users.CreateUser(ctx, models.NewUser{
		FullName: "Administrator",
		Email:    admin.Email,
		Username: admin.Username,
		Password: admin.Password,
		Role:     models.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
