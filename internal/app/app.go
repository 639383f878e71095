package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portfolio_backend/internal/auth"
	"portfolio_backend/internal/config"
	"portfolio_backend/internal/email"
	"portfolio_backend/internal/handlers"
	"portfolio_backend/internal/imageprocessor"
	"portfolio_backend/internal/logger"
	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/models"
	"portfolio_backend/internal/repositories"
	"portfolio_backend/internal/routes"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/storage"
	"portfolio_backend/internal/validator"
	"portfolio_backend/internal/workers"
	"portfolio_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	tokenCleanupInterval = time.Hour
	janitorInterval      = 6 * time.Hour
)

// Deps - зависимости роутера, которые создаются снаружи (в тестах in-memory)
type Deps struct {
	Repos   services.Repositories
	Storage storage.Storage
	Mailer  email.Provider
	// Hub - ретранслятор; nil отключает /ws и события проектов
	Hub *ws.Hub
}

func Run() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         logger.NewGormLogger(cfg.Server.Env),
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := gormDB.AutoMigrate(models.All()...); err != nil {
			logger.Fatal("Auto migration failed", "error", err)
		}
		logger.Info("Database schema migrated")
	}

	repos := services.NewRepositories()
	if err := seedFirstAdmin(gormDB, repos.Users, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	mailer, err := newMailer(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize email provider", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(ws.HubConfig{
		SendBuffer: cfg.Relay.SendBuffer,
		PingPeriod: time.Duration(cfg.Relay.PingPeriod) * time.Second,
	})
	go hub.Run(ctx)

	workers.NewTokenCleanupWorker(gormDB, repos.RefreshTokens, repos.Users, tokenCleanupInterval).Start(ctx)
	workers.NewUploadJanitor(gormDB, repos.Uploads, store, janitorInterval).Start(ctx)

	router := SetupRouter(cfg, gormDB, Deps{Repos: repos, Storage: store, Mailer: mailer, Hub: hub})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", cfg.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Error("Relay shutdown failed", "error", err)
	}
	if err := mailer.Close(); err != nil {
		logger.Warn("Email provider close failed", "error", err)
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Database close failed", "error", err)
	}
	logger.Info("Server stopped")
}

// SetupRouter собирает сервисы, хэндлеры и маршруты поверх готовых зависимостей.
func SetupRouter(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	authCfg := services.DefaultAuthConfig()
	authCfg.RefreshTTL = cfg.RefreshTokenTTL()
	authCfg.ClientURL = cfg.Server.ClientURL

	var events services.ProjectEvents
	if deps.Hub != nil {
		events = ws.NewHubNotifier(deps.Hub)
	}

	svc := services.NewServiceContainer(services.Dependencies{
		Repos:         deps.Repos,
		Tokens:        tokens,
		Mailer:        deps.Mailer,
		Storage:       deps.Storage,
		FilePolicies:  cfg.FilePolicies(),
		Images:        imageprocessor.NewProcessor(cfg.Upload.ImageQuality),
		ProjectEvents: events,
		Auth:          authCfg,
	})

	authn := middleware.NewAuthenticator(tokens, deps.Repos.Users, cfg.JWT.CookieName)
	appHandlers := initializeHandlers(cfg, db, svc, deps.Hub)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(middleware.DBMiddleware(db))

	opts := routes.Options{
		AuthLimiter: middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.AuthRequests,
			Window:            time.Duration(cfg.RateLimit.AuthWindow) * time.Second,
			Burst:             cfg.RateLimit.AuthBurst,
		}),
		Swagger: !cfg.IsProduction(),
	}
	if deps.Hub != nil {
		opts.Relay = ws.NewHandler(deps.Hub, authn, cfg.Relay.AllowedOrigins)
	}
	if cfg.Storage.Type == "local" {
		opts.UploadsDir = cfg.Storage.BasePath
	}

	routes.RegisterRoutes(router, appHandlers, authn, opts)
	return router
}

func initializeHandlers(cfg *config.Config, db *gorm.DB, svc *services.ServiceContainer, hub *ws.Hub) *handlers.AppHandlers {
	base := handlers.NewBaseHandler(validator.New())

	// без хаба счетчик остается nil интерфейсом
	var relay handlers.ClientCounter
	if hub != nil {
		relay = hub
	}

	return &handlers.AppHandlers{
		AuthHandler: handlers.NewAuthHandler(base, svc.Auth, handlers.CookieConfig{
			Name:   cfg.JWT.CookieName,
			Secure: cfg.JWT.CookieSecure,
			MaxAge: cfg.AccessTokenTTL(),
		}),
		UserHandler:          handlers.NewUserHandler(base, svc.Users),
		UploadHandler:        handlers.NewUploadHandler(base, svc.Uploads),
		HealthHandler:        handlers.NewHealthHandler(db, relay),
		SkillHandler:         handlers.NewSkillHandler(base, svc.Skills),
		ExperienceHandler:    handlers.NewExperienceHandler(base, svc.Experiences),
		EducationHandler:     handlers.NewEducationHandler(base, svc.Educations),
		CertificationHandler: handlers.NewCertificationHandler(base, svc.Certifications),
		ProjectHandler:       handlers.NewProjectHandler(base, svc.Projects),
	}
}

func newMailer(cfg *config.Config) (email.Provider, error) {
	templates := email.NewTemplateManager()
	if cfg.Email.TemplatesDir != "" {
		if err := templates.LoadTemplates(cfg.Email.TemplatesDir); err != nil {
			return nil, fmt.Errorf("failed to load email templates: %w", err)
		}
	}

	if !cfg.Email.Enabled {
		logger.Warn("Email delivery disabled, messages are written to the log")
		return email.NewLogProvider(templates), nil
	}

	provider, err := email.NewSMTPProvider(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		UseTLS:    cfg.Email.UseTLS,
		Timeout:   10 * time.Second,
	}, templates)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// seedFirstAdmin создает администратора из конфига, если такого email еще нет
func seedFirstAdmin(db *gorm.DB, users repositories.UserRepository, cfg *config.Config) error {
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.FirstAdmin.Email))
	adminPassword := cfg.FirstAdmin.Password

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	_, err := users.FindByEmail(db, adminEmail)
	if err == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	if err := auth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("first admin password rejected: %w", err)
	}
	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	firstName, lastName := cfg.FirstAdmin.FirstName, cfg.FirstAdmin.LastName
	if firstName == "" {
		firstName = "Admin"
	}
	if lastName == "" {
		lastName = "User"
	}

	admin := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
		IsVerified:   true,
	}
	if err := users.Create(db, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("✅ Created first admin user", "email", adminEmail)
	return nil
}
