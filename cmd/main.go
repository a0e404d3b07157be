package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-auth/config"
	"loan-auth/controller"
	_ "loan-auth/docs" // swagger docs
	"loan-auth/handler"
	"loan-auth/migrations"
	"loan-auth/pkg/logger"
	"loan-auth/pkg/mailer"
	"loan-auth/repository"
	"loan-auth/service"
	"loan-auth/validator"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// @title Loan Platform Auth Service API
// @version 1.0
// @description OTP verification and credential-recovery service for the loan-application platform
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
// @description Enter JWT Bearer token in format: Bearer {token}
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infow("Starting Loan Platform Auth Service",
		"version", "1.0.0",
		"port", cfg.HTTPServer.Port,
		"env", cfg.Application.Env,
	)

	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := migrations.RunMigrations(db.DB, "./migrations"); err != nil {
		log.Fatalw("Failed to run database migrations", "error", err)
	}

	log.Infow("Database ready", "host", cfg.Database.Host, "database", cfg.Database.Name)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("Failed to connect to Redis", "error", err)
	}

	log.Infow("Redis connected", "host", cfg.Redis.Host, "port", cfg.Redis.Port)

	v := validator.New()

	// The mailer pulls its settings through the provider on every send, so a
	// hot-reloaded configuration takes effect without a restart.
	mail := mailer.New(func() config.SMTP { return cfg.SMTP }, log)

	userRepo := repository.NewUserRepository(db)
	appOTPRepo := repository.NewApplicationOTPRepository(db)

	tokenService := service.NewTokenService(redisClient, log)
	jwtService := service.NewJWTService(cfg, log, tokenService)
	userService := service.NewUserService(userRepo, log)
	otpService := service.NewOTPService(userRepo, appOTPRepo, mail, jwtService, cfg, log)
	accountService := service.NewAccountService(userRepo, otpService, mail, log)

	otpController := controller.NewOTPController(otpService, v, log)
	accountController := controller.NewAccountController(accountService, v, log)
	authController := controller.NewAuthController(jwtService, userService, log)
	healthController := controller.NewHealthController()

	e := echo.New()
	e.HideBanner = true

	handler.RegisterRoutes(e, otpController, accountController, authController, healthController, jwtService, cfg, log)

	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	go func() {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
		os.Exit(1)
	}

	log.Infow("Server shutdown completed")
}

func connectDB(cfg *config.Config) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var db *sqlx.DB
	var err error

	// The database container may still be starting; retry for up to 30s.
	for i := 0; i < 30; i++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
			db.Close()
		}
		time.Sleep(1 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
