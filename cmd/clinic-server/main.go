package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/account"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/consent"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/records"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/crypto"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// History encryption. The key comes from configuration; a dev process
	// without one gets a throwaway key, so restarts make old ciphertext
	// unreadable.
	encKey, err := cfg.EncryptionKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}
	if len(encKey) == 0 {
		if !cfg.IsDev() {
			logger.Fatal().Msg("HISTORY_ENCRYPTION_KEY is required outside development")
		}
		encKey, err = crypto.GenerateKey()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev encryption key")
		}
		logger.Warn().Msg("using a per-process dev encryption key")
	}
	encryptor, err := crypto.NewHistoryEncryptor(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	// Session tokens
	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		if !cfg.IsDev() {
			logger.Fatal().Msg("JWT_SECRET is required outside development")
		}
		buf := make([]byte, 32)
		if _, err := cryptorand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev JWT secret")
		}
		jwtSecret = []byte(hex.EncodeToString(buf))
		logger.Warn().Msg("using a per-process dev JWT secret")
	}
	issuer := auth.NewTokenIssuer(jwtSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	// Repositories
	accountRepo := account.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	doctorRepo := doctor.NewRepoPG(pool)
	consentRepo := consent.NewRepoPG(pool)
	appointmentRepo := appointment.NewRepoPG(pool)
	logRepo := accesslog.NewRepoPG(pool)

	// Services
	runTx := db.RunnerFor(pool)
	logSvc := accesslog.NewService(logRepo)
	patientSvc := patient.NewService(patientRepo, logSvc, runTx)
	doctorSvc := doctor.NewService(doctorRepo, logSvc, runTx)
	consentEngine := consent.NewEngine(consentRepo, patientRepo, doctorRepo, logSvc, runTx)
	appointmentSvc := appointment.NewService(appointmentRepo, patientRepo, logSvc, runTx)
	accountSvc := account.NewService(accountRepo, patientRepo, doctorRepo, logSvc, runTx)
	recordsSvc := records.NewService(patientRepo, appointmentRepo, logRepo, consentEngine, logSvc, encryptor, runTx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateCfg.BurstSize = cfg.RateLimitBurst
	}

	e.GET("/health", func(c echo.Context) error {
		if err := db.Health(c.Request().Context(), pool); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public endpoints: registration and login. No identity yet, so the
	// limiter keys these by caller IP.
	public := e.Group("/api/v1", middleware.RateLimit(rateCfg))
	account.NewHandler(accountSvc, issuer).RegisterRoutes(public)

	// Everything else requires a session token. The limiter sits after the
	// session middleware so authenticated traffic is keyed per account, not
	// per shared IP.
	api := e.Group("/api/v1", auth.Middleware(issuer), middleware.RateLimit(rateCfg))
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)
	consent.NewHandler(consentEngine).RegisterRoutes(api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)
	accesslog.NewHandler(logSvc).RegisterRoutes(api)
	records.NewHandler(recordsSvc).RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
