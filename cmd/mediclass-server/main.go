package main

import (
	"context"
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

	"github.com/mediclass/mediclass/internal/config"
	"github.com/mediclass/mediclass/internal/domain/appointment"
	"github.com/mediclass/mediclass/internal/domain/chat"
	"github.com/mediclass/mediclass/internal/domain/comment"
	"github.com/mediclass/mediclass/internal/domain/identity"
	"github.com/mediclass/mediclass/internal/domain/medicalnote"
	"github.com/mediclass/mediclass/internal/domain/video"
	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/blobstore"
	"github.com/mediclass/mediclass/internal/platform/db"
	"github.com/mediclass/mediclass/internal/platform/middleware"
	"github.com/mediclass/mediclass/internal/platform/notification"
	"github.com/mediclass/mediclass/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediclass-server",
		Short: "MediClass API server",
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
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Token issuer
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "dev-secret-do-not-use-in-production"
		logger.Warn().Msg("JWT_SECRET not set; using development secret")
	}
	issuer := auth.NewTokenIssuer([]byte(secret), auth.DefaultTokenTTL)

	// Mail
	var mailer notification.Mailer
	if cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		mailer = &notification.MockMailer{}
		logger.Warn().Msg("SMTP_HOST not set; outgoing mail is discarded")
	}
	dispatcher := notification.NewDispatcher(
		mailer,
		notification.NewTemplateEngine(),
		notification.NewEmailLogRepoPG(pool),
		map[notification.EmailType]int{
			notification.TypeVerification:            cfg.VerificationEmailHourlyLimit,
			notification.TypeAppointmentConfirmation: cfg.AppointmentEmailHourlyLimit,
			notification.TypeDoctorApproval:          cfg.ApprovalEmailHourlyLimit,
			notification.TypeDoctorRejection:         cfg.ApprovalEmailHourlyLimit,
		},
		logger,
	)

	// Object storage
	var blobs blobstore.BlobStore
	if cfg.CDNStorageZone != "" {
		blobs = blobstore.NewCDNBlobStore(blobstore.CDNConfig{
			StorageHost: cfg.CDNStorageHost,
			StorageZone: cfg.CDNStorageZone,
			AccessKey:   cfg.CDNAccessKey,
			PullZone:    cfg.CDNPullZone,
		})
	} else {
		blobs = blobstore.NewInMemoryBlobStore()
		logger.Warn().Msg("CDN_STORAGE_ZONE not set; uploads are kept in memory")
	}

	// Realtime hub
	hub := websocket.NewHub(logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))
	e.Use(auth.Middleware(issuer, auth.DefaultSkipper))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// -- Domain wiring --

	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo, issuer, dispatcher, cfg.PublicSiteURL, logger)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	directory := identity.NewDirectory(identityRepo)

	apptRepo := appointment.NewRepoPG(pool)
	apptSvc := appointment.NewService(apptRepo, directory, logger)
	appointment.NewHandler(apptSvc, dispatcher, cfg.PublicSiteURL).RegisterRoutes(apiV1)

	noteRepo := medicalnote.NewRepoPG(pool)
	noteSvc := medicalnote.NewService(noteRepo, directory, logger)
	medicalnote.NewHandler(noteSvc).RegisterRoutes(apiV1)

	videoRepo := video.NewRepoPG(pool)
	videoSvc := video.NewService(videoRepo, blobs, logger)
	video.NewHandler(videoSvc).RegisterRoutes(apiV1)

	commentRepo := comment.NewRepoPG(pool)
	commentSvc := comment.NewService(commentRepo)
	comment.NewHandler(commentSvc).RegisterRoutes(apiV1)

	chatRepo := chat.NewRepoPG(pool)
	chatSvc := chat.NewService(chatRepo, directory, hub, logger)
	chat.NewHandler(chatSvc).RegisterRoutes(apiV1)

	blobstore.NewHandler(blobs).RegisterRoutes(apiV1)

	wsGroup := e.Group("/ws")
	websocket.NewHandler(hub).RegisterRoutes(wsGroup)

	// Start and wait for shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
