package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caretab/caretab/internal/config"
	"github.com/caretab/caretab/internal/domain/billing"
	"github.com/caretab/caretab/internal/domain/card"
	"github.com/caretab/caretab/internal/domain/client"
	"github.com/caretab/caretab/internal/domain/session"
	"github.com/caretab/caretab/internal/domain/task"
	"github.com/caretab/caretab/internal/platform/auth"
	"github.com/caretab/caretab/internal/platform/db"
	"github.com/caretab/caretab/internal/platform/events"
	"github.com/caretab/caretab/internal/platform/jobs"
	"github.com/caretab/caretab/internal/platform/middleware"
)

// sessionSourceAdapter projects session rows into the shape the job runner
// consumes.
type sessionSourceAdapter struct {
	repo session.Repository
}

func (a *sessionSourceAdapter) ListUpcoming(ctx context.Context, from, to time.Time) ([]*jobs.UpcomingSession, error) {
	sessions, err := a.repo.ListUpcoming(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return projectSessions(sessions), nil
}

func (a *sessionSourceAdapter) ListCompletedWithoutNotes(ctx context.Context, since time.Time) ([]*jobs.UpcomingSession, error) {
	sessions, err := a.repo.ListCompletedWithoutNotes(ctx, since)
	if err != nil {
		return nil, err
	}
	return projectSessions(sessions), nil
}

func projectSessions(sessions []*session.Session) []*jobs.UpcomingSession {
	out := make([]*jobs.UpcomingSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, &jobs.UpcomingSession{
			ID:        s.ID,
			PatientID: s.PatientID,
			StartTime: s.StartTime,
		})
	}
	return out
}

// eventReminder delivers session reminders through the event publisher.
type eventReminder struct {
	pub events.Publisher
}

func (r *eventReminder) RemindSession(ctx context.Context, sessionID, patientID uuid.UUID, startTime time.Time) {
	r.pub.Publish(ctx, events.SessionReminder, map[string]interface{}{
		"session_id": sessionID.String(),
		"patient_id": patientID.String(),
		"start_time": startTime.UTC().Format(time.RFC3339),
	})
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "caretab-server",
		Short: "Practice management and billing API server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	var migrationsDir string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "path to migrations directory")

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, func(ctx context.Context, m *db.Migrator) error {
				applied, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	migrateStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMigrate(dir string, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir))
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	cancel()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("database pool established")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		publisher = amqpPub
		logger.Info().Msg("event publisher connected")
	}
	defer publisher.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeout) * time.Second))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", db.HealthHandler(pool))
	e.GET("/health/db", func(c echo.Context) error {
		return c.JSON(http.StatusOK, db.GetPoolStats(pool))
	})

	api := e.Group("/api")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.JWTSigningKey)}))
	}
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	// After auth so entries carry the authenticated user and org.
	api.Use(middleware.Audit(logger))

	if cfg.ResponseCacheMS > 0 {
		ttl := time.Duration(cfg.ResponseCacheMS) * time.Millisecond
		var store middleware.CacheStore
		if cfg.RedisURL != "" {
			redisStore, err := middleware.NewRedisCacheStore(cfg.RedisURL, "caretab")
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisStore.Close()
			store = redisStore
		} else {
			memStore := middleware.NewInMemoryCacheStore()
			cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
			defer cleanupCancel()
			memStore.StartCleanup(cleanupCtx, time.Minute)
			store = memStore
		}
		api.Use(middleware.ResponseCache(store, ttl))
	}

	// Repositories.
	clientRepo := client.NewRepoPG(pool)
	sessionRepo := session.NewRepoPG(pool)
	meetingRepo := session.NewMeetingRepoPG(pool)
	taskRepo := task.NewRepoPG(pool)
	claimRepo := billing.NewClaimRepoPG(pool)
	invoiceRepo := billing.NewInvoiceRepoPG(pool)
	profileRepo := billing.NewProfileRepoPG(pool)
	cardRepo := card.NewRepoPG(pool)
	txRepo := card.NewTransactionRepoPG(pool)

	// Services. Billing sits between clients and sessions: it reads billing
	// settings from the client domain and handles no-show fees for sessions.
	clientSvc := client.NewService(clientRepo)
	billingSvc := billing.NewService(claimRepo, invoiceRepo, profileRepo,
		clientSvc, &billing.StaticProvider{}, publisher, cfg.InvoiceDueDays, logger)
	sessionSvc := session.NewService(sessionRepo, meetingRepo, billingSvc, publisher, logger)
	taskSvc := task.NewService(taskRepo)
	cardSvc := card.NewService(cardRepo, txRepo, card.StaticIssuer{}, publisher, logger)

	client.NewHandler(clientSvc).RegisterRoutes(api)
	session.NewHandler(sessionSvc).RegisterRoutes(api)
	task.NewHandler(taskSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	card.NewHandler(cardSvc).RegisterRoutes(api)

	var runner *jobs.Runner
	if cfg.JobsEnabled {
		runner = jobs.NewRunner(
			&sessionSourceAdapter{repo: sessionRepo},
			billingSvc,
			taskSvc,
			&eventReminder{pub: publisher},
			jobs.Config{ReminderWindow: time.Duration(cfg.ReminderWindow) * time.Minute},
			logger,
		)
		if err := runner.Start(); err != nil {
			return fmt.Errorf("start job runner: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if runner != nil {
		runner.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
