package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/api/handlers"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/jobs"
	"github.com/mailsift/mailsift/internal/server"
	"github.com/mailsift/mailsift/internal/telemetry"
)

const (
	workerPollInterval = 10 * time.Second
	shutdownGrace      = 30 * time.Second
)

// ServeCmd builds the command that runs the HTTP server
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the mailsift API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Skip starting the classification job worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	if flush := initTelemetry(); flush != nil {
		defer flush()
	}

	if skip, _ := cmd.Flags().GetBool("no-migrate"); !skip {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	log.Println("connected to database")

	var worker *jobs.Worker
	if skip, _ := cmd.Flags().GetBool("no-worker"); !skip {
		worker = jobs.NewWorker(
			jobs.NewClassifyWorker(app.ClassifyJobRepo, app.Classification),
			workerPollInterval,
		)
		go worker.Start(ctx)
		log.Println("classification worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		MessageHandler:  handlers.NewMessageHandler(app.Messages),
		CategoryHandler: handlers.NewCategoryHandler(app.Categories),
		ClassifyHandler: handlers.NewClassifyHandler(app.Classification, app.AssignmentRepo),
		BootstrapHandler: handlers.NewBootstrapHandler(
			app.Bootstrap,
			cfg.SampleCategoriesPath,
			cfg.SampleMessagesPath,
		),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// initTelemetry enables Sentry when SENTRY_DSN is set. Sampling defaults to
// 10% outside development. Returns a flush function or nil.
func initTelemetry() func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	rate := 0.1
	if env == "development" {
		rate = 1.0
	}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      env,
		TracesSampleRate: rate,
	})
	if err != nil {
		log.Printf("telemetry init failed, continuing untraced: %v", err)
		return nil
	}
	return flush
}

// runMigrations applies pending migrations. golang-migrate drives a
// database/sql connection rather than the pgx pool.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("migrations: nothing to apply")
	case err != nil:
		return fmt.Errorf("reading migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty, manual intervention required", version)
	default:
		log.Printf("migrations: schema at version %d", version)
	}

	return nil
}
