// Package cli defines the loan-tracker command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/jobs"
	"github.com/Dan9191/loan-tracker/internal/repository"
	"github.com/Dan9191/loan-tracker/internal/service"
	"github.com/Dan9191/loan-tracker/internal/utils"
	"github.com/Dan9191/loan-tracker/internal/utils/email"
)

var rootCmd = &cobra.Command{
	Use:           "loan-tracker",
	Short:         "Track loans, monthly interest payments and lender capital",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the JSON logger used by every command.
func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// app holds the dependencies shared by the commands.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *sql.DB
	repo   *repository.Repository
	tokens *auth.Tokens
	svc    *service.Service
}

// setup loads configuration, connects to the database and applies migrations.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository(db, cfg.DBDriver)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	ttl, err := cfg.TokenLifetime()
	if err != nil {
		db.Close()
		return nil, err
	}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		db.Close()
		return nil, err
	}
	sealer, err := utils.NewSealer(key)
	if err != nil {
		db.Close()
		return nil, err
	}

	tokens := auth.NewTokens(cfg.JWTSecret, ttl)
	return &app{
		cfg:    cfg,
		log:    logger,
		db:     db,
		repo:   repo,
		tokens: tokens,
		svc:    service.NewService(repo, logger, tokens, sealer, cfg.ChartMonths),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newJobs builds the job runner. Reminders stay disabled without an SMTP host.
func (a *app) newJobs() *jobs.Jobs {
	var mailer jobs.Mailer
	if a.cfg.SMTP.Host != "" {
		mailer = email.NewSender(a.cfg.SMTP, a.log)
	}
	return jobs.New(a.svc, mailer, a.log)
}
