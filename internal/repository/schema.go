package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-tracker/internal/config"
)

// migration is one schema version. Statements differ per driver only where
// column types do.
type migration struct {
	version  int
	postgres []string
	sqlite   []string
}

var migrations = []migration{
	{
		version: 1,
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            UUID PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users_capital (
				user_id         UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				initial_capital NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (initial_capital >= 0),
				updated_at      TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS clients (
				id                   UUID PRIMARY KEY,
				user_id              UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name                 TEXT NOT NULL,
				phone_number         TEXT NOT NULL DEFAULT '',
				address              TEXT NOT NULL DEFAULT '',
				collateral_image_url TEXT,
				created_at           TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_user ON clients(user_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS loans (
				id                     UUID PRIMARY KEY,
				user_id                UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				client_id              UUID NOT NULL REFERENCES clients(id) ON DELETE RESTRICT,
				principal_amount       NUMERIC(18,2) NOT NULL CHECK (principal_amount > 0),
				interest_rate          NUMERIC(9,4) NOT NULL CHECK (interest_rate >= 0),
				start_date             DATE NOT NULL,
				payment_frequency_days INTEGER NOT NULL CHECK (payment_frequency_days > 0),
				status                 TEXT NOT NULL CHECK (status IN ('active', 'completed')),
				created_at             TIMESTAMPTZ NOT NULL,
				updated_at             TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_client ON loans(client_id)`,
			`CREATE TABLE IF NOT EXISTS payments (
				id              UUID PRIMARY KEY,
				user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				loan_id         UUID NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
				payment_month   DATE NOT NULL,
				interest_earned NUMERIC(18,2) NOT NULL,
				was_paid        BOOLEAN NOT NULL DEFAULT FALSE,
				payment_date    TIMESTAMPTZ,
				created_at      TIMESTAMPTZ NOT NULL,
				CONSTRAINT uq_payments_loan_month UNIQUE (loan_id, payment_month)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id, payment_month DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_due ON payments(was_paid, payment_month)`,
		},
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at    DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users_capital (
				user_id         TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				initial_capital TEXT NOT NULL DEFAULT '0',
				updated_at      DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS clients (
				id                   TEXT PRIMARY KEY,
				user_id              TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name                 TEXT NOT NULL,
				phone_number         TEXT NOT NULL DEFAULT '',
				address              TEXT NOT NULL DEFAULT '',
				collateral_image_url TEXT,
				created_at           DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_user ON clients(user_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS loans (
				id                     TEXT PRIMARY KEY,
				user_id                TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				client_id              TEXT NOT NULL REFERENCES clients(id) ON DELETE RESTRICT,
				principal_amount       TEXT NOT NULL,
				interest_rate          TEXT NOT NULL,
				start_date             TEXT NOT NULL,
				payment_frequency_days INTEGER NOT NULL CHECK (payment_frequency_days > 0),
				status                 TEXT NOT NULL CHECK (status IN ('active', 'completed')),
				created_at             DATETIME NOT NULL,
				updated_at             DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_client ON loans(client_id)`,
			`CREATE TABLE IF NOT EXISTS payments (
				id              TEXT PRIMARY KEY,
				user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				loan_id         TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
				payment_month   TEXT NOT NULL,
				interest_earned TEXT NOT NULL,
				was_paid        INTEGER NOT NULL DEFAULT 0,
				payment_date    DATETIME,
				created_at      DATETIME NOT NULL,
				UNIQUE (loan_id, payment_month)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id, payment_month DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_due ON payments(was_paid, payment_month)`,
		},
	},
}

// Migrate applies pending schema versions, each in its own transaction.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		if err := r.queryRow(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}

		stmts := m.postgres
		if r.driver == config.DriverSQLite {
			stmts = m.sqlite
		}
		err := r.InTx(ctx, func(s Storage) error {
			tx := s.(*Repository)
			for _, stmt := range stmts {
				if _, err := tx.exec(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d failed: %w", m.version, err)
				}
			}
			_, err := tx.exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, m.version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
