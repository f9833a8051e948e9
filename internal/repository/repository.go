package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// Storage defines the persistence operations of the service. Every read and
// mutation of tenant data is scoped by the owning user id; a row owned by
// someone else is reported exactly like a missing one.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateCapital(ctx context.Context, capital *models.Capital) error
	GetCapital(ctx context.Context, userID uuid.UUID) (*models.Capital, error)
	UpdateInitialCapital(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, at time.Time) error

	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, userID uuid.UUID) ([]models.Client, error)
	CountClientLoans(ctx context.Context, userID, clientID uuid.UUID) (int, error)
	DeleteClient(ctx context.Context, userID, id uuid.UUID) error

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, userID, id uuid.UUID) (*models.Loan, error)
	ListLoans(ctx context.Context, userID uuid.UUID) ([]models.Loan, error)
	UpdateLoanStatus(ctx context.Context, userID, id uuid.UUID, status models.LoanStatus, at time.Time) error
	DeleteLoan(ctx context.Context, userID, id uuid.UUID) error
	ListLoansWithoutPayments(ctx context.Context) ([]models.Loan, error)

	// CreatePayment inserts unless a payment for the same loan and month
	// exists, in which case it returns a Conflict error.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, userID, id uuid.UUID) (*models.Payment, error)
	// SetPaymentPaid changes was_paid from `from` to `to` and reports whether
	// a row was updated; false means the stored state was not `from`.
	SetPaymentPaid(ctx context.Context, userID, id uuid.UUID, from, to bool, paidAt *time.Time) (bool, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListLoanPayments(ctx context.Context, userID, loanID uuid.UUID) ([]models.Payment, error)
	ListDuePayments(ctx context.Context, through models.Date) ([]models.DuePayment, error)

	// InTx runs fn inside one database transaction. Nested calls join the
	// outer transaction.
	InTx(ctx context.Context, fn func(Storage) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides database operations
type Repository struct {
	db     *sql.DB
	q      querier
	driver string
	inTx   bool
}

// NewRepository initializes a new repository for the given driver name.
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, q: db, driver: driver}
}

// Open connects to the database and checks the connection.
func Open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == config.DriverSQLite {
		// A single connection serializes writers instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// InTx runs fn in a transaction
func (r *Repository) InTx(ctx context.Context, fn func(Storage) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Repository{db: r.db, q: tx, driver: r.driver, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.driver != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.rebind(query), args...)
}

// isUniqueViolation reports whether err was raised by a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isForeignKeyViolation reports whether err was raised by a FOREIGN KEY constraint.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
