package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/models"
)

const loanSelect = `
	SELECT l.id, l.user_id, l.client_id, c.name, l.principal_amount, l.interest_rate,
		l.start_date, l.payment_frequency_days, l.status, l.created_at, l.updated_at
	FROM loans l
	JOIN clients c ON c.id = l.client_id`

// CreateLoan inserts a new loan
func (r *Repository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	_, err := r.exec(ctx, `
		INSERT INTO loans (id, user_id, client_id, principal_amount, interest_rate, start_date,
			payment_frequency_days, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.UserID, loan.ClientID, loan.PrincipalAmount, loan.InterestRate, loan.StartDate,
		loan.PaymentFrequencyDays, string(loan.Status), timeArg(loan.CreatedAt), timeArg(loan.UpdatedAt))
	if isForeignKeyViolation(err) {
		return apperr.Wrap(apperr.NotFound, err, "client not found")
	}
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan retrieves a loan owned by the user
func (r *Repository) GetLoan(ctx context.Context, userID, id uuid.UUID) (*models.Loan, error) {
	row := r.queryRow(ctx, loanSelect+` WHERE l.id = ? AND l.user_id = ?`, id, userID)
	loan, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "loan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns the user's loans, newest first
func (r *Repository) ListLoans(ctx context.Context, userID uuid.UUID) ([]models.Loan, error) {
	rows, err := r.query(ctx, loanSelect+` WHERE l.user_id = ? ORDER BY l.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return r.scanLoans(rows)
}

// ListLoansWithoutPayments returns loans of every user that have no payment
// record at all.
func (r *Repository) ListLoansWithoutPayments(ctx context.Context) ([]models.Loan, error) {
	rows, err := r.query(ctx, loanSelect+`
		WHERE NOT EXISTS (SELECT 1 FROM payments p WHERE p.loan_id = l.id)
		ORDER BY l.created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans without payments: %w", err)
	}
	return r.scanLoans(rows)
}

// UpdateLoanStatus sets the status of a loan owned by the user
func (r *Repository) UpdateLoanStatus(ctx context.Context, userID, id uuid.UUID, status models.LoanStatus, at time.Time) error {
	res, err := r.exec(ctx, `UPDATE loans SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(status), timeArg(at), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "loan not found")
	}
	return nil
}

// DeleteLoan removes a loan and its payments within a transaction.
func (r *Repository) DeleteLoan(ctx context.Context, userID, id uuid.UUID) error {
	return r.InTx(ctx, func(s Storage) error {
		tx := s.(*Repository)
		if _, err := tx.exec(ctx, `DELETE FROM payments WHERE loan_id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("failed to delete associated payments: %w", err)
		}
		res, err := tx.exec(ctx, `DELETE FROM loans WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete loan: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.NotFound, "loan not found")
		}
		return nil
	})
}

func (r *Repository) scanLoans(rows *sql.Rows) ([]models.Loan, error) {
	defer rows.Close()
	loans := []models.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var (
		loan             models.Loan
		status           string
		created, updated nullTime
	)
	err := row.Scan(&loan.ID, &loan.UserID, &loan.ClientID, &loan.ClientName, &loan.PrincipalAmount, &loan.InterestRate,
		&loan.StartDate, &loan.PaymentFrequencyDays, &status, &created, &updated)
	if err != nil {
		return nil, err
	}
	loan.Status = models.LoanStatus(status)
	loan.CreatedAt = created.Time
	loan.UpdatedAt = updated.Time
	return &loan, nil
}
