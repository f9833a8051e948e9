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

const paymentSelect = `
	SELECT p.id, p.user_id, p.loan_id, c.name, p.payment_month, p.interest_earned,
		p.was_paid, p.payment_date, p.created_at
	FROM payments p
	JOIN loans l ON l.id = p.loan_id
	JOIN clients c ON c.id = l.client_id`

// CreatePayment inserts a payment unless one exists for the same loan and
// month. The unique (loan_id, payment_month) constraint is the guard, so
// concurrent inserts for the same month leave exactly one row.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	var id uuid.UUID
	err := r.queryRow(ctx, `
		INSERT INTO payments (id, user_id, loan_id, payment_month, interest_earned, was_paid, payment_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (loan_id, payment_month) DO NOTHING
		RETURNING id`,
		payment.ID, payment.UserID, payment.LoanID, payment.PaymentMonth, payment.InterestEarned,
		payment.WasPaid, nullTimeArg(payment.PaymentDate), timeArg(payment.CreatedAt)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return apperr.Newf(apperr.Conflict, "payment for %s already exists", payment.PaymentMonth.Time().Format("2006-01"))
	}
	if isForeignKeyViolation(err) {
		return apperr.Wrap(apperr.NotFound, err, "loan not found")
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment owned by the user
func (r *Repository) GetPayment(ctx context.Context, userID, id uuid.UUID) (*models.Payment, error) {
	row := r.queryRow(ctx, paymentSelect+` WHERE p.id = ? AND p.user_id = ?`, id, userID)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// SetPaymentPaid is a compare-and-set on was_paid.
func (r *Repository) SetPaymentPaid(ctx context.Context, userID, id uuid.UUID, from, to bool, paidAt *time.Time) (bool, error) {
	res, err := r.exec(ctx, `
		UPDATE payments SET was_paid = ?, payment_date = ?
		WHERE id = ? AND user_id = ? AND was_paid = ?`,
		to, nullTimeArg(paidAt), id, userID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update payment: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPayments returns the user's payments, latest month first
func (r *Repository) ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	rows, err := r.query(ctx, paymentSelect+` WHERE p.user_id = ? ORDER BY p.payment_month DESC, c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return scanPayments(rows)
}

// ListLoanPayments returns the payments of one loan, oldest month first
func (r *Repository) ListLoanPayments(ctx context.Context, userID, loanID uuid.UUID) ([]models.Payment, error) {
	rows, err := r.query(ctx, paymentSelect+` WHERE p.loan_id = ? AND p.user_id = ? ORDER BY p.payment_month`, loanID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for loan %s: %w", loanID, err)
	}
	return scanPayments(rows)
}

// ListDuePayments returns pending payments of every user whose month is on
// or before through, with the lender's email.
func (r *Repository) ListDuePayments(ctx context.Context, through models.Date) ([]models.DuePayment, error) {
	rows, err := r.query(ctx, `
		SELECT p.id, p.user_id, p.loan_id, c.name, p.payment_month, p.interest_earned,
			p.was_paid, p.payment_date, p.created_at, u.email
		FROM payments p
		JOIN loans l ON l.id = p.loan_id
		JOIN clients c ON c.id = l.client_id
		JOIN users u ON u.id = p.user_id
		WHERE p.was_paid = ? AND p.payment_month <= ? AND l.status = ?
		ORDER BY u.email, p.payment_month, c.name`,
		false, through, string(models.LoanActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list due payments: %w", err)
	}
	defer rows.Close()

	due := []models.DuePayment{}
	for rows.Next() {
		var d models.DuePayment
		var paidAt, created nullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.LoanID, &d.ClientName, &d.PaymentMonth, &d.InterestEarned,
			&d.WasPaid, &paidAt, &created, &d.LenderEmail); err != nil {
			return nil, fmt.Errorf("failed to scan due payment row: %w", err)
		}
		d.PaymentDate = paidAt.ptr()
		d.CreatedAt = created.Time
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return due, nil
}

func scanPayments(rows *sql.Rows) ([]models.Payment, error) {
	defer rows.Close()
	payments := []models.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		payment         models.Payment
		paidAt, created nullTime
	)
	err := row.Scan(&payment.ID, &payment.UserID, &payment.LoanID, &payment.ClientName, &payment.PaymentMonth,
		&payment.InterestEarned, &payment.WasPaid, &paidAt, &created)
	if err != nil {
		return nil, err
	}
	payment.PaymentDate = paidAt.ptr()
	payment.CreatedAt = created.Time
	return &payment, nil
}
