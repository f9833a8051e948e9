package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/metrics"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/repository"
	"github.com/Dan9191/loan-tracker/internal/schedule"
)

// CreateLoan validates the input and stores the loan together with its first
// pending payment. Either both are stored or neither is.
func (s *Service) CreateLoan(ctx context.Context, in models.NewLoan) (*models.Loan, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	loan, err := parseNewLoan(in)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.GetClient(ctx, userID, loan.ClientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan.ID = uuid.New()
	loan.UserID = userID
	loan.ClientName = client.Name
	loan.Status = models.LoanActive
	loan.CreatedAt = now
	loan.UpdatedAt = now

	first := schedule.FirstPayment(loan)
	first.CreatedAt = now

	err = s.repo.InTx(ctx, func(tx repository.Storage) error {
		if err := tx.CreateLoan(ctx, loan); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, first); err != nil {
			return apperr.Wrap(apperr.DependencyFailure, err, "loan not created: first payment could not be recorded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoansCreated.Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"loan_id":       loan.ID,
		"first_payment": first.PaymentMonth.String(),
	}).Info("Loan created")
	return loan, nil
}

func parseNewLoan(in models.NewLoan) (*models.Loan, error) {
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, apperr.New(apperr.Validation, "client_id is required")
	}
	cid, err := uuid.Parse(clientID)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "client_id is not a valid id")
	}

	principal, err := parseDecimal(in.PrincipalAmount, "principal_amount")
	if err != nil {
		return nil, err
	}
	if !principal.IsPositive() {
		return nil, apperr.New(apperr.Validation, "principal_amount must be greater than 0")
	}
	if err := checkPrecision(principal, "principal_amount", moneyScale, moneyLimit); err != nil {
		return nil, err
	}

	rate, err := parseDecimal(in.InterestRate, "interest_rate")
	if err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, apperr.New(apperr.Validation, "interest_rate must not be negative")
	}
	if err := checkPrecision(rate, "interest_rate", rateScale, rateLimit); err != nil {
		return nil, err
	}

	rawStart := strings.TrimSpace(in.StartDate)
	if rawStart == "" {
		return nil, apperr.New(apperr.Validation, "start_date is required")
	}
	start, err := models.ParseDate(rawStart)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "start_date must be YYYY-MM-DD")
	}

	rawFreq := strings.TrimSpace(in.PaymentFrequencyDays)
	if rawFreq == "" {
		return nil, apperr.New(apperr.Validation, "payment_frequency_days is required")
	}
	freq, err := strconv.Atoi(rawFreq)
	if err != nil || freq <= 0 {
		return nil, apperr.New(apperr.Validation, "payment_frequency_days must be a positive integer")
	}

	return &models.Loan{
		ClientID:             cid,
		PrincipalAmount:      principal,
		InterestRate:         rate,
		StartDate:            start,
		PaymentFrequencyDays: freq,
	}, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperr.Newf(apperr.Validation, "%s is required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Newf(apperr.Validation, "%s must be a number", field)
	}
	return d, nil
}

// Column bounds: money is NUMERIC(18,2), rates are NUMERIC(9,4).
const (
	moneyScale = 2
	rateScale  = 4
)

var (
	moneyLimit = decimal.New(1, 16)
	rateLimit  = decimal.New(1, 5)
)

// checkPrecision rejects values the database would round or overflow.
func checkPrecision(d decimal.Decimal, field string, scale int32, limit decimal.Decimal) error {
	if d.Exponent() < -scale && !d.Equal(d.Truncate(scale)) {
		return apperr.Newf(apperr.Validation, "%s allows at most %d decimal places", field, scale)
	}
	if d.Abs().GreaterThanOrEqual(limit) {
		return apperr.Newf(apperr.Validation, "%s must be less than %s", field, limit.String())
	}
	return nil
}

// ListLoans returns the caller's loans, newest first
func (s *Service) ListLoans(ctx context.Context) ([]models.Loan, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLoans(ctx, userID)
}

// SetLoanStatus marks a loan active or completed. Payments are untouched.
func (s *Service) SetLoanStatus(ctx context.Context, id, status string) (*models.Loan, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	loanID, err := parseID(id, "loan")
	if err != nil {
		return nil, err
	}
	st := models.LoanStatus(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, apperr.Newf(apperr.Validation, "status must be %q or %q", models.LoanActive, models.LoanCompleted)
	}

	if err := s.repo.UpdateLoanStatus(ctx, userID, loanID, st, s.now()); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Infof("Loan %s status set to %s", loanID, st)
	return s.repo.GetLoan(ctx, userID, loanID)
}

// DeleteLoan removes a loan and all of its payments
func (s *Service) DeleteLoan(ctx context.Context, id string) error {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return err
	}
	loanID, err := parseID(id, "loan")
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLoan(ctx, userID, loanID); err != nil {
		return err
	}

	metrics.LoansDeleted.Inc()
	s.log.WithField("user_id", userID).Infof("Loan deleted: %s", loanID)
	return nil
}

// ListLoanPayments returns the payments of one of the caller's loans, oldest month first
func (s *Service) ListLoanPayments(ctx context.Context, id string) ([]models.Payment, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	loanID, err := parseID(id, "loan")
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListLoanPayments(ctx, userID, loanID)
}

// RepairFirstPayments seeds the first payment of every loan that has none and
// returns how many were created. It is safe to run concurrently with itself.
func (s *Service) RepairFirstPayments(ctx context.Context) (int, error) {
	loans, err := s.repo.ListLoansWithoutPayments(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range loans {
		first := schedule.FirstPayment(&loans[i])
		first.CreatedAt = s.now()
		err := s.repo.CreatePayment(ctx, first)
		if apperr.Is(err, apperr.Conflict) {
			continue
		}
		if err != nil {
			return repaired, err
		}
		repaired++
		metrics.FirstPaymentsRepaired.Inc()
		s.log.WithFields(logrus.Fields{
			"user_id": loans[i].UserID,
			"loan_id": loans[i].ID,
			"month":   first.PaymentMonth.String(),
		}).Warn("Seeded missing first payment")
	}
	return repaired, nil
}
