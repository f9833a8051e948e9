package service

import (
	"context"

	"github.com/Dan9191/loan-tracker/internal/analytics"
	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// GetCapital returns the caller's capital with the current value derived
// from every paid payment.
func (s *Service) GetCapital(ctx context.Context) (*models.Capital, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	capital, err := s.repo.GetCapital(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	capital.CurrentCapital = analytics.CurrentCapital(capital.InitialCapital, payments)
	return capital, nil
}

// UpdateInitialCapital sets the caller's starting capital
func (s *Service) UpdateInitialCapital(ctx context.Context, amount string) (*models.Capital, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	value, err := parseDecimal(amount, "initial_capital")
	if err != nil {
		return nil, err
	}
	if value.IsNegative() {
		return nil, apperr.New(apperr.Validation, "initial_capital must not be negative")
	}
	if err := checkPrecision(value, "initial_capital", moneyScale, moneyLimit); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInitialCapital(ctx, userID, value, s.now()); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", userID).Infof("Initial capital set to %s", value.StringFixed(2))
	return s.GetCapital(ctx)
}

// Dashboard aggregates capital, lending and earnings for the caller
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	capital, err := s.repo.GetCapital(ctx, userID)
	if err != nil {
		return nil, err
	}
	loans, err := s.repo.ListLoans(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.Compute(capital, loans, payments, s.chartMonths), nil
}
