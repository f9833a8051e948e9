package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/metrics"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/repository"
	"github.com/Dan9191/loan-tracker/internal/schedule"
)

// ListPayments returns all of the caller's payments, newest month first
func (s *Service) ListPayments(ctx context.Context) ([]models.Payment, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, userID)
}

// SetPaymentStatus toggles a payment when paid is nil, otherwise moves it to
// the given state. Whenever the payment ends up paid the next month's
// payment is ensured. Repeating a call with an explicit state is a no-op.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, paid *bool) (*models.Payment, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	paymentID, err := parseID(id, "payment")
	if err != nil {
		return nil, err
	}

	var (
		result    *models.Payment
		changed   bool
		successor string
	)
	err = s.repo.InTx(ctx, func(tx repository.Storage) error {
		p, err := tx.GetPayment(ctx, userID, paymentID)
		if err != nil {
			return err
		}

		target := !p.WasPaid
		if paid != nil {
			target = *paid
		}

		from := p.WasPaid
		changed = schedule.Settle(p, target, s.now())
		if changed {
			ok, err := tx.SetPaymentPaid(ctx, userID, p.ID, from, target, p.PaymentDate)
			if err != nil {
				return err
			}
			if !ok {
				if paid == nil {
					return apperr.New(apperr.Conflict, "payment was changed concurrently, reload and retry")
				}
				if p, err = tx.GetPayment(ctx, userID, paymentID); err != nil {
					return err
				}
				if p.WasPaid != target {
					return apperr.New(apperr.Conflict, "payment was changed concurrently, reload and retry")
				}
				changed = false
			}
		}

		if p.WasPaid {
			if successor, err = s.ensureSuccessor(ctx, tx, p); err != nil {
				return err
			}
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"user_id": userID, "payment_id": result.ID, "was_paid": result.WasPaid}
	if changed {
		metrics.PaymentTransitions.WithLabelValues(stateLabel(result.WasPaid)).Inc()
		s.log.WithFields(fields).Info("Payment status changed")
	}
	if successor != "" {
		metrics.SuccessorPayments.WithLabelValues(successor).Inc()
		s.log.WithFields(fields).Debugf("Successor payment %s", successor)
	}
	return result, nil
}

// ensureSuccessor inserts the pending payment for the month after p unless it
// exists. It reports "created" or "existing".
func (s *Service) ensureSuccessor(ctx context.Context, tx repository.Storage, p *models.Payment) (string, error) {
	loan, err := tx.GetLoan(ctx, p.UserID, p.LoanID)
	if err != nil {
		return "", err
	}
	next, ok := schedule.Successor(p, loan)
	if !ok {
		return "", nil
	}
	next.CreatedAt = s.now()

	err = tx.CreatePayment(ctx, next)
	if apperr.Is(err, apperr.Conflict) {
		return "existing", nil
	}
	if err != nil {
		return "", err
	}
	return "created", nil
}

// DuePayments lists pending payments of all lenders whose month has started.
func (s *Service) DuePayments(ctx context.Context) ([]models.DuePayment, error) {
	return s.repo.ListDuePayments(ctx, schedule.MonthStart(models.DateOf(s.now())))
}

func stateLabel(paid bool) string {
	if paid {
		return "paid"
	}
	return "pending"
}
