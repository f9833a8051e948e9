// Package schedule holds the interest and calendar rules that drive a loan's
// monthly payment records. Everything here is pure; persistence lives in the
// service layer.
package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MonthlyInterest returns principal * ratePercent / 100 rounded to cents.
// The rate applies to the original principal every month; nothing compounds.
func MonthlyInterest(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(ratePercent).Div(hundred).Round(2)
}

// MonthStart returns the first day of d's month.
func MonthStart(d models.Date) models.Date {
	return models.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// NextPaymentMonth returns the first day of the month after month.
func NextPaymentMonth(month models.Date) models.Date {
	return models.NewDate(month.Year, month.Month+1, 1)
}

// FirstPaymentMonth returns the first day of the month following the loan
// start date, e.g. 2025-03-15 -> 2025-04-01.
func FirstPaymentMonth(start models.Date) models.Date {
	return NextPaymentMonth(start)
}

// FirstPayment builds the pending payment seeded when a loan is created.
func FirstPayment(loan *models.Loan) *models.Payment {
	return newPending(loan, FirstPaymentMonth(loan.StartDate))
}

// Successor builds the pending payment for the month after p. It reports
// false when p is not paid, since only a settled month advances the schedule.
func Successor(p *models.Payment, loan *models.Loan) (*models.Payment, bool) {
	if !p.WasPaid {
		return nil, false
	}
	return newPending(loan, NextPaymentMonth(p.PaymentMonth)), true
}

// Settle moves p to the paid or pending state. It reports whether the state
// changed; paying stamps PaymentDate with now, reverting clears it.
func Settle(p *models.Payment, paid bool, now time.Time) bool {
	if p.WasPaid == paid {
		return false
	}
	p.WasPaid = paid
	if paid {
		ts := now
		p.PaymentDate = &ts
	} else {
		p.PaymentDate = nil
	}
	return true
}

func newPending(loan *models.Loan, month models.Date) *models.Payment {
	return &models.Payment{
		ID:             uuid.New(),
		UserID:         loan.UserID,
		LoanID:         loan.ID,
		ClientName:     loan.ClientName,
		PaymentMonth:   month,
		InterestEarned: MonthlyInterest(loan.PrincipalAmount, loan.InterestRate),
	}
}
