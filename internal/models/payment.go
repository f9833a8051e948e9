package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the monthly interest obligation of a loan. PaymentMonth is
// always the first day of a month; one payment exists per loan and month.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"-"`
	LoanID         uuid.UUID       `json:"loan_id"`
	ClientName     string          `json:"client_name"`
	PaymentMonth   Date            `json:"payment_month"`
	InterestEarned decimal.Decimal `json:"interest_earned"`
	WasPaid        bool            `json:"was_paid"`
	PaymentDate    *time.Time      `json:"payment_date"`
	CreatedAt      time.Time       `json:"-"`
}

// DuePayment is a pending payment joined with its lender, used for reminders.
type DuePayment struct {
	Payment
	LenderEmail string
}
