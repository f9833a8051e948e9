package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
)

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	return s == LoanActive || s == LoanCompleted
}

// Loan represents money lent to a client. InterestRate is a flat percentage
// of the principal charged every month.
type Loan struct {
	ID                   uuid.UUID       `json:"id"`
	UserID               uuid.UUID       `json:"-"`
	ClientID             uuid.UUID       `json:"client_id"`
	ClientName           string          `json:"client_name"`
	PrincipalAmount      decimal.Decimal `json:"principal_amount"`
	InterestRate         decimal.Decimal `json:"interest_rate"`
	StartDate            Date            `json:"start_date"`
	PaymentFrequencyDays int             `json:"payment_frequency_days"`
	Status               LoanStatus      `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewLoan is the raw input of loan creation. Numbers are kept as text so
// that validation can report which field is malformed.
type NewLoan struct {
	ClientID             string
	PrincipalAmount      string
	InterestRate         string
	StartDate            string
	PaymentFrequencyDays string
}
