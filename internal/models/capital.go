package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Capital is a lender's money pool. Only InitialCapital is stored;
// CurrentCapital is recomputed from paid interest on every read.
type Capital struct {
	UserID         uuid.UUID       `json:"-"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CurrentCapital decimal.Decimal `json:"current_capital"`
	UpdatedAt      time.Time       `json:"-"`
}
