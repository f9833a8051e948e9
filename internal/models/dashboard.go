package models

import "github.com/shopspring/decimal"

// Dashboard summarizes a lender's capital and earnings
type Dashboard struct {
	InitialCapital      decimal.Decimal   `json:"initial_capital"`
	CurrentCapital      decimal.Decimal   `json:"current_capital"`
	AvailableCapital    decimal.Decimal   `json:"available_capital"` // CurrentCapital - TotalLent
	TotalLent           decimal.Decimal   `json:"total_lent"`
	TotalInterestEarned decimal.Decimal   `json:"total_interest_earned"`
	GrowthPercent       decimal.Decimal   `json:"growth_percent"`
	MonthlyEarnings     []MonthlyEarnings `json:"monthly_earnings"`
}

// MonthlyEarnings is the paid interest of one calendar month
type MonthlyEarnings struct {
	Month      string          `json:"month"` // YYYY-MM
	MonthLabel string          `json:"month_label"`
	Earnings   decimal.Decimal `json:"earnings"`
}

// ReferenceRate is the central bank key rate and its monthly equivalent
type ReferenceRate struct {
	AnnualRate  decimal.Decimal `json:"annual_rate"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
}

// Upload describes a stored collateral image
type Upload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}
