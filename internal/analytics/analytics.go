// Package analytics derives capital and earnings figures from stored loans
// and payments.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// TotalInterestEarned sums interest over paid payments.
func TotalInterestEarned(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.WasPaid {
			total = total.Add(p.InterestEarned)
		}
	}
	return total
}

// TotalLent sums the principal of active loans.
func TotalLent(loans []models.Loan) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.Status == models.LoanActive {
			total = total.Add(l.PrincipalAmount)
		}
	}
	return total
}

// CurrentCapital is initial capital plus every interest payment collected.
func CurrentCapital(initial decimal.Decimal, payments []models.Payment) decimal.Decimal {
	return initial.Add(TotalInterestEarned(payments))
}

// MonthlyEarnings groups paid payments by calendar month, oldest first,
// keeping only the most recent limit months. limit <= 0 keeps all.
func MonthlyEarnings(payments []models.Payment, limit int) []models.MonthlyEarnings {
	byMonth := make(map[models.Date]decimal.Decimal)
	for _, p := range payments {
		if !p.WasPaid {
			continue
		}
		key := models.Date{Year: p.PaymentMonth.Year, Month: p.PaymentMonth.Month, Day: 1}
		byMonth[key] = byMonth[key].Add(p.InterestEarned)
	}

	months := make([]models.Date, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	if limit > 0 && len(months) > limit {
		months = months[len(months)-limit:]
	}

	out := make([]models.MonthlyEarnings, 0, len(months))
	for _, m := range months {
		out = append(out, models.MonthlyEarnings{
			Month:      m.Time().Format("2006-01"),
			MonthLabel: m.Time().Format("Jan 2006"),
			Earnings:   byMonth[m].Round(2),
		})
	}
	return out
}

// Compute builds the dashboard. Capital figures always cover the full payment
// history; chartMonths only bounds the earnings series.
func Compute(capital *models.Capital, loans []models.Loan, payments []models.Payment, chartMonths int) *models.Dashboard {
	initial := decimal.Zero
	if capital != nil {
		initial = capital.InitialCapital
	}
	earned := TotalInterestEarned(payments)
	current := initial.Add(earned)
	lent := TotalLent(loans)

	growth := decimal.Zero
	if initial.IsPositive() {
		growth = earned.Div(initial).Mul(hundred).Round(2)
	}

	return &models.Dashboard{
		InitialCapital:      initial,
		CurrentCapital:      current,
		AvailableCapital:    current.Sub(lent),
		TotalLent:           lent,
		TotalInterestEarned: earned,
		GrowthPercent:       growth,
		MonthlyEarnings:     MonthlyEarnings(payments, chartMonths),
	}
}
