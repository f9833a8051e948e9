// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration is labelled by route template, method and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loantracker_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "code"})

	LoansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loantracker_loans_created_total",
		Help: "Loans created together with their first payment.",
	})

	LoansDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loantracker_loans_deleted_total",
		Help: "Loans deleted with their payments.",
	})

	// PaymentTransitions counts settled state changes, labelled "paid" or "pending".
	PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loantracker_payment_transitions_total",
		Help: "Payment state changes.",
	}, []string{"to"})

	// SuccessorPayments counts successor generation outcomes: "created" or "existing".
	SuccessorPayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loantracker_successor_payments_total",
		Help: "Next-month payment generation outcomes.",
	}, []string{"outcome"})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loantracker_reminders_sent_total",
		Help: "Due-payment reminder mails sent.",
	})

	FirstPaymentsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loantracker_first_payments_repaired_total",
		Help: "First payments seeded for loans that had none.",
	})
)
