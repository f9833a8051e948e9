// Package jobs runs the periodic maintenance work of the service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/metrics"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 5 * time.Minute

// Loans is the part of the service the jobs drive.
type Loans interface {
	DuePayments(ctx context.Context) ([]models.DuePayment, error)
	RepairFirstPayments(ctx context.Context) (int, error)
}

// Mailer delivers due-payment digests.
type Mailer interface {
	SendDueDigest(to string, due []models.DuePayment) error
}

// Jobs holds the reminder and repair jobs
type Jobs struct {
	loans  Loans
	mailer Mailer
	log    *logrus.Logger
}

// New creates the jobs. A nil mailer disables reminders.
func New(loans Loans, mailer Mailer, log *logrus.Logger) *Jobs {
	return &Jobs{loans: loans, mailer: mailer, log: log}
}

// SendReminders mails every lender one digest of their due payments and
// returns the number of mails sent. A failed mail does not stop the others.
func (j *Jobs) SendReminders(ctx context.Context) (int, error) {
	if j.mailer == nil {
		j.log.Info("Reminders disabled: no SMTP host configured")
		return 0, nil
	}

	due, err := j.loans.DuePayments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list due payments: %w", err)
	}

	var lenders []string
	byLender := make(map[string][]models.DuePayment)
	for _, p := range due {
		if _, ok := byLender[p.LenderEmail]; !ok {
			lenders = append(lenders, p.LenderEmail)
		}
		byLender[p.LenderEmail] = append(byLender[p.LenderEmail], p)
	}

	sent := 0
	var firstErr error
	for _, lender := range lenders {
		if err := j.mailer.SendDueDigest(lender, byLender[lender]); err != nil {
			j.log.WithField("lender", lender).Errorf("Reminder not sent: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
		metrics.RemindersSent.Inc()
	}
	j.log.Infof("Reminders sent: %d of %d", sent, len(lenders))
	return sent, firstErr
}

// Repair seeds missing first payments
func (j *Jobs) Repair(ctx context.Context) (int, error) {
	n, err := j.loans.RepairFirstPayments(ctx)
	if err != nil {
		return n, fmt.Errorf("failed to repair first payments: %w", err)
	}
	if n > 0 {
		j.log.Warnf("Repaired %d loan(s) without a first payment", n)
	}
	return n, nil
}

// Start schedules both jobs and starts the cron runner. Call Stop on the
// result to shut it down.
func (j *Jobs) Start(cfg config.JobsConfig) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cfg.ReminderSchedule, j.wrap("remind", j.SendReminders)); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.ReminderSchedule, err)
	}
	if _, err := c.AddFunc(cfg.RepairSchedule, j.wrap("repair", j.Repair)); err != nil {
		return nil, fmt.Errorf("invalid repair schedule %q: %w", cfg.RepairSchedule, err)
	}
	c.Start()
	j.log.Infof("Jobs scheduled: remind=%q repair=%q", cfg.ReminderSchedule, cfg.RepairSchedule)
	return c, nil
}

func (j *Jobs) wrap(name string, run func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := run(ctx); err != nil {
			j.log.WithField("job", name).Errorf("Job failed: %v", err)
		}
	}
}
