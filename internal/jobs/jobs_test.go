package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/models"
)

type fakeLoans struct {
	due      []models.DuePayment
	repaired int
	err      error
}

func (f *fakeLoans) DuePayments(context.Context) ([]models.DuePayment, error) {
	return f.due, f.err
}

func (f *fakeLoans) RepairFirstPayments(context.Context) (int, error) {
	return f.repaired, f.err
}

type fakeMailer struct {
	sent map[string]int
	fail string
}

func (m *fakeMailer) SendDueDigest(to string, due []models.DuePayment) error {
	if to == m.fail {
		return errors.New("smtp down")
	}
	m.sent[to] += len(due)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func due(email, client string, month time.Month) models.DuePayment {
	return models.DuePayment{
		Payment:     models.Payment{ClientName: client, PaymentMonth: models.NewDate(2025, month, 1)},
		LenderEmail: email,
	}
}

func TestSendReminders_OneDigestPerLender(t *testing.T) {
	loans := &fakeLoans{due: []models.DuePayment{
		due("a@example.com", "Ana", time.April),
		due("a@example.com", "Boris", time.April),
		due("b@example.com", "Vera", time.May),
	}}
	mailer := &fakeMailer{sent: map[string]int{}}

	n, err := New(loans, mailer, quietLogger()).SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]int{"a@example.com": 2, "b@example.com": 1}, mailer.sent)
}

func TestSendReminders_ContinuesAfterFailure(t *testing.T) {
	loans := &fakeLoans{due: []models.DuePayment{
		due("a@example.com", "Ana", time.April),
		due("b@example.com", "Vera", time.May),
	}}
	mailer := &fakeMailer{sent: map[string]int{}, fail: "a@example.com"}

	n, err := New(loans, mailer, quietLogger()).SendReminders(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, mailer.sent["b@example.com"])
}

func TestSendReminders_DisabledWithoutMailer(t *testing.T) {
	loans := &fakeLoans{err: errors.New("must not be called")}

	n, err := New(loans, nil, quietLogger()).SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepair(t *testing.T) {
	n, err := New(&fakeLoans{repaired: 3}, nil, quietLogger()).Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = New(&fakeLoans{err: errors.New("db down")}, nil, quietLogger()).Repair(context.Background())
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	j := New(&fakeLoans{}, nil, quietLogger())

	c, err := j.Start(config.JobsConfig{ReminderSchedule: "0 8 * * *", RepairSchedule: "@hourly"})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
	c.Stop()

	_, err = j.Start(config.JobsConfig{ReminderSchedule: "every day", RepairSchedule: "@hourly"})
	assert.Error(t, err)
}
