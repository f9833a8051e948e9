package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg config.SMTPConfig, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendDueDigest mails a lender the list of interest payments still waiting
// to be collected.
func (s *Sender) SendDueDigest(to string, due []models.DuePayment) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("%d interest payment(s) awaiting collection", len(due))
	e.Text = []byte(DigestBody(due))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// DigestBody renders the plain text body of a due-payment digest
func DigestBody(due []models.DuePayment) string {
	var b strings.Builder
	b.WriteString("Hello,\n\nThe following interest payments have not been marked as collected yet:\n\n")

	total := decimal.Zero
	for _, p := range due {
		fmt.Fprintf(&b, "  %s  %-24s %12s\n", p.PaymentMonth.Time().Format("Jan 2006"), p.ClientName, p.InterestEarned.StringFixed(2))
		total = total.Add(p.InterestEarned)
	}
	fmt.Fprintf(&b, "\nTotal outstanding: %s\n", total.StringFixed(2))
	b.WriteString("\nBest regards,\nLoan Tracker")
	return b.String()
}
