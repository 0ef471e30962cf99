package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/logger"
)

// Mailer sends transactional email. Delivery is best-effort; callers must
// not fail their own work when a send errors.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpMailer struct {
	cfg  config.MailConfig
	logg *logger.Logger
}

// NewSMTP builds an SMTP-backed mailer. With no host configured it degrades
// to a no-op that logs the skipped send, which keeps dev environments quiet.
func NewSMTP(cfg config.MailConfig, logg *logger.Logger) Mailer {
	return &smtpMailer{cfg: cfg, logg: logg}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient required")
	}
	if m.cfg.Host == "" {
		if m.logg != nil {
			m.logg.Info(m.logg.WithFields(ctx, map[string]any{"to": to, "subject": subject}), "smtp not configured, skipping email")
		}
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithFields(ctx, map[string]any{"to": to, "subject": subject}), "email sent")
	}
	return nil
}
