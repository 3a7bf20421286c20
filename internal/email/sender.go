// Package email provides outbound email delivery for the application.
package email

import (
	"context"

	"leadflow_backend/platform/config"
)

// Sender delivers application emails.
type Sender interface {
	SendMagicLinkEmail(ctx context.Context, toEmail, loginURL string) error
}

// NoopSender is used when email delivery is disabled. Links still appear in
// the server log so local development works without an SMTP server.
type NoopSender struct{}

func (NoopSender) SendMagicLinkEmail(ctx context.Context, toEmail, loginURL string) error {
	return nil
}

// NewSender constructs the configured Sender implementation.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
