package enquiry

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a plain-text notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
	logger *slog.Logger
}

func NewSMTPMailer(opts SMTPOptions, logger *slog.Logger) (*SMTPMailer, error) {
	if opts.Host == "" || opts.Port == 0 || opts.From == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender address must be configured")
	}
	d := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	d.TLSConfig = &tls.Config{ServerName: opts.Host, MinVersion: tls.VersionTLS12}
	if opts.Port == 465 {
		d.SSL = true
	}
	return &SMTPMailer{from: opts.From, dialer: d, logger: logger}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("email send cancelled", "to", to, "subject", subject, "error", ctx.Err())
		return fmt.Errorf("email send cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email not sent, no SMTP relay configured", "to", to, "subject", subject, "body", body)
	return nil
}
