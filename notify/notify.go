// Package notify sends user notifications such as security notices.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
)

// Message is one email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops messages. Used when no SMTP host is configured.
type NoopSender struct{}

var _ Sender = NoopSender{}

func (NoopSender) Send(ctx context.Context, msg Message) error {
	logger.From(ctx).Debug().Str("subject", msg.Subject).Msg("notification dropped, no sender configured")
	return nil
}

// Dialer is the part of *mail.Dialer SMTPSender uses.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender sends through an SMTP relay with go-mail.
type SMTPSender struct {
	from   string
	dialer Dialer
}

var _ Sender = (*SMTPSender)(nil)

type SMTPOption func(*SMTPSender)

// WithDialer replaces the SMTP dialer.
func WithDialer(d Dialer) SMTPOption {
	return func(s *SMTPSender) {
		s.dialer = d
	}
}

func NewSMTPSender(host string, port int, account, password, from string, opts ...SMTPOption) *SMTPSender {
	d := mail.NewDialer(host, port, account, password)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	d.Timeout = 10 * time.Second

	s := &SMTPSender{from: from, dialer: d}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("[SMTPSender.Send] %w", err)
	}
	logger.From(ctx).Info().Str("subject", msg.Subject).Msg("notification sent")
	return nil
}

// PasswordChanged is the security notice sent after a password change.
func PasswordChanged(to, appName string) Message {
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("%s: your password was changed", appName),
		TextBody: "The password for your account was just changed. If this was not you, reset your password immediately.",
		HTMLBody: "<p>The password for your account was just changed.</p><p>If this was not you, reset your password immediately.</p>",
	}
}
