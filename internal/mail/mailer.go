// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package mail delivers outbound email over SMTP.
package mail

import (
	"context"

	gomail "github.com/wneessen/go-mail"

	"github.com/samber/oops"
)

// DefaultSender is the From header used when the config leaves it empty.
const DefaultSender = `"Quillboard" <noreply@quillboard.app>`

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay using go-mail.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates a mailer for the given SMTP relay. Credentials are
// optional; without a username the client connects unauthenticated, which
// suits local catch-all relays in development.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}

	opts := []gomail.Option{
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Port != 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CLIENT_FAILED").
			With("host", cfg.Host).
			Wrap(err)
	}

	from := cfg.From
	if from == "" {
		from = DefaultSender
	}

	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers an HTML message and returns its Message-ID.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").
			With("operation", "set from").
			Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").
			With("operation", "set recipient").
			Wrap(err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").
			With("operation", "dial and send").
			Wrap(err)
	}

	return msg.GetMessageID(), nil
}
