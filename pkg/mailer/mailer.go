// Package mailer is the outbound email boundary used by notification fan-out.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/config"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	dialer sender
	from   string
}

// NewSMTPMailer builds a mailer from relay settings.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the messages in a single SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	out := make([]*gomail.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.To) == "" {
			continue
		}
		gm := gomail.NewMessage()
		gm.SetHeader("From", m.from)
		gm.SetHeader("To", msg.To)
		gm.SetHeader("Subject", msg.Subject)
		gm.SetBody("text/plain", msg.Body)
		out = append(out, gm)
	}
	if len(out) == 0 {
		return nil
	}
	if err := m.dialer.DialAndSend(out...); err != nil {
		return fmt.Errorf("send %d emails: %w", len(out), err)
	}
	return nil
}
