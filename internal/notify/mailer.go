// Package notify sends outbound email notifications off the request path.
package notify

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	// Attachment is an optional path to an image embedded inline in the body.
	Attachment string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage builds the email sent after a successful signup.
func WelcomeMessage(to, attachment string) Message {
	body := "<p>Welcome to the community of car lovers</p>"
	if attachment != "" {
		body += fmt.Sprintf(`<img src="cid:%s" alt="Logo" width="1200" height="800">`, filepath.Base(attachment))
	}
	return Message{
		To:         to,
		Subject:    "Welcome",
		HTMLBody:   body,
		Attachment: attachment,
	}
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail over SMTPS with plain authentication.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates a new SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send dials the server and delivers msg. A new connection is used per message.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()
	if err := email.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	if msg.Attachment != "" {
		email.EmbedFile(msg.Attachment)
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, email)
}

// LogMailer only logs messages. It is used when no SMTP host is configured.
type LogMailer struct{}

// Send logs the message envelope.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Mail delivery disabled, message not sent")
	return nil
}
