package contact

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/isepctf/ctfportal/internal/model"
)

// Mailer forwards contact messages to the organisers
type Mailer interface {
	Send(ctx context.Context, msg *model.ContactMessage) error
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the envelope sender; To is the organisers' inbox
	From string
	To   string
}

// SMTPMailer delivers messages over SMTP
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

// NewSMTPMailer creates a mailer that dials the server for each message
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg *model.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.build(msg)); err != nil {
		return fmt.Errorf("sending contact mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg *model.ContactMessage) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", m.to)
	out.SetAddressHeader("Reply-To", msg.Email, msg.Name)
	out.SetHeader("Subject", "Contact form: "+msg.Name)
	out.SetDateHeader("Date", msg.ReceivedAt)
	out.SetBody("text/plain", fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Message))
	return out
}

// LogMailer records messages in the log instead of sending them
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer for deployments without SMTP
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg *model.ContactMessage) error {
	m.logger.InfoContext(ctx, "contact message received",
		slog.String("message_id", msg.ID),
		slog.String("from", msg.Email))
	return nil
}
