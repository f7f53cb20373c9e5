package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// Email is a single outbound message. HTML is optional.
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// Messenger delivers short text messages to a phone number.
type Messenger interface {
	Send(ctx context.Context, phone, body string) error
}

// SMTPSender sends mail through the configured relay using go-mail.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(email.Subject)
	switch {
	case email.HTML != "" && email.Text != "":
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	case email.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
	}
	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(timeout),
	}
	switch s.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.User != "" && s.cfg.Pass != "" {
		opts = append(opts,
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Pass),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}
	return opts
}

// LogSender records email instead of sending it. Used when SMTP is unset.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"to":      strings.Join(email.To, ","),
			"subject": email.Subject,
		})
		s.logg.Info(ctx, "email delivery disabled, message dropped")
	}
	return nil
}

// LogMessenger stands in for an SMS provider.
type LogMessenger struct {
	logg *logger.Logger
}

func NewLogMessenger(logg *logger.Logger) *LogMessenger {
	return &LogMessenger{logg: logg}
}

func (m *LogMessenger) Send(ctx context.Context, phone, body string) error {
	if m.logg != nil {
		ctx = m.logg.WithFields(ctx, map[string]any{"phone": phone, "length": len(body)})
		m.logg.Info(ctx, "text message queued")
	}
	return nil
}

// NewEmailSender picks SMTP when configured and the log sender otherwise.
func NewEmailSender(cfg config.SMTPConfig, logg *logger.Logger) EmailSender {
	if cfg.Enabled() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logg)
}
