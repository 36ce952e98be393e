package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// EmailSender delivers notifications over SMTP, one connection per message.
type EmailSender struct {
	client *mail.Client
	from   string
}

func NewEmailSender(cfg SMTPConfig) (*EmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't create smtp client: %w", err)
	}

	return &EmailSender{
		client: client,
		from:   cfg.From,
	}, nil
}

func (s *EmailSender) compose(email models.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)
	return msg, nil
}

func (s *EmailSender) Send(ctx context.Context, email models.Email) error {
	msg, err := s.compose(email)
	if err != nil {
		return err
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

// LogSender only logs notifications. Used when no SMTP server is configured.
type LogSender struct {
	logger logrus.FieldLogger
}

func NewLogSender(logger logrus.FieldLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, email models.Email) error {
	s.logger.
		WithField("to", email.To).
		WithField("subject", email.Subject).
		Info(email.Body)
	return nil
}
