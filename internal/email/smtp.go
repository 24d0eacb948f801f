// Package email envía notificaciones operativas por SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// Sender envía un email con cuerpo de texto y HTML opcional.
type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// SMTPConfig agrupa los parámetros del servidor SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	User               string
	Password           string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// SMTPSender implementa Sender usando go-mail.
type SMTPSender struct {
	cfg  SMTPConfig
	dial func(d *mail.Dialer, m ...*mail.Message) error
}

// NewSMTPSender valida la configuración mínima (host y from).
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("email: smtp host and from are required")
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	return &SMTPSender{
		cfg:  cfg,
		dial: func(d *mail.Dialer, m ...*mail.Message) error { return d.DialAndSend(m...) },
	}, nil
}

func (s *SMTPSender) message(to, subject, textBody, htmlBody string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// multipart/alternative (txt + html) cuando hay ambos
	switch {
	case textBody != "" && htmlBody != "":
		m.SetBody("text/plain", textBody)
		m.AddAlternative("text/html", htmlBody)
	case htmlBody != "":
		m.SetBody("text/html", htmlBody)
	default:
		m.SetBody("text/plain", textBody)
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	default:
		// "auto": go-mail negocia STARTTLS si el server lo ofrece
	}
	return d
}

// Send envía el mensaje. El ctx solo se usa para el logger (go-mail no acepta contexto).
func (s *SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	log := logger.From(ctx).With(
		logger.Component("email.smtp"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
		logger.Email(to),
	)

	if err := s.dial(s.dialer(), s.message(to, subject, textBody, htmlBody)); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("email sent", logger.String("subject", subject))
	return nil
}
