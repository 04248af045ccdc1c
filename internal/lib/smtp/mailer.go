package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

// DefaultTimeout ограничивает всю SMTP-сессию одного письма.
const DefaultTimeout = 10 * time.Second

// session команды SMTP, нужные для доставки одного письма. *smtp.Client
// реализует его без обертки.
type session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer отправляет письма от имени cfg.User через сервер из конфигурации.
type Mailer struct {
	cfg     config.SMTP
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
	dial    func(ctx context.Context) (session, error)
}

// NewMailer создает Mailer.
func NewMailer(cfg config.SMTP, log *slog.Logger) *Mailer {
	m := &Mailer{
		cfg:     cfg,
		log:     log,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	m.dial = m.connect
	return m
}

// Send доставляет письмо всем адресатам в одной SMTP-сессии.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	const op = "smtp.Send"

	if err := msg.validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.Close()

	if err := s.Mail(m.cfg.User); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	for _, to := range msg.To {
		if err := s.Rcpt(to); err != nil {
			return fmt.Errorf("%s: rcpt to %s: %w", op, to, err)
		}
	}

	w, err := s.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err := w.Write(msg.Bytes(m.cfg.User, m.now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: finish data: %w", op, err)
	}
	if err := s.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}

	m.log.Debug("email delivered", slog.Any("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// connect открывает сессию: TCP, STARTTLS и, если задан пароль, PLAIN-аутентификация.
func (m *Mailer) connect(ctx context.Context) (session, error) {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		_ = client.Close()
		return nil, errors.New("smtp server does not support STARTTLS")
	}
	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to start TLS: %w", err)
	}

	if m.cfg.Pass != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	return client, nil
}
