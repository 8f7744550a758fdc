// Package mailer delivers password-reset links over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"
)

const resetSubject = "Password recovery"

type Sender interface {
	SendPasswordReset(ctx context.Context, to, username, link string) error
}

type Config struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	From     string
}

type SMTP struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTP {
	return &SMTP{cfg: cfg}
}

func (s *SMTP) SendPasswordReset(ctx context.Context, to, username, link string) error {
	msg, err := resetMessage(s.cfg.From, to, username, link)
	if err != nil {
		return err
	}

	policy := mail.NoTLS
	if s.cfg.UseTLS {
		policy = mail.TLSMandatory
	}
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(policy),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func resetMessage(from, to, username, link string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(resetSubject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, resetBody(username, link))
	return m, nil
}

func resetBody(username, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", username)
	b.WriteString("You received this email because a password reset was requested for your account.\n\n")
	b.WriteString("Open the following link to choose a new password:\n")
	b.WriteString(link)
	b.WriteString("\n\nThe link expires in 15 minutes. If you did not request it, you can ignore this email.\n")
	return b.String()
}

// ResetLink builds the front-end URL that carries a reset token.
func ResetLink(frontendBaseURL, token string) string {
	base := strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}
