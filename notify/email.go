package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ddns-tools/renewer"
)

// EmailConfig holds SMTP delivery settings. Username and Password are
// optional; when empty the message is sent without authentication.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// Email delivers run summaries over SMTP.
type Email struct {
	cfg  EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail returns an SMTP notifier. Host, From, and at least one recipient
// are required.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email notifier: host required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email notifier: from address required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("email notifier: at least one recipient required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Subject == "" {
		cfg.Subject = "Dynamic DNS renewal report"
	}
	return &Email{cfg: cfg, send: smtp.SendMail}, nil
}

// Notify implements the engine's Notifier interface.
func (e *Email) Notify(ctx context.Context, result *renewer.RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", e.cfg.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(Render(result))

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("email notifier: %w", err)
	}
	return nil
}
