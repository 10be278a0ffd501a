package notify

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// Mailer sends plain-text transactional mail over SMTP.
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// buildMessage assembles the wire message. Headers are written in a fixed
// order so identical input yields an identical message.
func (m *Mailer) buildMessage(to, subject, body string) string {
	headers := []struct {
		key, value string
	}{
		{"From", fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromEmail)},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h.key, h.value))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// Send delivers one plain-text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m == nil || m.cfg.Host == "" {
		return fmt.Errorf("mail relay not configured")
	}
	if to == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := m.buildMessage(to, subject, body)

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	if !m.cfg.UseTLS {
		return smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{to}, []byte(msg))
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.cfg.FromEmail); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
