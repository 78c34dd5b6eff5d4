// Package email enqueues transactional notifications — verification links,
// password-reset links, and account-security notices — fire-and-forget, so
// a slow or unreachable SMTP relay never blocks an API request.
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mrjackwills/mealpedant/internal/logger"
)

// Config carries the EMAIL_* environment variables (spec §6).
type Config struct {
	Host    string
	Port    int
	Name    string
	Address string
	Pass    string
}

// Template identifies which body/subject pair to render, mirroring the
// source's EmailTemplate enum.
type Template int

const (
	TemplateVerify Template = iota
	TemplatePasswordResetRequested
	TemplatePasswordChanged
	TemplateAccountLocked
	TemplateTwoFAEnabled
	TemplateTwoFADisabled
	TemplateTwoFABackupDisabled
)

// Mailer sends templated notifications over SMTP; it never returns an error
// to its caller's request path because every call site treats email as a
// background side effect rather than the operation's success criterion.
type Mailer struct {
	cfg Config
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send renders template for fullName/toAddress and dispatches it in its own
// goroutine, logging (not propagating) any delivery failure — the same
// "enqueue and move on" contract the source's `Email::new(...).send()` has.
func (m *Mailer) Send(fullName, toAddress string, template Template, payload string) {
	subject, body := render(template, fullName, payload)
	go func() {
		if err := m.deliver(toAddress, subject, body); err != nil {
			logger.Email().Error().Err(err).Str("to", toAddress).Int("template", int(template)).Msg("email delivery failed")
		}
	}()
}

func render(template Template, fullName, payload string) (subject, body string) {
	switch template {
	case TemplateVerify:
		return "Verify your account", fmt.Sprintf("Hi %s,\n\nVerify your account: %s\n", fullName, payload)
	case TemplatePasswordResetRequested:
		return "Password reset requested", fmt.Sprintf("Hi %s,\n\nReset your password: %s\n", fullName, payload)
	case TemplatePasswordChanged:
		return "Password changed", fmt.Sprintf("Hi %s,\n\nYour password was just changed. If this wasn't you, contact support immediately.\n", fullName)
	case TemplateAccountLocked:
		return "Account locked", fmt.Sprintf("Hi %s,\n\nYour account has been locked after repeated failed signin attempts.\n", fullName)
	case TemplateTwoFAEnabled:
		return "Two-factor authentication enabled", fmt.Sprintf("Hi %s,\n\nTwo-factor authentication is now enabled on your account.\n", fullName)
	case TemplateTwoFADisabled:
		return "Two-factor authentication disabled", fmt.Sprintf("Hi %s,\n\nTwo-factor authentication has been disabled on your account.\n", fullName)
	case TemplateTwoFABackupDisabled:
		return "Two-factor backup codes cleared", fmt.Sprintf("Hi %s,\n\nYour two-factor backup codes have been cleared.\n", fullName)
	default:
		return "Notification", fmt.Sprintf("Hi %s,\n", fullName)
	}
}

func (m *Mailer) deliver(to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", m.cfg.Name, m.cfg.Address)
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	var msg strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, v)
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Address, m.cfg.Pass, m.cfg.Host)

	if m.cfg.Port == 587 {
		return m.sendTLS(addr, auth, m.cfg.Address, []string{to}, []byte(msg.String()))
	}
	return smtp.SendMail(addr, auth, m.cfg.Address, []string{to}, []byte(msg.String()))
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, body []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("email: dial: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("email: starttls: %w", err)
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("email: auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("email: rcpt to: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	defer w.Close()
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("email: write body: %w", err)
	}
	return nil
}
