package service

import (
	"fmt"
	"log"

	"github.com/contactkeeper/backend/internal/config"
	"gopkg.in/gomail.v2"
)

type MailerService interface {
	// SendConfirmation sends the account-confirmation email carrying the
	// signed email token as a link.
	SendConfirmation(to, username, token string) error
}

type smtpMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

// NewSMTPMailer builds a gomail-backed mailer. When no mail host is
// configured it returns a no-op mailer that only logs, so development
// environments work without an SMTP server.
func NewSMTPMailer(cfg *config.Config) MailerService {
	if cfg.MailHost == "" {
		log.Println("WARNING: MAIL_HOST is not set, confirmation emails will not be sent")
		return &noopMailer{}
	}

	return &smtpMailer{
		dialer:  gomail.NewDialer(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword),
		from:    cfg.MailFrom,
		baseURL: cfg.BaseURL,
	}
}

func (m *smtpMailer) SendConfirmation(to, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/confirmed_email/%s", m.baseURL, token)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Confirm your email")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Please confirm your email address by following <a href=%q>this link</a>.</p><p>The link expires in 24 hours.</p>",
		username, link,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email to %s: %w", to, err)
	}

	return nil
}

type noopMailer struct{}

func (m *noopMailer) SendConfirmation(to, username, token string) error {
	log.Printf("mailer disabled, skipping confirmation email for %s", to)
	return nil
}
