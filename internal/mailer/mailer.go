// Package mailer delivers one-time verification and reset codes over SMTP.
package mailer

import (
	"fmt"

	"gopkg.in/mail.v2"

	"github.com/arashthr/markcentral/internal/config"
)

const DefaultSender = "no-reply@markcentral.app"

type EmailService struct {
	Sender string
	dialer *mail.Dialer
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	sender := cfg.Sender
	if sender == "" {
		sender = DefaultSender
	}
	return &EmailService{
		Sender: sender,
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendCode emails the code for the given kind ("verification" or "reset").
func (es *EmailService) SendCode(to, kind, code string) error {
	subject := "Your verification code"
	if kind == "reset" {
		subject = "Your password reset code"
	}
	plaintext := fmt.Sprintf("Your %s code is %s. It expires in 15 minutes.", kind, code)
	html := fmt.Sprintf("<p>Your %s code is <strong>%s</strong>. It expires in 15 minutes.</p>", kind, code)

	msg := mail.NewMessage()
	msg.SetHeader("From", es.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plaintext)
	msg.AddAlternative("text/html", html)
	if err := es.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s code email: %w", kind, err)
	}
	return nil
}
