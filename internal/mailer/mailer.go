// Package mailer delivers OTP verification emails over SMTP.
package mailer

import (
	"fmt"

	"kylas-whatsapp-bridge/internal/config"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	host string
	port int
	user string
	pass string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.EmailHost,
		port: cfg.EmailPort,
		user: cfg.EmailUser,
		pass: cfg.EmailPass,
	}
}

// SendOTP mails a one-time password to the recipient.
func (m *Mailer) SendOTP(to, otp string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.user, "Wapiy Verification")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your OTP Code")
	msg.SetBody("text/plain", fmt.Sprintf("Your OTP code is: %s", otp))

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(msg)
}
