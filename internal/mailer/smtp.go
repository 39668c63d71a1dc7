package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/mail.v2"
)

type SMTPMailer struct {
	dialer    *mail.Dialer
	fromEmail string
	backoff   time.Duration
}

func NewSMTPMailer(host string, port int, username, password, fromEmail string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 10 * time.Second
	dialer.StartTLSPolicy = mail.OpportunisticStartTLS

	return &SMTPMailer{
		dialer:    dialer,
		fromEmail: fromEmail,
		backoff:   time.Second,
	}
}

// Send renders the "subject", "plainBody" and "htmlBody" blocks of
// templateFile and delivers the message, retrying a few times.
func (m *SMTPMailer) Send(templateFile, username, email string, data any) error {
	if email == "" {
		return ErrNoRecipient
	}

	msg, err := m.render(templateFile, username, email, data)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxRetires; i++ {
		if lastErr = m.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		time.Sleep(m.backoff * time.Duration(i+1))
	}
	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetires, lastErr)
}

func (m *SMTPMailer) render(templateFile, username, email string, data any) (*mail.Message, error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", templateFile, err)
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}
	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}
	htmlBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())
	return msg, nil
}
