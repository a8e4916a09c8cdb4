// Package email delivers password-reset links over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP settings. Username and Password may be empty for relays
// that accept unauthenticated mail.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AppName  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender renders and mails reset messages.
type Sender struct {
	cfg  Config
	addr string
	auth smtp.Auth
	send sendFunc
}

func NewSender(cfg Config) *Sender {
	if cfg.AppName == "" {
		cfg.AppName = "RFP Desk"
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{
		cfg:  cfg,
		addr: cfg.Host + ":" + cfg.Port,
		auth: auth,
		send: smtp.SendMail,
	}
}

// Enabled reports whether enough is configured to reach a server.
func (s *Sender) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.From != ""
}

type resetMessage struct {
	AppName  string
	UserName string
	ResetURL string
	ValidFor string
}

// SendPasswordReset mails the reset link to one recipient. validFor is shown
// as written, e.g. "1 hour".
func (s *Sender) SendPasswordReset(to, userName, resetURL, validFor string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	body, err := renderReset(resetMessage{
		AppName:  s.cfg.AppName,
		UserName: userName,
		ResetURL: resetURL,
		ValidFor: validFor,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Reset your %s password", s.cfg.AppName)
	msg := s.compose(to, subject, body)
	if err := s.send(s.addr, s.auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

func (s *Sender) compose(to, subject, html string) []byte {
	from := (&mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}).String()

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)
	return msg.Bytes()
}

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Reset your {{.AppName}} password</title></head>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
<h2>{{.AppName}}</h2>
<p>Hi {{.UserName}},</p>
<p>Someone asked to reset the password on your account. Open the link below to choose a new one:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>This reset link will expire in {{.ValidFor}} and works once.</p>
<p style="color: #666; font-size: 12px;">If you did not ask for this, ignore this email. Your password stays the same.</p>
</body>
</html>
`))

func renderReset(m resetMessage) (string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("render password reset: %w", err)
	}
	return buf.String(), nil
}
