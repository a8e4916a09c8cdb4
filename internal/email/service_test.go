package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestSenderEnabled(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{name: "empty config", config: Config{}, want: false},
		{name: "missing host", config: Config{Port: "587", From: "desk@example.com"}, want: false},
		{name: "missing port", config: Config{Host: "smtp.example.com", From: "desk@example.com"}, want: false},
		{name: "missing from", config: Config{Host: "smtp.example.com", Port: "587"}, want: false},
		{name: "fully configured", config: Config{Host: "smtp.example.com", Port: "587", From: "desk@example.com"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSender(tt.config).Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

type capture struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
	err  error
}

func (c *capture) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
	return c.err
}

func TestSendPasswordReset(t *testing.T) {
	s := NewSender(Config{Host: "smtp.example.com", Port: "2525", From: "desk@example.com", FromName: "RFP Desk"})
	c := &capture{}
	s.send = c.send

	if err := s.SendPasswordReset("avery@example.com", "avery", "https://rfp.example.com/reset-password?token=xyz789", "1 hour"); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}

	if c.addr != "smtp.example.com:2525" {
		t.Errorf("addr = %q", c.addr)
	}
	if c.auth != nil {
		t.Error("auth should be nil without a username")
	}
	if c.from != "desk@example.com" {
		t.Errorf("envelope from = %q", c.from)
	}
	if len(c.to) != 1 || c.to[0] != "avery@example.com" {
		t.Errorf("recipients = %v", c.to)
	}

	head, body, ok := strings.Cut(c.msg, "\r\n\r\n")
	if !ok {
		t.Fatalf("message has no header/body separator:\n%s", c.msg)
	}
	for _, want := range []string{
		`From: "RFP Desk" <desk@example.com>`,
		"To: avery@example.com",
		"Subject: Reset your RFP Desk password",
		"Content-Type: text/html; charset=UTF-8",
	} {
		if !strings.Contains(head, want) {
			t.Errorf("headers missing %q:\n%s", want, head)
		}
	}
	if strings.Contains(head, "multipart") {
		t.Errorf("message should be a single html part:\n%s", head)
	}
	for _, want := range []string{"Hi avery,", "https://rfp.example.com/reset-password?token=xyz789", "expire in 1 hour"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSendPasswordResetUsesConfiguredAppName(t *testing.T) {
	s := NewSender(Config{Host: "h", Port: "25", From: "f@example.com", AppName: "Bid Room", Username: "u", Password: "p"})
	c := &capture{}
	s.send = c.send

	if err := s.SendPasswordReset("a@example.com", "a", "https://x/reset", "30 minutes"); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
	if c.auth == nil {
		t.Error("auth should be set when a username is configured")
	}
	if !strings.Contains(c.msg, "Subject: Reset your Bid Room password") {
		t.Errorf("subject does not carry the app name:\n%s", c.msg)
	}
}

func TestSendPasswordResetEscapesUserName(t *testing.T) {
	s := NewSender(Config{Host: "h", Port: "25", From: "f@example.com"})
	c := &capture{}
	s.send = c.send

	if err := s.SendPasswordReset("a@example.com", "<script>", "https://x/reset", "1 hour"); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
	if strings.Contains(c.msg, "<script>") {
		t.Error("user name was not html-escaped")
	}
}

func TestSendPasswordResetErrors(t *testing.T) {
	err := NewSender(Config{}).SendPasswordReset("a@example.com", "a", "https://x/reset", "1 hour")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("unconfigured error = %v, want ErrNotConfigured", err)
	}

	s := NewSender(Config{Host: "h", Port: "25", From: "f@example.com"})
	refused := errors.New("connection refused")
	s.send = (&capture{err: refused}).send
	if err := s.SendPasswordReset("a@example.com", "a", "https://x/reset", "1 hour"); !errors.Is(err, refused) {
		t.Fatalf("transport error = %v, want wrapped %v", err, refused)
	}
}
