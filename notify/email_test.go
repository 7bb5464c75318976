package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestEmailMessageShape(t *testing.T) {
	em, err := NewEmail(EmailConfig{
		Host:     "mail.example.com",
		Username: "robot",
		Password: "pw",
		From:     "robot@example.com",
		To:       []string{"ops@example.com", "oncall@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	em.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		if a == nil {
			t.Error("auth should be configured when a username is set")
		}
		return nil
	}

	if err := em.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotAddr != "mail.example.com:587" {
		t.Errorf("addr = %q, want default port 587", gotAddr)
	}
	if gotFrom != "robot@example.com" || len(gotTo) != 2 {
		t.Errorf("envelope = %q -> %v", gotFrom, gotTo)
	}
	for _, want := range []string{
		"Subject: Dynamic DNS renewal report",
		"To: ops@example.com, oncall@example.com",
		"home.ddns.net: renewed",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestEmailAnonymousWhenNoUsername(t *testing.T) {
	em, err := NewEmail(EmailConfig{
		Host: "mail.example.com",
		From: "robot@example.com",
		To:   []string{"ops@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	em.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if a != nil {
			t.Error("auth should be nil without a username")
		}
		return nil
	}
	if err := em.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatal(err)
	}
}

func TestNewEmailValidation(t *testing.T) {
	base := EmailConfig{Host: "h", From: "f", To: []string{"t"}}

	for _, tc := range []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"missing host", func(c *EmailConfig) { c.Host = "" }},
		{"missing from", func(c *EmailConfig) { c.From = "" }},
		{"no recipients", func(c *EmailConfig) { c.To = nil }},
	} {
		cfg := base
		tc.mutate(&cfg)
		if _, err := NewEmail(cfg); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
