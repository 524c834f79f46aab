package email

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("studio@lashes.test", "anna@example.com", "Bitte bestätigen", "Hallo Anna")

	wantHeaders := []string{
		"From: studio@lashes.test\r\n",
		"To: anna@example.com\r\n",
		"Subject: Bitte bestätigen\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
	}
	for _, header := range wantHeaders {
		if !strings.Contains(msg, header) {
			t.Errorf("message missing %q", header)
		}
	}
	if !strings.Contains(msg, "\r\n\r\nHallo Anna\r\n") {
		t.Error("body not separated from headers by blank line")
	}
}

func TestNewSMTPSenderDefaults(t *testing.T) {
	s := NewSMTPSender("mailpit", "1025", "", "", "")
	if s.addr != "mailpit:1025" {
		t.Errorf("addr = %q", s.addr)
	}
	if s.from == "" {
		t.Error("from fallback not applied")
	}
	if s.auth != nil {
		t.Error("auth should be nil without credentials")
	}
}
