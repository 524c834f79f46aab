package handlers

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/katharina-voss/lashoffice/services/notification-service/internal/storage"
)

type fakeSender struct {
	to      string
	subject string
	body    string
	calls   int
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.to = to
	f.subject = subject
	f.body = body
	f.calls++
	return nil
}

type fakeMailLog struct {
	rows []storage.SentMail
}

func (f *fakeMailLog) Insert(_ context.Context, m storage.SentMail) error {
	f.rows = append(f.rows, m)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHandleNewsletterSubscribed(t *testing.T) {
	sender := &fakeSender{}
	mails := &fakeMailLog{}
	h := NewEventHandler(sender, mails, discardLogger(), "owner@studio.test")

	msg := kafka.Message{Value: []byte(`{
		"subscriber_id": "sub-1",
		"email": "anna@example.com",
		"confirm_url": "https://example.com/confirm?token=abc",
		"unsubscribe_url": "https://example.com/unsubscribe?token=def"
	}`)}
	if err := h.HandleNewsletterSubscribed(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sender called %d times, want 1", sender.calls)
	}
	if sender.to != "anna@example.com" {
		t.Errorf("mail went to %q", sender.to)
	}
	if !strings.Contains(sender.body, "confirm?token=abc") {
		t.Error("confirm link missing from body")
	}
	if !strings.Contains(sender.body, "unsubscribe?token=def") {
		t.Error("unsubscribe link missing from body")
	}
	if len(mails.rows) != 1 || mails.rows[0].Status != "sent" {
		t.Fatalf("sent mail audit row = %+v", mails.rows)
	}
}

func TestHandleNewsletterSubscribedDropsBadPayload(t *testing.T) {
	sender := &fakeSender{}
	h := NewEventHandler(sender, &fakeMailLog{}, discardLogger(), "")

	// Malformed payloads are acked, not retried forever.
	if err := h.HandleNewsletterSubscribed(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("invalid payload should be dropped, got %v", err)
	}
	if sender.calls != 0 {
		t.Fatal("no mail expected for invalid payload")
	}
}

func TestHandleSyncFailed(t *testing.T) {
	sender := &fakeSender{}
	mails := &fakeMailLog{}
	h := NewEventHandler(sender, mails, discardLogger(), "owner@studio.test")

	msg := kafka.Message{Value: []byte(`{"sync_log_id":"run-1","message":"Outlook-Anbindung ist nicht konfiguriert","error":"boom"}`)}
	if err := h.HandleSyncFailed(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.to != "owner@studio.test" {
		t.Errorf("alert went to %q", sender.to)
	}
	if !strings.Contains(sender.body, "Outlook-Anbindung ist nicht konfiguriert") {
		t.Error("failure message missing from alert body")
	}
}

func TestHandleSyncFailedWithoutOwner(t *testing.T) {
	sender := &fakeSender{}
	h := NewEventHandler(sender, &fakeMailLog{}, discardLogger(), "")

	err := h.HandleSyncFailed(context.Background(), kafka.Message{
		Value: []byte(`{"sync_log_id":"run-1","message":"kaputt","error":"boom"}`),
	})
	if err != nil {
		t.Fatalf("missing owner email must not error: %v", err)
	}
	if sender.calls != 0 {
		t.Fatal("no mail expected without owner email")
	}
}
