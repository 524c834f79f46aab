// Package handlers turns consumed domain events into outbound email.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/katharina-voss/lashoffice/services/notification-service/internal/email"
	"github.com/katharina-voss/lashoffice/services/notification-service/internal/storage"
)

const (
	TopicNewsletterSubscribed = "web.newsletter.subscribed.v1"
	TopicSyncFailed           = "office.sync.failed.v1"
	TopicContactReceived      = "web.contact.received.v1"
)

// MailLog persists one audit row per outbound mail attempt.
type MailLog interface {
	Insert(ctx context.Context, m storage.SentMail) error
}

type EventHandler struct {
	sender     email.Sender
	sentMails  MailLog
	logger     *slog.Logger
	ownerEmail string
}

func NewEventHandler(sender email.Sender, sentMails MailLog, logger *slog.Logger, ownerEmail string) *EventHandler {
	return &EventHandler{
		sender:     sender,
		sentMails:  sentMails,
		logger:     logger,
		ownerEmail: strings.TrimSpace(ownerEmail),
	}
}

// send mails and logs the attempt; the audit row is written for failures
// too so a broken relay is visible in the database.
func (h *EventHandler) send(ctx context.Context, eventType, recipient, subject, body string) error {
	sendErr := h.sender.Send(recipient, subject, body)

	mail := storage.SentMail{
		EventType: eventType,
		Recipient: recipient,
		Subject:   subject,
		Status:    "sent",
	}
	if sendErr != nil {
		mail.Status = "failed"
		mail.Error = sendErr.Error()
		h.logger.Error("email send failed", "err", sendErr, "recipient", recipient, "event_type", eventType)
	}
	if err := h.sentMails.Insert(ctx, mail); err != nil {
		h.logger.Error("failed to persist sent mail", "err", err)
		return err
	}
	return sendErr
}

type newsletterSubscribedPayload struct {
	SubscriberID   string `json:"subscriber_id"`
	Email          string `json:"email"`
	ConfirmURL     string `json:"confirm_url"`
	UnsubscribeURL string `json:"unsubscribe_url"`
}

// HandleNewsletterSubscribed sends the double-opt-in mail.
func (h *EventHandler) HandleNewsletterSubscribed(ctx context.Context, msg kafka.Message) error {
	var payload newsletterSubscribedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("invalid newsletter payload", "err", err)
		return nil
	}
	if payload.Email == "" || payload.ConfirmURL == "" {
		h.logger.Error("missing newsletter fields", "subscriber_id", payload.SubscriberID)
		return nil
	}

	body := fmt.Sprintf(
		"Hallo,\n\n"+
			"vielen Dank für deine Anmeldung zum Newsletter von Lashes by Katharina.\n\n"+
			"Bitte bestätige deine Anmeldung über diesen Link:\n%s\n\n"+
			"Wenn du dich nicht angemeldet hast, kannst du diese E-Mail ignorieren.\n\n"+
			"Abmelden: %s\n",
		payload.ConfirmURL,
		payload.UnsubscribeURL,
	)
	err := h.send(ctx, TopicNewsletterSubscribed, payload.Email, "Bitte bestätige deine Newsletter-Anmeldung", body)
	if err == nil {
		h.logger.Info("opt-in mail sent", "subscriber_id", payload.SubscriberID)
	}
	return err
}

type syncFailedPayload struct {
	SyncLogID string `json:"sync_log_id"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// HandleSyncFailed alerts the studio owner that the calendar sync broke.
func (h *EventHandler) HandleSyncFailed(ctx context.Context, msg kafka.Message) error {
	if h.ownerEmail == "" {
		h.logger.Warn("sync failure alert skipped (OWNER_EMAIL not set)")
		return nil
	}

	var payload syncFailedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("invalid sync failure payload", "err", err)
		return nil
	}

	body := fmt.Sprintf(
		"Die Kalender-Synchronisierung ist fehlgeschlagen.\n\n"+
			"Meldung: %s\nDetails: %s\nLauf: %s\n\n"+
			"Termine werden nicht mehr automatisch importiert, bis der Fehler behoben ist.\n",
		payload.Message,
		payload.Error,
		payload.SyncLogID,
	)
	return h.send(ctx, TopicSyncFailed, h.ownerEmail, "Kalender-Synchronisierung fehlgeschlagen", body)
}

type contactReceivedPayload struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

// HandleContactReceived forwards a website contact request to the owner.
func (h *EventHandler) HandleContactReceived(ctx context.Context, msg kafka.Message) error {
	if h.ownerEmail == "" {
		h.logger.Warn("contact forward skipped (OWNER_EMAIL not set)")
		return nil
	}

	var payload contactReceivedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("invalid contact payload", "err", err)
		return nil
	}
	if payload.Name == "" || payload.Message == "" {
		h.logger.Error("missing contact fields", "contact_id", payload.ContactID)
		return nil
	}

	body := fmt.Sprintf(
		"Neue Kontaktanfrage über die Website:\n\n"+
			"Name: %s\nE-Mail: %s\nTelefon: %s\n\n%s\n",
		payload.Name,
		payload.Email,
		payload.Phone,
		payload.Message,
	)
	return h.send(ctx, TopicContactReceived, h.ownerEmail, "Neue Kontaktanfrage von "+payload.Name, body)
}
