package model

import "time"

const (
	SubscriberPending      = "pending"
	SubscriberConfirmed    = "confirmed"
	SubscriberUnsubscribed = "unsubscribed"
)

// Subscriber is one newsletter signup. ConfirmToken drives the double
// opt-in link; UnsubscribeToken lets the footer link work without a login.
type Subscriber struct {
	ID               string
	Email            string
	Status           string
	ConfirmToken     string
	UnsubscribeToken string
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
}

// ContactRequest is a message from the marketing site's contact form.
type ContactRequest struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Message   string
	CreatedAt time.Time
}
