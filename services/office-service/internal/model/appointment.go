package model

import "time"

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentDismissed = "dismissed"
)

// Appointment mirrors one Outlook calendar event in the office database.
// OutlookID is nil only for manually created appointments; among non-deleted
// rows it is unique. ChangeKey is the last change token seen from Outlook
// and is compared verbatim, never diffed.
type Appointment struct {
	ID        string
	OutlookID *string
	ChangeKey string
	Subject   string
	StartTime time.Time
	EndTime   time.Time
	Location  string
	Status    string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
