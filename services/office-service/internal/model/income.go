package model

import "time"

// IncomeEntry is the financial record created when an appointment is
// confirmed. It deliberately survives a soft-delete of its appointment.
type IncomeEntry struct {
	ID               string
	AppointmentID    string
	CustomerID       string
	TreatmentTypeID  string
	AmountCents      int64
	PaymentMethod    string
	PaymentReference string
	PaidAt           *time.Time
	DeletedAt        *time.Time
	CreatedAt        time.Time
}
