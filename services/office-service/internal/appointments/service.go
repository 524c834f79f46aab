package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/storage"
)

var (
	// ErrNotFound covers both a missing row and a soft-deleted one; the
	// caller cannot act on either.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidState means the appointment exists but is not pending.
	// Confirm and dismiss are both one-way doors.
	ErrInvalidState = errors.New("appointment is not pending")
)

type appointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id string, status string) error
	ListPending(ctx context.Context) ([]model.Appointment, error)
	ListUpcoming(ctx context.Context, limit int) ([]model.Appointment, error)
}

type incomeStore interface {
	Insert(ctx context.Context, tx pgx.Tx, entry model.IncomeEntry) (model.IncomeEntry, error)
}

type eventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Service struct {
	appointments appointmentStore
	income       incomeStore
	outbox       eventStore
	logger       *slog.Logger
}

func NewService(appointments *storage.AppointmentRepository, income *storage.IncomeRepository, ob *outbox.Repository, logger *slog.Logger) *Service {
	return &Service{
		appointments: appointments,
		income:       income,
		outbox:       ob,
		logger:       logger,
	}
}

// checkPending validates that an appointment can still be decided on.
func checkPending(appt model.Appointment) error {
	if appt.DeletedAt != nil {
		return ErrNotFound
	}
	if appt.Status != model.AppointmentPending {
		return fmt.Errorf("%w (status %s)", ErrInvalidState, appt.Status)
	}
	return nil
}

// Confirm transitions a pending appointment to confirmed and records
// exactly one income entry for it, atomically. The row is locked for the
// duration so two operators cannot confirm the same appointment twice.
func (s *Service) Confirm(ctx context.Context, appointmentID, customerID, treatmentTypeID string, amountCents int64, method string) (model.IncomeEntry, error) {
	tx, err := s.appointments.Begin(ctx)
	if err != nil {
		return model.IncomeEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appointments.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.IncomeEntry{}, ErrNotFound
		}
		return model.IncomeEntry{}, err
	}
	if err := checkPending(appt); err != nil {
		return model.IncomeEntry{}, err
	}

	if err := s.appointments.SetStatus(ctx, tx, appointmentID, model.AppointmentConfirmed); err != nil {
		return model.IncomeEntry{}, err
	}

	entry, err := s.income.Insert(ctx, tx, model.IncomeEntry{
		AppointmentID:   appointmentID,
		CustomerID:      customerID,
		TreatmentTypeID: treatmentTypeID,
		AmountCents:     amountCents,
		PaymentMethod:   method,
	})
	if err != nil {
		return model.IncomeEntry{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":    appointmentID,
		"customer_id":       customerID,
		"treatment_type_id": treatmentTypeID,
		"income_entry_id":   entry.ID,
		"amount_cents":      amountCents,
		"payment_method":    method,
		"start_time":        appt.StartTime,
	})
	if err != nil {
		return model.IncomeEntry{}, err
	}
	if err := s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appointmentID,
		EventType:     outbox.EventAppointmentConfirmed,
		Payload:       payload,
	}); err != nil {
		return model.IncomeEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.IncomeEntry{}, err
	}

	s.logger.Info("appointment confirmed",
		"appointment_id", appointmentID,
		"income_entry_id", entry.ID,
		"amount_cents", amountCents)
	return entry, nil
}

// Dismiss transitions a pending appointment to dismissed. No income entry
// is created and the decision is final.
func (s *Service) Dismiss(ctx context.Context, appointmentID string) error {
	tx, err := s.appointments.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appointments.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := checkPending(appt); err != nil {
		return err
	}

	if err := s.appointments.SetStatus(ctx, tx, appointmentID, model.AppointmentDismissed); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info("appointment dismissed", "appointment_id", appointmentID)
	return nil
}

func (s *Service) Pending(ctx context.Context) ([]model.Appointment, error) {
	return s.appointments.ListPending(ctx)
}

func (s *Service) Upcoming(ctx context.Context, limit int) ([]model.Appointment, error) {
	return s.appointments.ListUpcoming(ctx, limit)
}
