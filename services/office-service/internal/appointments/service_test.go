package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outbox"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeAppointmentStore struct {
	appts map[string]model.Appointment
}

func (f *fakeAppointmentStore) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (f *fakeAppointmentStore) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (model.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return appt, nil
}

func (f *fakeAppointmentStore) SetStatus(_ context.Context, _ pgx.Tx, id string, status string) error {
	appt, ok := f.appts[id]
	if !ok || appt.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	appt.Status = status
	f.appts[id] = appt
	return nil
}

func (f *fakeAppointmentStore) ListPending(context.Context) ([]model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentStore) ListUpcoming(context.Context, int) ([]model.Appointment, error) {
	return nil, nil
}

type fakeIncomeStore struct {
	entries []model.IncomeEntry
}

func (f *fakeIncomeStore) Insert(_ context.Context, _ pgx.Tx, entry model.IncomeEntry) (model.IncomeEntry, error) {
	entry.ID = fmt.Sprintf("inc-%d", len(f.entries)+1)
	f.entries = append(f.entries, entry)
	return entry, nil
}

type fakeEventStore struct {
	events []outbox.Event
}

func (f *fakeEventStore) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func testService(appts *fakeAppointmentStore) (*Service, *fakeIncomeStore, *fakeEventStore) {
	income := &fakeIncomeStore{}
	events := &fakeEventStore{}
	svc := &Service{
		appointments: appts,
		income:       income,
		outbox:       events,
		logger:       slog.New(slog.DiscardHandler),
	}
	return svc, income, events
}

func pendingAppointment(id string) model.Appointment {
	return model.Appointment{
		ID:        id,
		Subject:   "Anna Schmidt - Lash Lifting",
		StartTime: time.Now().Add(24 * time.Hour),
		Status:    model.AppointmentPending,
	}
}

func TestConfirmRecordsExactlyOneIncome(t *testing.T) {
	store := &fakeAppointmentStore{appts: map[string]model.Appointment{
		"apt-1": pendingAppointment("apt-1"),
	}}
	svc, income, events := testService(store)
	ctx := context.Background()

	entry, err := svc.Confirm(ctx, "apt-1", "cust-1", "treat-1", 9500, "cash")
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if entry.AmountCents != 9500 {
		t.Fatalf("amount = %d, want 9500", entry.AmountCents)
	}
	if got := store.appts["apt-1"].Status; got != model.AppointmentConfirmed {
		t.Fatalf("status = %q, want confirmed", got)
	}
	if len(events.events) != 1 || events.events[0].EventType != outbox.EventAppointmentConfirmed {
		t.Fatalf("outbox events = %+v, want one confirmation event", events.events)
	}

	// Second operator confirming the same appointment must fail without a
	// second income entry.
	if _, err := svc.Confirm(ctx, "apt-1", "cust-1", "treat-1", 9500, "cash"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second confirm: got %v, want ErrInvalidState", err)
	}
	if len(income.entries) != 1 {
		t.Fatalf("income entries = %d, want 1", len(income.entries))
	}
	if len(events.events) != 1 {
		t.Fatalf("outbox events = %d, want 1", len(events.events))
	}
}

func TestDismissIsTerminal(t *testing.T) {
	store := &fakeAppointmentStore{appts: map[string]model.Appointment{
		"apt-1": pendingAppointment("apt-1"),
	}}
	svc, income, _ := testService(store)
	ctx := context.Background()

	if err := svc.Dismiss(ctx, "apt-1"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if got := store.appts["apt-1"].Status; got != model.AppointmentDismissed {
		t.Fatalf("status = %q, want dismissed", got)
	}

	if _, err := svc.Confirm(ctx, "apt-1", "cust-1", "treat-1", 9500, "cash"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("confirm after dismiss: got %v, want ErrInvalidState", err)
	}
	if err := svc.Dismiss(ctx, "apt-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second dismiss: got %v, want ErrInvalidState", err)
	}
	if len(income.entries) != 0 {
		t.Fatalf("income entries = %d, want 0", len(income.entries))
	}
}

func TestConfirmUnknownAppointment(t *testing.T) {
	svc, income, _ := testService(&fakeAppointmentStore{appts: map[string]model.Appointment{}})

	if _, err := svc.Confirm(context.Background(), "nope", "cust-1", "treat-1", 9500, "cash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(income.entries) != 0 {
		t.Fatalf("income entries = %d, want 0", len(income.entries))
	}
}

func TestCheckPending(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		appt    model.Appointment
		wantErr error
	}{
		{
			name:    "pending passes",
			appt:    model.Appointment{Status: model.AppointmentPending},
			wantErr: nil,
		},
		{
			name:    "confirmed is terminal",
			appt:    model.Appointment{Status: model.AppointmentConfirmed},
			wantErr: ErrInvalidState,
		},
		{
			name:    "dismissed is terminal",
			appt:    model.Appointment{Status: model.AppointmentDismissed},
			wantErr: ErrInvalidState,
		},
		{
			name:    "soft deleted reads as missing",
			appt:    model.Appointment{Status: model.AppointmentPending, DeletedAt: &now},
			wantErr: ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkPending(tc.appt)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}
