package sync

import (
	"testing"
	"time"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
)

func remoteEvent(id, changeKey string, start time.Time) outlook.Event {
	return outlook.Event{
		ID:        id,
		ChangeKey: changeKey,
		Subject:   "Wimpern " + id,
		Start:     start,
		End:       start.Add(90 * time.Minute),
	}
}

func localAppointment(id, outlookID, changeKey, status string) model.Appointment {
	return model.Appointment{
		ID:        id,
		OutlookID: &outlookID,
		ChangeKey: changeKey,
		Status:    status,
	}
}

func TestReconcileImportsIntoEmptyStore(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	remote := []outlook.Event{
		remoteEvent("A", "t1", d1),
		remoteEvent("B", "t1", d2),
	}

	plan := Reconcile(remote, nil)
	counts := plan.Counts()
	if counts.Imported != 2 || counts.Updated != 0 || counts.Deleted != 0 || counts.Total != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if len(plan.Insert) != 2 || plan.Insert[0].ID != "A" || plan.Insert[1].ID != "B" {
		t.Fatalf("unexpected inserts: %+v", plan.Insert)
	}
}

func TestReconcileDetectsUpdateAndDisappearance(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	local := []model.Appointment{
		localAppointment("appt-a", "A", "t1", model.AppointmentPending),
		localAppointment("appt-b", "B", "t1", model.AppointmentConfirmed),
	}
	remote := []outlook.Event{
		remoteEvent("A", "t2", d1.Add(30*time.Minute)),
	}

	plan := Reconcile(remote, local)
	counts := plan.Counts()
	if counts.Imported != 0 || counts.Updated != 1 || counts.Deleted != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if plan.Update[0].AppointmentID != "appt-a" || plan.Update[0].Event.ChangeKey != "t2" {
		t.Fatalf("unexpected update: %+v", plan.Update[0])
	}
	if plan.SoftDelete[0] != "appt-b" {
		t.Fatalf("expected appt-b soft-deleted, got %v", plan.SoftDelete)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	remote := []outlook.Event{
		remoteEvent("A", "t1", d1),
		remoteEvent("B", "t2", d1.Add(2*time.Hour)),
	}
	// Local state after the first run has been applied.
	local := []model.Appointment{
		localAppointment("appt-a", "A", "t1", model.AppointmentPending),
		localAppointment("appt-b", "B", "t2", model.AppointmentPending),
	}

	plan := Reconcile(remote, local)
	if counts := plan.Counts(); counts.Total != 0 {
		t.Fatalf("second run should be a no-op, got %+v", counts)
	}
}

func TestReconcileConverges(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	remote := []outlook.Event{
		remoteEvent("A", "t9", d1),
		remoteEvent("C", "t1", d1.Add(time.Hour)),
	}
	local := []model.Appointment{
		localAppointment("appt-a", "A", "t1", model.AppointmentPending),
		localAppointment("appt-b", "B", "t1", model.AppointmentPending),
	}

	plan := Reconcile(remote, local)

	// Apply the plan to the id set: survivors must equal the remote ids.
	survivors := map[string]bool{"A": true, "B": true}
	for _, id := range plan.SoftDelete {
		for _, appt := range local {
			if appt.ID == id {
				delete(survivors, *appt.OutlookID)
			}
		}
	}
	for _, evt := range plan.Insert {
		survivors[evt.ID] = true
	}
	if len(survivors) != 2 || !survivors["A"] || !survivors["C"] {
		t.Fatalf("expected survivors {A C}, got %v", survivors)
	}
}

func TestReconcileNeverTouchesStatus(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for _, status := range []string{model.AppointmentPending, model.AppointmentConfirmed, model.AppointmentDismissed} {
		local := []model.Appointment{localAppointment("appt-a", "A", "t1", status)}
		remote := []outlook.Event{remoteEvent("A", "t2", d1)}

		plan := Reconcile(remote, local)
		if len(plan.Update) != 1 {
			t.Fatalf("status %s: expected one update, got %+v", status, plan)
		}
		// The update carries only remote fields; there is nothing in it
		// that could change the stored status.
		if plan.Update[0].Event.ID != "A" {
			t.Fatalf("status %s: unexpected update %+v", status, plan.Update[0])
		}
	}
}

func TestReconcileSkipsDeletedAndManualAppointments(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	deletedAt := time.Now()
	deleted := localAppointment("appt-a", "A", "t1", model.AppointmentPending)
	deleted.DeletedAt = &deletedAt
	manual := model.Appointment{ID: "appt-m", Status: model.AppointmentConfirmed}

	plan := Reconcile([]outlook.Event{remoteEvent("A", "t1", d1)}, []model.Appointment{deleted, manual})
	counts := plan.Counts()
	// A soft-deleted row no longer counts as present, so A is re-imported
	// as a fresh pending appointment; the manual appointment is untouched.
	if counts.Imported != 1 || counts.Updated != 0 || counts.Deleted != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestReconcileDuplicateRemoteIDLastWins(t *testing.T) {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	remote := []outlook.Event{
		remoteEvent("A", "t1", d1),
		remoteEvent("A", "t2", d1.Add(time.Hour)),
	}

	plan := Reconcile(remote, nil)
	if len(plan.Insert) != 1 {
		t.Fatalf("expected duplicate ids collapsed to one insert, got %+v", plan.Insert)
	}
	if plan.Insert[0].ChangeKey != "t2" {
		t.Fatalf("expected later event to win, got %+v", plan.Insert[0])
	}

	// Against an existing local row the winning token decides: a row
	// already holding it is a no-op, a stale row gets exactly one update.
	current := []model.Appointment{localAppointment("apt-1", "A", "t2", model.AppointmentPending)}
	plan = Reconcile(remote, current)
	if len(plan.Insert) != 0 || len(plan.Update) != 0 || len(plan.SoftDelete) != 0 {
		t.Fatalf("expected no-op against up-to-date local row, got %+v", plan)
	}

	stale := []model.Appointment{localAppointment("apt-1", "A", "t0", model.AppointmentPending)}
	plan = Reconcile(remote, stale)
	if len(plan.Update) != 1 || plan.Update[0].Event.ChangeKey != "t2" {
		t.Fatalf("expected single update to winning token, got %+v", plan)
	}
	if len(plan.Insert) != 0 || len(plan.SoftDelete) != 0 {
		t.Fatalf("expected update only, got %+v", plan)
	}
}
