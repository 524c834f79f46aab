package sync

import (
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
)

// EventUpdate carries the remote fields applied to an existing appointment.
// Status and confirmation linkage are never part of an update.
type EventUpdate struct {
	AppointmentID string
	Event         outlook.Event
}

// Plan is the minimal set of writes that makes the local appointment table
// match the fetched Outlook window. SoftDelete holds appointment ids.
type Plan struct {
	Insert     []outlook.Event
	Update     []EventUpdate
	SoftDelete []string
}

func (p Plan) Counts() model.SyncResult {
	r := model.SyncResult{
		Imported: len(p.Insert),
		Updated:  len(p.Update),
		Deleted:  len(p.SoftDelete),
	}
	r.Total = r.Imported + r.Updated + r.Deleted
	return r
}

// Reconcile compares remote events against local appointments and computes
// the plan. It is pure: callers apply the plan transactionally.
//
// Only non-deleted local appointments with an Outlook id participate;
// manually created appointments (no Outlook id) are never touched. Update
// detection compares change tokens verbatim, so any remote edit counts as
// an update. Duplicate remote ids within one fetch keep the later event,
// matching the upstream calendar's fetch order.
func Reconcile(remote []outlook.Event, local []model.Appointment) Plan {
	byOutlookID := make(map[string]outlook.Event, len(remote))
	for _, evt := range remote {
		byOutlookID[evt.ID] = evt
	}

	var plan Plan
	seen := make(map[string]bool, len(local))
	for _, appt := range local {
		if appt.DeletedAt != nil || appt.OutlookID == nil {
			continue
		}
		outlookID := *appt.OutlookID
		seen[outlookID] = true

		evt, ok := byOutlookID[outlookID]
		if !ok {
			plan.SoftDelete = append(plan.SoftDelete, appt.ID)
			continue
		}
		if evt.ChangeKey != appt.ChangeKey {
			plan.Update = append(plan.Update, EventUpdate{AppointmentID: appt.ID, Event: evt})
		}
	}

	for _, evt := range remote {
		// Ranging over the slice instead of the map keeps insert order
		// deterministic; the map lookup collapses duplicate ids.
		if seen[evt.ID] {
			continue
		}
		seen[evt.ID] = true
		plan.Insert = append(plan.Insert, byOutlookID[evt.ID])
	}
	return plan
}
