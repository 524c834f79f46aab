package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types published by the office service.
const (
	EventSyncCompleted        = "office.sync.completed.v1"
	EventSyncFailed           = "office.sync.failed.v1"
	EventAppointmentConfirmed = "office.appointment.confirmed.v1"
)
