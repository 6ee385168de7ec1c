package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by clinic-service. The notifier consumes these to build
// the dashboard notification feed.
const (
	EventAppointmentCreated  = "clinic.appointment.created.v1"
	EventAppointmentStatus   = "clinic.appointment.status_changed.v1"
	EventAppointmentReminder = "clinic.appointment.reminder.v1"
	EventCashMovementCreated = "clinic.cash_movement.created.v1"
	EventBankMovementCreated = "clinic.bank_movement.created.v1"
	EventPatientCreated      = "clinic.patient.created.v1"
	EventDoctorCreated       = "clinic.doctor.created.v1"
	EventServiceCreated      = "clinic.service.created.v1"
	EventUserCreated         = "clinic.user.created.v1"
	EventTransactionCreated  = "clinic.transaction.created.v1"
	EventTransactionPaid     = "clinic.transaction.paid.v1"
	EventTransactionOverdue  = "clinic.transaction.overdue.v1"
	EventSystemAlert         = "clinic.system.alert.v1"
)
