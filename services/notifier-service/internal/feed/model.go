package feed

import "time"

// Entry is a dashboard notification.
type Entry struct {
	ID        string
	Title     string
	Message   string
	Type      string // info | success | warning | error
	Category  string // appointment | patient | doctor | service | financial | user | system
	Read      bool
	CreatedAt time.Time
}

// Settings controls which events reach the feed and whether email copies go
// out. Stored as a single clinic-wide row.
type Settings struct {
	AppointmentReminders bool `json:"appointment_reminders"`
	OverduePayments      bool `json:"overdue_payments"`
	NewAppointments      bool `json:"new_appointments"`
	SystemAlerts         bool `json:"system_alerts"`
	EmailNotifications   bool `json:"email_notifications"`
	SoundEnabled         bool `json:"sound_enabled"`
}

func DefaultSettings() Settings {
	return Settings{
		AppointmentReminders: true,
		OverduePayments:      true,
		NewAppointments:      true,
		SystemAlerts:         true,
		EmailNotifications:   false,
		SoundEnabled:         true,
	}
}
