package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Event types consumed from clinic-service. Topic names equal event types.
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

// Topics lists every event type the notifier subscribes to.
func Topics() []string {
	return []string{
		EventAppointmentCreated,
		EventAppointmentStatus,
		EventAppointmentReminder,
		EventCashMovementCreated,
		EventBankMovementCreated,
		EventPatientCreated,
		EventDoctorCreated,
		EventServiceCreated,
		EventUserCreated,
		EventTransactionCreated,
		EventTransactionPaid,
		EventTransactionOverdue,
		EventSystemAlert,
	}
}

type eventPayload struct {
	PatientName  string  `json:"patient_name"`
	Name         string  `json:"name"`
	Specialty    string  `json:"specialty"`
	Role         string  `json:"role"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	OldStatus    string  `json:"old_status"`
	NewStatus    string  `json:"new_status"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	DueDate      string  `json:"due_date"`
	AccountName  string  `json:"account_name"`
	AlertTitle   string  `json:"title"`
	AlertMessage string  `json:"message"`
}

// Map translates a domain event into a feed entry. ok is false when the event
// type is unknown, carries nothing feed-worthy, or is switched off in the
// settings. Only a subset of events is gated; the rest always land in the
// feed.
func Map(eventType string, payload []byte, settings Settings, now time.Time) (Entry, bool, error) {
	var p eventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	switch eventType {
	case EventAppointmentCreated:
		if !settings.NewAppointments {
			return Entry{}, false, nil
		}
		return Entry{
			Title:    "Novo agendamento criado",
			Message:  fmt.Sprintf("Consulta agendada para %s em %s às %s", p.PatientName, p.Date, p.Time),
			Type:     "success",
			Category: "appointment",
		}, true, nil

	case EventAppointmentStatus:
		switch p.NewStatus {
		case "cancelled":
			return Entry{
				Title:    "Agendamento cancelado",
				Message:  fmt.Sprintf("A consulta de %s foi cancelada", p.PatientName),
				Type:     "warning",
				Category: "appointment",
			}, true, nil
		case "confirmed":
			return Entry{
				Title:    "Consulta confirmada",
				Message:  fmt.Sprintf("%s confirmou a consulta para %s", p.PatientName, p.Date),
				Type:     "success",
				Category: "appointment",
			}, true, nil
		}
		// Completions surface through the ledger movement events instead.
		return Entry{}, false, nil

	case EventAppointmentReminder:
		if !settings.AppointmentReminders {
			return Entry{}, false, nil
		}
		return Entry{
			Title:    "Lembrete de consulta",
			Message:  fmt.Sprintf("Consulta de %s em %s às %s", p.PatientName, p.Date, p.Time),
			Type:     "info",
			Category: "appointment",
		}, true, nil

	case EventPatientCreated:
		return Entry{
			Title:    "Novo paciente cadastrado",
			Message:  fmt.Sprintf("%s foi adicionado(a) ao sistema", p.Name),
			Type:     "success",
			Category: "patient",
		}, true, nil

	case EventDoctorCreated:
		return Entry{
			Title:    "Novo médico cadastrado",
			Message:  fmt.Sprintf("Dr(a). %s - %s foi adicionado(a)", p.Name, p.Specialty),
			Type:     "success",
			Category: "doctor",
		}, true, nil

	case EventServiceCreated:
		return Entry{
			Title:    "Novo serviço cadastrado",
			Message:  fmt.Sprintf("O serviço %q foi adicionado ao catálogo", p.Name),
			Type:     "success",
			Category: "service",
		}, true, nil

	case EventUserCreated:
		return Entry{
			Title:    "Novo usuário criado",
			Message:  fmt.Sprintf("%s foi adicionado como %s", p.Name, p.Role),
			Type:     "success",
			Category: "user",
		}, true, nil

	case EventTransactionCreated:
		title := "Conta a pagar criada"
		if p.Type == "receivable" {
			title = "Conta a receber criada"
		}
		return Entry{
			Title:    title,
			Message:  fmt.Sprintf("%s - %s", p.Description, FormatBRL(p.Amount)),
			Type:     "info",
			Category: "financial",
		}, true, nil

	case EventTransactionPaid:
		return Entry{
			Title:    "Pagamento recebido",
			Message:  fmt.Sprintf("%s - %s", p.Description, FormatBRL(p.Amount)),
			Type:     "success",
			Category: "financial",
		}, true, nil

	case EventTransactionOverdue:
		if !settings.OverduePayments {
			return Entry{}, false, nil
		}
		days := daysOverdue(p.DueDate, now)
		return Entry{
			Title:    "Pagamento vencido",
			Message:  fmt.Sprintf("%s está vencido há %d dias", p.Description, days),
			Type:     "error",
			Category: "financial",
		}, true, nil

	case EventCashMovementCreated:
		title, entryType := "Saída do caixa", "info"
		if p.Type == "income" {
			title, entryType = "Entrada no caixa", "success"
		}
		return Entry{
			Title:    title,
			Message:  fmt.Sprintf("%s - %s", p.Description, FormatBRL(p.Amount)),
			Type:     entryType,
			Category: "financial",
		}, true, nil

	case EventBankMovementCreated:
		title, word, entryType := "Débito bancário", "Débito", "info"
		if p.Type == "credit" {
			title, word, entryType = "Crédito bancário", "Crédito", "success"
		}
		return Entry{
			Title:    title,
			Message:  fmt.Sprintf("%s de %s em %s", word, FormatBRL(p.Amount), p.AccountName),
			Type:     entryType,
			Category: "financial",
		}, true, nil

	case EventSystemAlert:
		if !settings.SystemAlerts {
			return Entry{}, false, nil
		}
		return Entry{
			Title:    p.AlertTitle,
			Message:  p.AlertMessage,
			Type:     "warning",
			Category: "system",
		}, true, nil
	}

	return Entry{}, false, nil
}

func daysOverdue(dueDate string, now time.Time) int {
	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return 0
	}
	days := int(now.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// FormatBRL renders an amount in Brazilian currency style, e.g. "R$ 1.234,56".
func FormatBRL(amount float64) string {
	negative := amount < 0
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}
