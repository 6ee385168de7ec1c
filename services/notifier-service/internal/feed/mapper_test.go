package feed

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func TestMapAppointmentCreated(t *testing.T) {
	payload := []byte(`{"appointment_id":"a1","patient_name":"Maria Silva","date":"2025-03-20","time":"14:30"}`)

	entry, ok, err := Map(EventAppointmentCreated, payload, DefaultSettings(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.Title != "Novo agendamento criado" {
		t.Errorf("title = %q", entry.Title)
	}
	if entry.Message != "Consulta agendada para Maria Silva em 2025-03-20 às 14:30" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Type != "success" || entry.Category != "appointment" {
		t.Errorf("type/category = %q/%q", entry.Type, entry.Category)
	}
}

func TestMapAppointmentCreatedGated(t *testing.T) {
	settings := DefaultSettings()
	settings.NewAppointments = false

	_, ok, err := Map(EventAppointmentCreated, []byte(`{"patient_name":"Maria"}`), settings, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected gated event to be dropped")
	}
}

func TestMapStatusChanged(t *testing.T) {
	tests := []struct {
		name      string
		newStatus string
		wantOK    bool
		wantTitle string
		wantType  string
	}{
		{"cancelled", "cancelled", true, "Agendamento cancelado", "warning"},
		{"confirmed", "confirmed", true, "Consulta confirmada", "success"},
		{"completed is silent", "completed", false, "", ""},
		{"scheduled is silent", "scheduled", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{"patient_name":"João Souza","new_status":"` + tt.newStatus + `","date":"2025-03-20"}`)
			entry, ok, err := Map(EventAppointmentStatus, payload, DefaultSettings(), testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if entry.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", entry.Title, tt.wantTitle)
			}
			if entry.Type != tt.wantType {
				t.Errorf("type = %q, want %q", entry.Type, tt.wantType)
			}
			if !strings.Contains(entry.Message, "João Souza") {
				t.Errorf("message %q missing patient name", entry.Message)
			}
		})
	}
}

func TestMapReminderGated(t *testing.T) {
	settings := DefaultSettings()
	settings.AppointmentReminders = false

	_, ok, err := Map(EventAppointmentReminder, []byte(`{"patient_name":"Maria"}`), settings, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected reminder to be dropped")
	}
}

func TestMapCashMovement(t *testing.T) {
	payload := []byte(`{"type":"income","description":"Consulta - Maria Silva","amount":150}`)

	entry, ok, err := Map(EventCashMovementCreated, payload, DefaultSettings(), testNow)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if entry.Title != "Entrada no caixa" {
		t.Errorf("title = %q", entry.Title)
	}
	if entry.Message != "Consulta - Maria Silva - R$ 150,00" {
		t.Errorf("message = %q", entry.Message)
	}

	payload = []byte(`{"type":"expense","description":"Material","amount":35.5}`)
	entry, ok, err = Map(EventCashMovementCreated, payload, DefaultSettings(), testNow)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if entry.Title != "Saída do caixa" || entry.Type != "info" {
		t.Errorf("title/type = %q/%q", entry.Title, entry.Type)
	}
}

func TestMapBankMovement(t *testing.T) {
	payload := []byte(`{"type":"credit","description":"Consulta (PIX) - Maria","amount":1234.56,"account_name":"Conta Principal"}`)

	entry, ok, err := Map(EventBankMovementCreated, payload, DefaultSettings(), testNow)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if entry.Title != "Crédito bancário" {
		t.Errorf("title = %q", entry.Title)
	}
	if entry.Message != "Crédito de R$ 1.234,56 em Conta Principal" {
		t.Errorf("message = %q", entry.Message)
	}
}

func TestMapTransactionOverdue(t *testing.T) {
	payload := []byte(`{"description":"Aluguel","amount":2000,"due_date":"2025-03-05"}`)

	entry, ok, err := Map(EventTransactionOverdue, payload, DefaultSettings(), testNow)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if entry.Message != "Aluguel está vencido há 10 dias" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Type != "error" {
		t.Errorf("type = %q", entry.Type)
	}

	settings := DefaultSettings()
	settings.OverduePayments = false
	_, ok, _ = Map(EventTransactionOverdue, payload, settings, testNow)
	if ok {
		t.Fatal("expected overdue event to be dropped")
	}
}

func TestMapSystemAlertGated(t *testing.T) {
	payload := []byte(`{"title":"Backup falhou","message":"O backup noturno não foi concluído"}`)

	entry, ok, err := Map(EventSystemAlert, payload, DefaultSettings(), testNow)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if entry.Title != "Backup falhou" || entry.Category != "system" {
		t.Errorf("title/category = %q/%q", entry.Title, entry.Category)
	}

	settings := DefaultSettings()
	settings.SystemAlerts = false
	_, ok, _ = Map(EventSystemAlert, payload, settings, testNow)
	if ok {
		t.Fatal("expected system alert to be dropped")
	}
}

func TestMapUnknownEvent(t *testing.T) {
	_, ok, err := Map("clinic.unknown.v1", []byte(`{}`), DefaultSettings(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("unknown event should be dropped")
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "R$ 0,00"},
		{150, "R$ 150,00"},
		{35.5, "R$ 35,50"},
		{1234.56, "R$ 1.234,56"},
		{1234567.89, "R$ 1.234.567,89"},
		{-99.9, "-R$ 99,90"},
	}
	for _, tt := range tests {
		if got := FormatBRL(tt.amount); got != tt.want {
			t.Errorf("FormatBRL(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}
