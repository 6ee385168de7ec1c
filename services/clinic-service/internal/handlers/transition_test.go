package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpontes/clinicore/services/clinic-service/internal/lifecycle"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
)

type fakeLedger struct {
	hasPosting bool
	cash       []model.CashMovement
	bank       []model.BankMovement
}

func (f *fakeLedger) HasPostingForAppointment(context.Context, pgx.Tx, string) (bool, error) {
	return f.hasPosting, nil
}

func (f *fakeLedger) InsertCashMovement(_ context.Context, _ pgx.Tx, m *model.CashMovement) (string, error) {
	f.cash = append(f.cash, *m)
	return "cash-mov-1", nil
}

func (f *fakeLedger) InsertBankMovement(_ context.Context, _ pgx.Tx, m *model.BankMovement) (string, error) {
	f.bank = append(f.bank, *m)
	return "bank-mov-1", nil
}

type fakeAccounts struct {
	accounts map[string]model.BankAccount
}

func (f *fakeAccounts) GetTx(_ context.Context, _ pgx.Tx, id string) (model.BankAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return model.BankAccount{}, pgx.ErrNoRows
	}
	return a, nil
}

type fakeOutbox struct {
	events []outbox.Event
}

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func postingHandler(ledger *fakeLedger, accounts *fakeAccounts, events *fakeOutbox) *AppointmentHandler {
	return &AppointmentHandler{ledger: ledger, accounts: accounts, outbox: events}
}

func completedResponse(appt model.Appointment) transitionResponse {
	return transitionResponse{
		AppointmentID:  appt.ID,
		PreviousStatus: appt.Status,
		Status:         "completed",
		Posting:        "none",
	}
}

func TestPostCashMovement(t *testing.T) {
	ledger := &fakeLedger{}
	events := &fakeOutbox{}
	h := postingHandler(ledger, &fakeAccounts{}, events)

	appt := model.Appointment{ID: "appt-1", PatientID: "p-1", Price: 150.00, Status: "scheduled", Date: time.Now()}
	decision := lifecycle.Decision{
		Target:  lifecycle.StatusCompleted,
		Posting: lifecycle.PostingCash,
		Payment: &lifecycle.Payment{Method: lifecycle.PayCash},
	}

	resp, err := h.post(context.Background(), nil, appt, "Maria Silva", decision, completedResponse(appt))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Posting != "cash" {
		t.Fatalf("expected posting cash, got %q", resp.Posting)
	}
	if resp.LedgerEntryID != "cash-mov-1" || resp.Amount != 150.00 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(ledger.cash) != 1 || len(ledger.bank) != 0 {
		t.Fatalf("expected exactly one cash movement, got %d cash / %d bank", len(ledger.cash), len(ledger.bank))
	}
	if len(events.events) != 1 || events.events[0].EventType != outbox.EventCashMovementCreated {
		t.Fatalf("expected one cash movement event, got %+v", events.events)
	}
}

func TestPostBankMovement(t *testing.T) {
	ledger := &fakeLedger{}
	accounts := &fakeAccounts{accounts: map[string]model.BankAccount{
		"acc-9": {ID: "acc-9", Name: "Conta Principal"},
	}}
	events := &fakeOutbox{}
	h := postingHandler(ledger, accounts, events)

	appt := model.Appointment{ID: "appt-2", PatientID: "p-2", Price: 80.00, Status: "confirmed"}
	decision := lifecycle.Decision{
		Target:  lifecycle.StatusCompleted,
		Posting: lifecycle.PostingBank,
		Payment: &lifecycle.Payment{Method: lifecycle.PayPix, BankAccountID: "acc-9"},
	}

	resp, err := h.post(context.Background(), nil, appt, "João Santos", decision, completedResponse(appt))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Posting != "bank" {
		t.Fatalf("expected posting bank, got %q", resp.Posting)
	}
	if len(ledger.bank) != 1 || ledger.bank[0].AccountID != "acc-9" {
		t.Fatalf("unexpected bank movements %+v", ledger.bank)
	}
	if len(ledger.cash) != 0 {
		t.Fatal("bank completion must not produce a cash movement")
	}
	if len(events.events) != 1 || events.events[0].EventType != outbox.EventBankMovementCreated {
		t.Fatalf("expected one bank movement event, got %+v", events.events)
	}
}

func TestPostSkipsExistingPosting(t *testing.T) {
	// Reopened and completed again: the earlier completion already posted, so
	// the guard reports it instead of double-posting.
	ledger := &fakeLedger{hasPosting: true}
	events := &fakeOutbox{}
	h := postingHandler(ledger, &fakeAccounts{}, events)

	appt := model.Appointment{ID: "appt-3", PatientID: "p-3", Price: 150.00, Status: "scheduled"}
	decision := lifecycle.Decision{
		Target:  lifecycle.StatusCompleted,
		Posting: lifecycle.PostingCash,
		Payment: &lifecycle.Payment{Method: lifecycle.PayCash},
	}

	resp, err := h.post(context.Background(), nil, appt, "Maria Silva", decision, completedResponse(appt))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Posting != "skipped_existing" {
		t.Fatalf("expected skipped_existing, got %q", resp.Posting)
	}
	if resp.LedgerEntryID != "" {
		t.Fatalf("expected no ledger entry id, got %q", resp.LedgerEntryID)
	}
	if len(ledger.cash)+len(ledger.bank) != 0 {
		t.Fatal("guard must prevent a second ledger entry")
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no movement events, got %+v", events.events)
	}
}

func TestPostUnknownBankAccount(t *testing.T) {
	ledger := &fakeLedger{}
	h := postingHandler(ledger, &fakeAccounts{}, &fakeOutbox{})

	appt := model.Appointment{ID: "appt-4", PatientID: "p-4", Price: 80.00, Status: "scheduled"}
	decision := lifecycle.Decision{
		Target:  lifecycle.StatusCompleted,
		Posting: lifecycle.PostingBank,
		Payment: &lifecycle.Payment{Method: lifecycle.PayDebitCard, BankAccountID: "acc-missing"},
	}

	_, err := h.post(context.Background(), nil, appt, "Maria Silva", decision, completedResponse(appt))
	if err != errAccountNotFound {
		t.Fatalf("expected errAccountNotFound, got %v", err)
	}
	if len(ledger.bank) != 0 {
		t.Fatal("no movement may be posted for an unknown account")
	}
}
