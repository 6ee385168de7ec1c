package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

func TestDecide_CompletionRequiresPaymentMethod(t *testing.T) {
	for _, current := range []Status{StatusScheduled, StatusConfirmed, StatusCancelled} {
		if _, err := Decide(current, StatusCompleted, nil); !errors.Is(err, ErrPaymentMethodRequired) {
			t.Errorf("from %s: expected ErrPaymentMethodRequired, got %v", current, err)
		}
		if _, err := Decide(current, StatusCompleted, &Payment{}); !errors.Is(err, ErrPaymentMethodRequired) {
			t.Errorf("from %s with empty payment: expected ErrPaymentMethodRequired, got %v", current, err)
		}
	}
}

func TestDecide_BankMethodsRequireAccount(t *testing.T) {
	for _, method := range []PaymentMethod{PayPix, PayCreditCard, PayDebitCard} {
		_, err := Decide(StatusScheduled, StatusCompleted, &Payment{Method: method})
		if !errors.Is(err, ErrBankAccountRequired) {
			t.Errorf("%s: expected ErrBankAccountRequired, got %v", method, err)
		}
	}
}

func TestDecide_CashCompletion(t *testing.T) {
	d, err := Decide(StatusScheduled, StatusCompleted, &Payment{Method: PayCash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Posting != PostingCash {
		t.Fatalf("expected PostingCash, got %v", d.Posting)
	}
	if d.Target != StatusCompleted {
		t.Fatalf("expected target completed, got %s", d.Target)
	}
}

func TestDecide_BankCompletion(t *testing.T) {
	for _, method := range []PaymentMethod{PayPix, PayCreditCard, PayDebitCard} {
		d, err := Decide(StatusConfirmed, StatusCompleted, &Payment{Method: method, BankAccountID: "acc-1"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if d.Posting != PostingBank {
			t.Fatalf("%s: expected PostingBank, got %v", method, d.Posting)
		}
	}
}

func TestDecide_RecompletionIsIdempotent(t *testing.T) {
	// Already completed: no payment data needed, and no second posting.
	d, err := Decide(StatusCompleted, StatusCompleted, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Posting != PostingNone {
		t.Fatalf("expected PostingNone, got %v", d.Posting)
	}
}

func TestDecide_NonCompletionNeverPosts(t *testing.T) {
	// Payment data on a non-completion transition is ignored, not an error.
	pay := &Payment{Method: PayCash}
	for _, target := range []Status{StatusScheduled, StatusConfirmed, StatusCancelled} {
		d, err := Decide(StatusScheduled, target, pay)
		if err != nil {
			t.Fatalf("to %s: unexpected error: %v", target, err)
		}
		if d.Posting != PostingNone {
			t.Fatalf("to %s: expected PostingNone, got %v", target, d.Posting)
		}
	}
}

func TestDecide_InvalidInputs(t *testing.T) {
	if _, err := Decide(StatusScheduled, Status("archived"), nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := Decide(Status(""), StatusCancelled, nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	_, err := Decide(StatusScheduled, StatusCompleted, &Payment{Method: PaymentMethod("check")})
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestCashPosting(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	appt := model.Appointment{ID: "appt-1", Price: 150.00}

	m := CashPosting(appt, "Maria Silva", now)
	if m.Type != "income" {
		t.Fatalf("expected income, got %s", m.Type)
	}
	if m.Amount != 150.00 {
		t.Fatalf("expected amount 150.00, got %v", m.Amount)
	}
	if m.Category != "Consultas" {
		t.Fatalf("expected category Consultas, got %s", m.Category)
	}
	if m.Description != "Consulta - Maria Silva" {
		t.Fatalf("unexpected description %q", m.Description)
	}
	if m.PaymentMethod != "cash" {
		t.Fatalf("expected payment method cash, got %s", m.PaymentMethod)
	}
	if m.AppointmentID != "appt-1" {
		t.Fatalf("expected appointment back-reference, got %q", m.AppointmentID)
	}
}

func TestBankPosting(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	appt := model.Appointment{ID: "appt-2", Price: 80.00}
	pay := Payment{Method: PayPix, BankAccountID: "acc-9"}

	m := BankPosting(appt, "João Santos", pay, now)
	if m.Type != "credit" {
		t.Fatalf("expected credit, got %s", m.Type)
	}
	if m.AccountID != "acc-9" {
		t.Fatalf("expected account acc-9, got %s", m.AccountID)
	}
	if m.Amount != 80.00 {
		t.Fatalf("expected amount 80.00, got %v", m.Amount)
	}
	if m.Description != "Consulta (PIX) - João Santos" {
		t.Fatalf("unexpected description %q", m.Description)
	}
	if m.AppointmentID != "appt-2" {
		t.Fatalf("expected appointment back-reference, got %q", m.AppointmentID)
	}
}

func TestPaymentMethodLabels(t *testing.T) {
	cases := map[PaymentMethod]string{
		PayCash:       "Dinheiro",
		PayPix:        "PIX",
		PayCreditCard: "Cartão de Crédito",
		PayDebitCard:  "Cartão de Débito",
	}
	for method, want := range cases {
		if got := method.Label(); got != want {
			t.Errorf("%s: expected label %q, got %q", method, want, got)
		}
	}
}
