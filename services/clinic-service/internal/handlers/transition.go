package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/services/clinic-service/internal/lifecycle"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

// The posting path depends on these narrow interfaces rather than the
// concrete repositories so the double-posting guard can be exercised with
// fakes. storage.LedgerRepository, storage.BankAccountRepository and
// outbox.Repository satisfy them.
type ledgerStore interface {
	HasPostingForAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) (bool, error)
	InsertCashMovement(ctx context.Context, tx pgx.Tx, m *model.CashMovement) (string, error)
	InsertBankMovement(ctx context.Context, tx pgx.Tx, m *model.BankMovement) (string, error)
}

type accountStore interface {
	GetTx(ctx context.Context, tx pgx.Tx, id string) (model.BankAccount, error)
}

type eventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type changeStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	BankAccountID string `json:"bank_account_id,omitempty"`
}

// transitionResponse is the structured workflow result: the caller can see
// exactly what the transition did, including whether a ledger entry was
// posted and which one.
type transitionResponse struct {
	AppointmentID  string  `json:"appointment_id"`
	PreviousStatus string  `json:"previous_status"`
	Status         string  `json:"status"`
	Posting        string  `json:"posting"` // none | cash | bank | skipped_existing
	LedgerEntryID  string  `json:"ledger_entry_id,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
}

// ChangeStatus applies a status transition and, when the transition completes
// the appointment with payment data, posts exactly one ledger entry. Status
// update, ledger posting and event emission commit in a single transaction:
// either everything happened or nothing did.
func (h *AppointmentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	var pay *lifecycle.Payment
	if req.PaymentMethod != "" {
		pay = &lifecycle.Payment{
			Method:        lifecycle.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
			BankAccountID: strings.TrimSpace(req.BankAccountID),
		}
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	decision, err := lifecycle.Decide(lifecycle.Status(appt.Status), lifecycle.Status(strings.TrimSpace(req.Status)), pay)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	patientName, err := h.patients.GetName(ctx, tx, appt.PatientID)
	if err != nil {
		http.Error(w, "failed to load patient", http.StatusInternalServerError)
		return
	}

	if err := h.repo.UpdateStatus(ctx, tx, appt.ID, string(decision.Target)); err != nil {
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}

	resp := transitionResponse{
		AppointmentID:  appt.ID,
		PreviousStatus: appt.Status,
		Status:         string(decision.Target),
		Posting:        "none",
	}

	if decision.Posting != lifecycle.PostingNone {
		resp, err = h.post(ctx, tx, appt, patientName, decision, resp)
		if err != nil {
			if errors.Is(err, errAccountNotFound) {
				fieldError(w, http.StatusUnprocessableEntity, "bank account not found", "bank_account_id")
				return
			}
			h.logger.Error("ledger posting failed", "err", err, "appointment_id", appt.ID)
			http.Error(w, "failed to post ledger entry", http.StatusInternalServerError)
			return
		}
	}

	statusPayload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"patient_name":   patientName,
		"old_status":     appt.Status,
		"new_status":     string(decision.Target),
		"date":           appt.Date.Format("2006-01-02"),
		"time":           appt.Time,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentStatus,
		Payload:       statusPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// post creates the single ledger entry a completion produces. If a previous
// completion already posted one (the appointment was reopened and completed
// again), the posting is skipped rather than duplicated.
func (h *AppointmentHandler) post(ctx context.Context, tx pgx.Tx, appt model.Appointment, patientName string, decision lifecycle.Decision, resp transitionResponse) (transitionResponse, error) {
	already, err := h.ledger.HasPostingForAppointment(ctx, tx, appt.ID)
	if err != nil {
		return resp, err
	}
	if already {
		resp.Posting = "skipped_existing"
		return resp, nil
	}

	now := time.Now().UTC()
	switch decision.Posting {
	case lifecycle.PostingCash:
		movement := lifecycle.CashPosting(appt, patientName, now)
		id, err := h.ledger.InsertCashMovement(ctx, tx, &movement)
		if err != nil {
			return resp, err
		}
		resp.Posting = "cash"
		resp.LedgerEntryID = id
		resp.Amount = movement.Amount

		payload, err := json.Marshal(map[string]any{
			"movement_id":    id,
			"appointment_id": appt.ID,
			"type":           movement.Type,
			"description":    movement.Description,
			"amount":         movement.Amount,
		})
		if err != nil {
			return resp, err
		}
		return resp, h.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "cash_movement",
			AggregateID:   id,
			EventType:     outbox.EventCashMovementCreated,
			Payload:       payload,
		})

	case lifecycle.PostingBank:
		account, err := h.accounts.GetTx(ctx, tx, decision.Payment.BankAccountID)
		if err != nil {
			if storage.IsNotFound(err) {
				return resp, errAccountNotFound
			}
			return resp, err
		}
		movement := lifecycle.BankPosting(appt, patientName, *decision.Payment, now)
		id, err := h.ledger.InsertBankMovement(ctx, tx, &movement)
		if err != nil {
			return resp, err
		}
		resp.Posting = "bank"
		resp.LedgerEntryID = id
		resp.Amount = movement.Amount

		payload, err := json.Marshal(map[string]any{
			"movement_id":    id,
			"appointment_id": appt.ID,
			"account_id":     account.ID,
			"account_name":   account.Name,
			"type":           movement.Type,
			"description":    movement.Description,
			"amount":         movement.Amount,
		})
		if err != nil {
			return resp, err
		}
		return resp, h.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "bank_movement",
			AggregateID:   id,
			EventType:     outbox.EventBankMovementCreated,
			Payload:       payload,
		})
	}
	return resp, nil
}

var errAccountNotFound = errors.New("bank account not found")

func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrPaymentMethodRequired):
		fieldError(w, http.StatusUnprocessableEntity, "payment method is required to complete an appointment", "payment_method")
	case errors.Is(err, lifecycle.ErrBankAccountRequired):
		fieldError(w, http.StatusUnprocessableEntity, "bank account is required for this payment method", "bank_account_id")
	case errors.Is(err, lifecycle.ErrInvalidPaymentMethod):
		fieldError(w, http.StatusUnprocessableEntity, "invalid payment method", "payment_method")
	case errors.Is(err, lifecycle.ErrInvalidStatus):
		fieldError(w, http.StatusUnprocessableEntity, "invalid status", "status")
	default:
		http.Error(w, "transition rejected", http.StatusUnprocessableEntity)
	}
}
