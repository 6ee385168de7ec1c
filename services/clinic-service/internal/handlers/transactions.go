package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

// TransactionHandler manages receivables and payables. Their payment lifecycle
// is independent from appointment postings: paying a receivable does not touch
// the cash or bank ledgers.
type TransactionHandler struct {
	repo   *storage.TransactionRepository
	outbox *outbox.Repository
	logger *slog.Logger
}

func NewTransactionHandler(repo *storage.TransactionRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type transactionRequest struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	Category    string  `json:"category"`
	Reference   string  `json:"reference"`
}

type transactionItem struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	PaidDate    string  `json:"paid_date,omitempty"`
	Status      string  `json:"status"`
	Category    string  `json:"category"`
	Reference   string  `json:"reference,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func transactionToItem(t model.Transaction) transactionItem {
	item := transactionItem{
		ID:          t.ID,
		Type:        t.Type,
		Description: t.Description,
		Amount:      t.Amount,
		DueDate:     t.DueDate.UTC().Format("2006-01-02"),
		Status:      t.Status,
		Category:    t.Category,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.PaidDate != nil {
		item.PaidDate = t.PaidDate.UTC().Format("2006-01-02")
	}
	return item
}

func (h *TransactionHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request) {
	txType := strings.TrimSpace(r.URL.Query().Get("type"))
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if txType != "" && txType != "receivable" && txType != "payable" {
		http.Error(w, "invalid type filter", http.StatusBadRequest)
		return
	}
	transactions, err := h.repo.List(r.Context(), txType, status, queryLimit(r))
	if err != nil {
		http.Error(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	items := make([]transactionItem, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, transactionToItem(t))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *TransactionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if req.Type != "receivable" && req.Type != "payable" {
		http.Error(w, "type must be receivable or payable", http.StatusBadRequest)
		return
	}
	if req.Description == "" || req.Category == "" {
		http.Error(w, "description and category required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.DueDate))
	if err != nil {
		http.Error(w, "invalid due_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	transaction := model.Transaction{
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     dueDate,
		Status:      "pending",
		Category:    req.Category,
		Reference:   strings.TrimSpace(req.Reference),
	}
	id, err := h.repo.Create(ctx, tx, &transaction)
	if err != nil {
		http.Error(w, "failed to create transaction", http.StatusInternalServerError)
		return
	}
	transaction.ID = id
	transaction.CreatedAt = time.Now().UTC()

	if err := h.insertEvent(ctx, tx, outbox.EventTransactionCreated, transaction); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, transactionToItem(transaction))
}

// Pay marks a pending or overdue transaction as paid.
func (h *TransactionHandler) Pay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID       string `json:"id"`
		PaidDate string `json:"paid_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	paidDate := time.Now().UTC()
	if raw := strings.TrimSpace(req.PaidDate); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid paid_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		paidDate = t
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	transaction, err := h.repo.MarkPaid(ctx, tx, strings.TrimSpace(req.ID), paidDate)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "transaction not found or not payable", http.StatusConflict)
			return
		}
		http.Error(w, "failed to pay transaction", http.StatusInternalServerError)
		return
	}
	if err := h.insertEvent(ctx, tx, outbox.EventTransactionPaid, transaction); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, transactionToItem(transaction))
}

func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	transaction, err := h.repo.Cancel(r.Context(), strings.TrimSpace(req.ID))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "transaction not found or already settled", http.StatusConflict)
			return
		}
		http.Error(w, "failed to cancel transaction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, transactionToItem(transaction))
}

// SweepOverdue flips pending transactions past their due date to overdue and
// emits one event per flipped transaction. Intended for a daily cron or manual
// trigger from the financial dashboard.
func (h *TransactionHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	flipped, err := h.repo.SweepOverdue(ctx, tx, time.Now().UTC())
	if err != nil {
		http.Error(w, "failed to sweep overdue transactions", http.StatusInternalServerError)
		return
	}
	for _, t := range flipped {
		if err := h.insertEvent(ctx, tx, outbox.EventTransactionOverdue, t); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"overdue": len(flipped)})
}

func (h *TransactionHandler) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, t model.Transaction) error {
	payload, err := json.Marshal(map[string]any{
		"transaction_id": t.ID,
		"type":           t.Type,
		"description":    t.Description,
		"amount":         t.Amount,
		"due_date":       t.DueDate.UTC().Format("2006-01-02"),
		"status":         t.Status,
	})
	if err != nil {
		return err
	}
	return h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "transaction",
		AggregateID:   t.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
