package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

// FinancialHandler manages manual ledger entries and bank accounts. Entries
// posted by appointment completions share the same tables but are created by
// the transition flow, not here.
type FinancialHandler struct {
	ledger   *storage.LedgerRepository
	accounts *storage.BankAccountRepository
	outbox   *outbox.Repository
	logger   *slog.Logger
}

func NewFinancialHandler(ledger *storage.LedgerRepository, accounts *storage.BankAccountRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *FinancialHandler {
	return &FinancialHandler{ledger: ledger, accounts: accounts, outbox: outboxRepo, logger: logger}
}

type cashMovementRequest struct {
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"payment_method"`
}

type cashMovementItem struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"payment_method"`
	AppointmentID string  `json:"appointment_id,omitempty"`
}

func cashMovementToItem(m model.CashMovement) cashMovementItem {
	return cashMovementItem{
		ID:            m.ID,
		Type:          m.Type,
		Description:   m.Description,
		Amount:        m.Amount,
		Date:          m.Date.UTC().Format(time.RFC3339),
		Category:      m.Category,
		PaymentMethod: m.PaymentMethod,
		AppointmentID: m.AppointmentID,
	}
}

func validCashPaymentMethod(method string) bool {
	switch method {
	case "cash", "credit", "debit", "pix", "transfer":
		return true
	}
	return false
}

func (h *FinancialHandler) CashMovements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCash(w, r)
	case http.MethodPost:
		h.createCash(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FinancialHandler) listCash(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}
	movements, err := h.ledger.ListCashMovements(r.Context(), start, end, queryLimit(r))
	if err != nil {
		http.Error(w, "failed to list cash movements", http.StatusInternalServerError)
		return
	}
	items := make([]cashMovementItem, 0, len(movements))
	for _, m := range movements {
		items = append(items, cashMovementToItem(m))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FinancialHandler) createCash(w http.ResponseWriter, r *http.Request) {
	var req cashMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.Type != "income" && req.Type != "expense" {
		http.Error(w, "type must be income or expense", http.StatusBadRequest)
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
	if !validCashPaymentMethod(req.PaymentMethod) {
		http.Error(w, "invalid payment_method", http.StatusBadRequest)
		return
	}
	date := time.Now().UTC()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		date = t
	}

	ctx := r.Context()
	tx, err := h.ledger.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	movement := model.CashMovement{
		Type:          req.Type,
		Description:   req.Description,
		Amount:        req.Amount,
		Date:          date,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
	}
	id, err := h.ledger.InsertCashMovement(ctx, tx, &movement)
	if err != nil {
		http.Error(w, "failed to create cash movement", http.StatusInternalServerError)
		return
	}
	movement.ID = id

	payload, err := json.Marshal(map[string]any{
		"movement_id": id,
		"type":        movement.Type,
		"description": movement.Description,
		"amount":      movement.Amount,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "cash_movement",
		AggregateID:   id,
		EventType:     outbox.EventCashMovementCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, cashMovementToItem(movement))
}

type bankMovementRequest struct {
	AccountID   string  `json:"account_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
}

type bankMovementItem struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	AppointmentID string  `json:"appointment_id,omitempty"`
}

func bankMovementToItem(m model.BankMovement) bankMovementItem {
	return bankMovementItem{
		ID:            m.ID,
		AccountID:     m.AccountID,
		Type:          m.Type,
		Description:   m.Description,
		Amount:        m.Amount,
		Date:          m.Date.UTC().Format(time.RFC3339),
		Category:      m.Category,
		AppointmentID: m.AppointmentID,
	}
}

func (h *FinancialHandler) BankMovements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBank(w, r)
	case http.MethodPost:
		h.createBank(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FinancialHandler) listBank(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}
	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
	movements, err := h.ledger.ListBankMovements(r.Context(), accountID, start, end, queryLimit(r))
	if err != nil {
		http.Error(w, "failed to list bank movements", http.StatusInternalServerError)
		return
	}
	items := make([]bankMovementItem, 0, len(movements))
	for _, m := range movements {
		items = append(items, bankMovementToItem(m))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FinancialHandler) createBank(w http.ResponseWriter, r *http.Request) {
	var req bankMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AccountID = strings.TrimSpace(req.AccountID)
	req.Type = strings.TrimSpace(req.Type)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if req.AccountID == "" {
		http.Error(w, "account_id required", http.StatusBadRequest)
		return
	}
	if req.Type != "credit" && req.Type != "debit" {
		http.Error(w, "type must be credit or debit", http.StatusBadRequest)
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
	date := time.Now().UTC()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		date = t
	}

	ctx := r.Context()
	tx, err := h.ledger.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	account, err := h.accounts.GetTx(ctx, tx, req.AccountID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "bank account not found", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to load bank account", http.StatusInternalServerError)
		return
	}

	movement := model.BankMovement{
		AccountID:   req.AccountID,
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		Category:    req.Category,
	}
	id, err := h.ledger.InsertBankMovement(ctx, tx, &movement)
	if err != nil {
		http.Error(w, "failed to create bank movement", http.StatusInternalServerError)
		return
	}
	movement.ID = id

	payload, err := json.Marshal(map[string]any{
		"movement_id":  id,
		"account_id":   account.ID,
		"account_name": account.Name,
		"type":         movement.Type,
		"description":  movement.Description,
		"amount":       movement.Amount,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "bank_movement",
		AggregateID:   id,
		EventType:     outbox.EventBankMovementCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, bankMovementToItem(movement))
}

type bankAccountRequest struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Bank    string  `json:"bank"`
	Agency  string  `json:"agency"`
	Account string  `json:"account"`
	Balance float64 `json:"balance"`
}

type bankAccountItem struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Bank    string  `json:"bank"`
	Agency  string  `json:"agency"`
	Account string  `json:"account"`
	Balance float64 `json:"balance"`
}

func bankAccountToItem(a model.BankAccount) bankAccountItem {
	return bankAccountItem{ID: a.ID, Name: a.Name, Bank: a.Bank, Agency: a.Agency, Account: a.Account, Balance: a.Balance}
}

func (h *FinancialHandler) BankAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := h.accounts.List(r.Context())
		if err != nil {
			http.Error(w, "failed to list bank accounts", http.StatusInternalServerError)
			return
		}
		items := make([]bankAccountItem, 0, len(accounts))
		for _, a := range accounts {
			items = append(items, bankAccountToItem(a))
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req bankAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Bank = strings.TrimSpace(req.Bank)
		if req.Name == "" || req.Bank == "" {
			http.Error(w, "name and bank required", http.StatusBadRequest)
			return
		}
		account := model.BankAccount{
			Name:    req.Name,
			Bank:    req.Bank,
			Agency:  strings.TrimSpace(req.Agency),
			Account: strings.TrimSpace(req.Account),
			Balance: req.Balance,
		}
		id, err := h.accounts.Create(r.Context(), &account)
		if err != nil {
			http.Error(w, "failed to create bank account", http.StatusInternalServerError)
			return
		}
		account.ID = id
		writeJSON(w, http.StatusCreated, bankAccountToItem(account))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FinancialHandler) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.Bank = strings.TrimSpace(req.Bank)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Bank == "" {
		http.Error(w, "name and bank required", http.StatusBadRequest)
		return
	}
	account := model.BankAccount{
		ID:      req.ID,
		Name:    req.Name,
		Bank:    req.Bank,
		Agency:  strings.TrimSpace(req.Agency),
		Account: strings.TrimSpace(req.Account),
		Balance: req.Balance,
	}
	updated, err := h.accounts.Update(r.Context(), &account)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "bank account not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update bank account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bankAccountToItem(updated))
}

func (h *FinancialHandler) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
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
	if err := h.accounts.Delete(r.Context(), strings.TrimSpace(req.ID)); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "bank account not found", http.StatusNotFound)
			return
		}
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "bank account has movements", http.StatusConflict)
			return
		}
		http.Error(w, "failed to delete bank account", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDateRange(w http.ResponseWriter, r *http.Request) (start, end *time.Time, ok bool) {
	if raw := strings.TrimSpace(r.URL.Query().Get("startDate")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid startDate", http.StatusBadRequest)
			return nil, nil, false
		}
		start = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("endDate")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid endDate", http.StatusBadRequest)
			return nil, nil, false
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Second)
		end = &t
	}
	return start, end, true
}

func queryLimit(r *http.Request) int {
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return 0
}
