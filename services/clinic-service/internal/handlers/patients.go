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

type PatientHandler struct {
	repo   *storage.PatientRepository
	outbox *outbox.Repository
	logger *slog.Logger
}

func NewPatientHandler(repo *storage.PatientRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type patientRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	CPF             string `json:"cpf"`
	BirthDate       string `json:"birth_date"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Address         string `json:"address"`
	HealthInsurance string `json:"health_insurance"`
}

type patientItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CPF             string `json:"cpf"`
	BirthDate       string `json:"birth_date"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Address         string `json:"address,omitempty"`
	HealthInsurance string `json:"health_insurance,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func patientToItem(p model.Patient) patientItem {
	return patientItem{
		ID:              p.ID,
		Name:            p.Name,
		CPF:             p.CPF,
		BirthDate:       p.BirthDate.Format("2006-01-02"),
		Phone:           p.Phone,
		Email:           p.Email,
		Address:         p.Address,
		HealthInsurance: p.HealthInsurance,
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req *patientRequest) toModel() (model.Patient, string) {
	req.Name = strings.TrimSpace(req.Name)
	req.CPF = strings.TrimSpace(req.CPF)
	if req.Name == "" {
		return model.Patient{}, "name required"
	}
	if req.CPF == "" {
		return model.Patient{}, "cpf required"
	}
	birthDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.BirthDate))
	if err != nil {
		return model.Patient{}, "invalid birth_date"
	}
	return model.Patient{
		ID:              strings.TrimSpace(req.ID),
		Name:            req.Name,
		CPF:             req.CPF,
		BirthDate:       birthDate,
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		Address:         strings.TrimSpace(req.Address),
		HealthInsurance: strings.TrimSpace(req.HealthInsurance),
	}, ""
}

func (h *PatientHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PatientHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	patients, err := h.repo.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), limit)
	if err != nil {
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	items := make([]patientItem, 0, len(patients))
	for _, p := range patients {
		items = append(items, patientToItem(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PatientHandler) create(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	p, msg := req.toModel()
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, &p)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "cpf already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	p.ID = id

	payload, err := json.Marshal(map[string]any{"patient_id": id, "name": p.Name})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "patient",
		AggregateID:   id,
		EventType:     outbox.EventPatientCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, patientToItem(p))
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	p, msg := req.toModel()
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if p.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(r.Context(), &p)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		if storage.IsUniqueViolation(err) {
			http.Error(w, "cpf already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to update patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patientToItem(updated))
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), req.ID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "patient has appointments", http.StatusConflict)
			return
		}
		http.Error(w, "failed to delete patient", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
