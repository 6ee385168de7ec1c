package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

type DoctorHandler struct {
	repo   *storage.DoctorRepository
	outbox *outbox.Repository
	logger *slog.Logger
}

func NewDoctorHandler(repo *storage.DoctorRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *DoctorHandler {
	return &DoctorHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type doctorRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	CRM       string `json:"crm"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

type doctorItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	CRM       string `json:"crm"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func doctorToItem(d model.Doctor) doctorItem {
	return doctorItem{
		ID:        d.ID,
		Name:      d.Name,
		Specialty: d.Specialty,
		CRM:       d.CRM,
		Phone:     d.Phone,
		Email:     d.Email,
		Status:    d.Status,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req *doctorRequest) toModel() (model.Doctor, string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Specialty = strings.TrimSpace(req.Specialty)
	req.CRM = strings.TrimSpace(req.CRM)
	if req.Name == "" || req.Specialty == "" || req.CRM == "" {
		return model.Doctor{}, "name, specialty and crm required"
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "active"
	}
	if status != "active" && status != "inactive" {
		return model.Doctor{}, "status must be active or inactive"
	}
	return model.Doctor{
		ID:        strings.TrimSpace(req.ID),
		Name:      req.Name,
		Specialty: req.Specialty,
		CRM:       req.CRM,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		Status:    status,
	}, ""
}

func (h *DoctorHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DoctorHandler) list(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	doctors, err := h.repo.List(r.Context(), onlyActive, 0)
	if err != nil {
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	items := make([]doctorItem, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, doctorToItem(d))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DoctorHandler) create(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	d, msg := req.toModel()
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

	id, err := h.repo.Create(ctx, tx, &d)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "crm already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create doctor", http.StatusInternalServerError)
		return
	}
	d.ID = id

	payload, err := json.Marshal(map[string]any{"doctor_id": id, "name": d.Name, "specialty": d.Specialty})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "doctor",
		AggregateID:   id,
		EventType:     outbox.EventDoctorCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, doctorToItem(d))
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req doctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	d, msg := req.toModel()
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if d.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(r.Context(), &d)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "doctor not found", http.StatusNotFound)
			return
		}
		if storage.IsUniqueViolation(err) {
			http.Error(w, "crm already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to update doctor", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doctorToItem(updated))
}

func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
			http.Error(w, "doctor not found", http.StatusNotFound)
			return
		}
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "doctor has appointments", http.StatusConflict)
			return
		}
		http.Error(w, "failed to delete doctor", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
