package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mpontes/clinicore/services/clinic-service/internal/lifecycle"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
	"github.com/mpontes/clinicore/services/clinic-service/internal/outbox"
	"github.com/mpontes/clinicore/services/clinic-service/internal/storage"
)

type AppointmentHandler struct {
	repo     *storage.AppointmentRepository
	patients *storage.PatientRepository
	services *storage.ServiceRepository
	accounts accountStore
	ledger   ledgerStore
	outbox   eventWriter
	logger   *slog.Logger
}

func NewAppointmentHandler(
	repo *storage.AppointmentRepository,
	patients *storage.PatientRepository,
	services *storage.ServiceRepository,
	accounts *storage.BankAccountRepository,
	ledger *storage.LedgerRepository,
	outboxRepo *outbox.Repository,
	logger *slog.Logger,
) *AppointmentHandler {
	return &AppointmentHandler{
		repo:     repo,
		patients: patients,
		services: services,
		accounts: accounts,
		ledger:   ledger,
		outbox:   outboxRepo,
		logger:   logger,
	}
}

type createAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
}

type appointmentItem struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patient_id"`
	DoctorID  string  `json:"doctor_id"`
	ServiceID string  `json:"service_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Price     float64 `json:"price"`
	Notes     string  `json:"notes,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

func appointmentToItem(appt model.Appointment) appointmentItem {
	return appointmentItem{
		ID:        appt.ID,
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		ServiceID: appt.ServiceID,
		Date:      appt.Date.Format("2006-01-02"),
		Time:      appt.Time,
		Price:     appt.Price,
		Notes:     appt.Notes,
		Status:    appt.Status,
		CreatedAt: appt.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Collection handles GET (list with optional filters) and POST (create).
func (h *AppointmentHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	var filter storage.AppointmentFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("startDate")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid startDate", http.StatusBadRequest)
			return
		}
		filter.StartDate = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("endDate")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid endDate", http.StatusBadRequest)
			return
		}
		filter.EndDate = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if !lifecycle.Status(raw).Valid() {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filter.Status = raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}

	appts, err := h.repo.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentToItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.PatientID == "" || req.DoctorID == "" || req.ServiceID == "" {
		http.Error(w, "patient_id, doctor_id and service_id required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	timeOfDay, err := parseTimeOfDay(req.Time)
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Price snapshot: the appointment keeps this price even if the catalog
	// changes later.
	svc, err := h.services.GetPriced(ctx, tx, req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found or inactive", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	patientName, err := h.patients.GetName(ctx, tx, req.PatientID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to load patient", http.StatusInternalServerError)
		return
	}

	appt := &model.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ServiceID: req.ServiceID,
		Date:      date,
		Time:      timeOfDay,
		Price:     svc.Price,
		Notes:     strings.TrimSpace(req.Notes),
		Status:    string(lifecycle.StatusScheduled),
	}
	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "referenced record not found", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	payload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"patient_name":   patientName,
		"service_name":   svc.Name,
		"date":           appt.Date.Format("2006-01-02"),
		"time":           appt.Time,
		"price":          appt.Price,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     outbox.EventAppointmentCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentToItem(*appt))
}

type updateAppointmentRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Date          *string `json:"date"`
	Time          *string `json:"time"`
	Notes         *string `json:"notes"`
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	var date *time.Time
	if req.Date != nil {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(*req.Date))
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		date = &t
	}
	var timeOfDay *string
	if req.Time != nil {
		parsed, err := parseTimeOfDay(*req.Time)
		if err != nil {
			http.Error(w, "invalid time", http.StatusBadRequest)
			return
		}
		timeOfDay = &parsed
	}

	appt, err := h.repo.UpdateDetails(r.Context(), req.AppointmentID, date, timeOfDay, req.Notes)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appointmentToItem(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), req.AppointmentID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete appointment", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTimeOfDay(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}
