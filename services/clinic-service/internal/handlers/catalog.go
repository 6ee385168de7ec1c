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

// CatalogHandler manages the service catalog.
type CatalogHandler struct {
	repo   *storage.ServiceRepository
	outbox *outbox.Repository
	logger *slog.Logger
}

func NewCatalogHandler(repo *storage.ServiceRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type serviceRequest struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
	Category        string  `json:"category"`
	Status          string  `json:"status"`
}

type serviceItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
	Category        string  `json:"category"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

func serviceToItem(s model.Service) serviceItem {
	return serviceItem{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Category:        s.Category,
		Status:          s.Status,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req *serviceRequest) toModel() (model.Service, string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		return model.Service{}, "name and category required"
	}
	if req.Price <= 0 {
		return model.Service{}, "price must be positive"
	}
	if req.DurationMinutes <= 0 {
		return model.Service{}, "duration_minutes must be positive"
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "active"
	}
	if status != "active" && status != "inactive" {
		return model.Service{}, "status must be active or inactive"
	}
	return model.Service{
		ID:              strings.TrimSpace(req.ID),
		Name:            req.Name,
		Description:     strings.TrimSpace(req.Description),
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Category:        req.Category,
		Status:          status,
	}, ""
}

func (h *CatalogHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	services, err := h.repo.List(r.Context(), onlyActive, 0)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceToItem(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s, msg := req.toModel()
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

	id, err := h.repo.Create(ctx, tx, &s)
	if err != nil {
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	s.ID = id

	payload, err := json.Marshal(map[string]any{"service_id": id, "name": s.Name})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "service",
		AggregateID:   id,
		EventType:     outbox.EventServiceCreated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, serviceToItem(s))
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s, msg := req.toModel()
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if s.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(r.Context(), &s)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, serviceToItem(updated))
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "service has appointments", http.StatusConflict)
			return
		}
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
