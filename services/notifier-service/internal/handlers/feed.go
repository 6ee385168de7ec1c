package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpontes/clinicore/services/notifier-service/internal/feed"
)

// FeedHandler serves the dashboard notification feed and its settings.
type FeedHandler struct {
	repo   *feed.Repository
	logger *slog.Logger
}

func NewFeedHandler(repo *feed.Repository, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{repo: repo, logger: logger}
}

type entryItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Category  string `json:"category"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type feedResponse struct {
	Notifications []entryItem `json:"notifications"`
	UnreadCount   int         `json:"unread_count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// List returns the newest notifications plus the unread counter the dashboard
// badge shows.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	entries, err := h.repo.List(r.Context(), limit, unreadOnly)
	if err != nil {
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	unread, err := h.repo.UnreadCount(r.Context())
	if err != nil {
		http.Error(w, "failed to count notifications", http.StatusInternalServerError)
		return
	}

	items := make([]entryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryItem{
			ID:        e.ID,
			Title:     e.Title,
			Message:   e.Message,
			Type:      e.Type,
			Category:  e.Category,
			Read:      e.Read,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, feedResponse{Notifications: items, UnreadCount: unread})
}

func (h *FeedHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromBody(w, r)
	if !ok {
		return
	}
	if err := h.repo.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.repo.MarkAllRead(r.Context()); err != nil {
		http.Error(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromBody(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.repo.ClearAll(r.Context()); err != nil {
		http.Error(w, "failed to clear notifications", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings reads or replaces the clinic-wide notification settings.
func (h *FeedHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.repo.GetSettings(r.Context())
		if err != nil {
			http.Error(w, "failed to load settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPost:
		var settings feed.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := h.repo.SaveSettings(r.Context(), settings); err != nil {
			http.Error(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func idFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ID) == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return "", false
	}
	return strings.TrimSpace(req.ID), true
}
