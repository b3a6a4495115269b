package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opus-domini/mergington/internal/store"
)

const journalReadTimeout = 3 * time.Second

func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"version":    h.version,
		"activities": len(h.registry.Names()),
	}
	if h.journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), journalReadTimeout)
		defer cancel()
		entries, err := h.journal.CountEnrollments(ctx)
		if err != nil {
			slog.Warn("journal count failed", "err", err)
		}
		payload["journal"] = map[string]any{
			"path":    h.journal.Path(),
			"entries": entries,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) listJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeDetail(w, http.StatusServiceUnavailable, "journal is disabled")
		return
	}

	q := r.URL.Query()
	query := store.EnrollmentQuery{
		Activity: strings.TrimSpace(q.Get("activity")),
		Email:    strings.TrimSpace(q.Get("email")),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeDetail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = limit
	}

	ctx, cancel := context.WithTimeout(r.Context(), journalReadTimeout)
	defer cancel()
	entries, err := h.journal.ListEnrollments(ctx, query)
	if err != nil {
		slog.Error("journal read failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
