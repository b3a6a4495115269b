package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/opus-domini/mergington/internal/events"
	"github.com/opus-domini/mergington/internal/metrics"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/store"
)

const journalWriteTimeout = 2 * time.Second

type journalRepo interface {
	InsertEnrollment(ctx context.Context, write store.EnrollmentWrite) (store.Enrollment, error)
	ListEnrollments(ctx context.Context, query store.EnrollmentQuery) ([]store.Enrollment, error)
	CountEnrollments(ctx context.Context) (int64, error)
	Path() string
}

// Options carries the optional collaborators of the HTTP surface. Any of
// them may be nil.
type Options struct {
	Journal journalRepo
	Events  *events.Hub
	Metrics *metrics.Metrics
	Version string
}

type Handler struct {
	registry *registry.Registry
	journal  journalRepo
	events   *events.Hub
	metrics  *metrics.Metrics
	version  string

	mu sync.Mutex
	// latest is the highest change Seq applied to the gauge, per activity.
	latest map[string]uint64
}

// Register mounts the activity endpoints on mux and subscribes the
// journal, event hub and metrics to roster changes.
func Register(mux *http.ServeMux, reg *registry.Registry, opts Options) *Handler {
	h := &Handler{
		registry: reg,
		journal:  opts.Journal,
		events:   opts.Events,
		metrics:  opts.Metrics,
		version:  opts.Version,
		latest:   make(map[string]uint64),
	}
	if h.version == "" {
		h.version = "dev"
	}
	for name, a := range reg.List() {
		h.metrics.SetParticipants(name, len(a.Participants))
	}
	reg.Observe(h.recordChange)

	h.registerActivityRoutes(mux)
	h.registerMetaRoutes(mux)
	return h
}

// recordChange fans a successful roster mutation out to the journal,
// metrics and live subscribers. Failures here never undo the mutation.
func (h *Handler) recordChange(change registry.Change) {
	h.publishLatest(change)
	if h.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if _, err := h.journal.InsertEnrollment(ctx, store.EnrollmentWrite{
		Activity:  change.Activity,
		Email:     change.Email,
		Action:    change.Action,
		CreatedAt: change.At,
	}); err != nil {
		slog.Warn("journal write failed", "activity", change.Activity, "action", change.Action, "err", err)
	}
}

// publishLatest updates the roster gauge and notifies subscribers unless a
// later change to the same activity was already applied.
func (h *Handler) publishLatest(change registry.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if change.Seq <= h.latest[change.Activity] {
		slog.Debug("stale roster change skipped", "activity", change.Activity, "seq", change.Seq)
		return
	}
	h.latest[change.Activity] = change.Seq
	h.metrics.SetParticipants(change.Activity, change.Participants)
	h.emit(events.TypeActivitiesUpdated, map[string]any{
		"seq":          change.Seq,
		"activity":     change.Activity,
		"email":        change.Email,
		"action":       change.Action,
		"participants": change.Participants,
	})
}

func (h *Handler) emit(eventType string, payload map[string]any) {
	if h == nil || h.events == nil {
		return
	}
	h.events.Publish(events.NewEvent(eventType, payload))
}

// wrap marks API responses as uncacheable; rosters change between polls.
func (h *Handler) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next(w, r)
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(payload); err != nil {
		slog.Error("json encode error", "err", err)
	}
}
