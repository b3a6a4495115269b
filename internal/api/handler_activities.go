package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/opus-domini/mergington/internal/metrics"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/validate"
)

const (
	detailActivityNotFound = "Activity not found"
	detailAlreadySignedUp  = "Student is already signed up"
	detailNotRegistered    = "Student is not registered for this activity"
	detailEmailRequired    = "email query parameter is required"
)

func (h *Handler) listActivities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, registry.ActionSignup, h.registry.Signup)
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, registry.ActionUnregister, h.registry.Unregister)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, action string, op func(activity, email string) (string, error)) {
	activity := r.PathValue("name")
	email := r.URL.Query().Get("email")
	if !validate.Email(email) {
		h.metrics.ObserveRequest(action, metrics.OutcomeInvalid)
		writeDetail(w, http.StatusUnprocessableEntity, detailEmailRequired)
		return
	}

	message, err := op(activity, email)
	if err != nil {
		h.writeRegistryError(w, action, err)
		return
	}
	h.metrics.ObserveRequest(action, metrics.OutcomeOK)
	slog.Info("roster updated", "action", action, "activity", activity, "email", email)
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func (h *Handler) writeRegistryError(w http.ResponseWriter, action string, err error) {
	switch registry.KindOf(err) {
	case registry.KindNotFound:
		h.metrics.ObserveRequest(action, metrics.OutcomeNotFound)
		writeDetail(w, http.StatusNotFound, detailActivityNotFound)
	case registry.KindConflict:
		h.metrics.ObserveRequest(action, metrics.OutcomeConflict)
		detail := detailAlreadySignedUp
		if errors.Is(err, registry.ErrNotRegistered) {
			detail = detailNotRegistered
		}
		writeDetail(w, http.StatusBadRequest, detail)
	default:
		slog.Error("roster update failed", "action", action, "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
