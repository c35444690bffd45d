// Package api exposes queue operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sky93/queuectl"
)

// Queue is the subset of *queuectl.Queue the handlers use.
type Queue interface {
	Enqueue(ctx context.Context, command string, opts ...queuectl.EnqueueOption) (*queuectl.JobRecord, error)
	ListJobs(ctx context.Context, state queuectl.JobState) ([]queuectl.JobRecord, error)
	GetJob(ctx context.Context, id string) (*queuectl.JobRecord, error)
	ListDLQ(ctx context.Context) ([]queuectl.JobRecord, error)
	RequeueDLQ(ctx context.Context, id string) (*queuectl.JobRecord, error)
	Status(ctx context.Context) (*queuectl.QueueStatus, error)
	Settings(ctx context.Context) (queuectl.Settings, error)
	SetSetting(ctx context.Context, key, value string) (queuectl.Settings, error)
	StopWorkers()
	ActiveWorkers() int
}

type Handler struct {
	queue  Queue
	logger *slog.Logger
}

func NewHandler(q Queue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{queue: q, logger: logger}
}

// EnqueueRequest is the JSON body for POST /jobs.
type EnqueueRequest struct {
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

// SetConfigRequest is the JSON body for PUT /config/{key}.
type SetConfigRequest struct {
	Value string `json:"value"`
}

func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "INVALID_ARGUMENT", "invalid request body", http.StatusBadRequest)
		return
	}
	var opts []queuectl.EnqueueOption
	if req.MaxRetries != nil {
		opts = append(opts, queuectl.WithMaxRetries(*req.MaxRetries))
	}

	job, err := h.queue.Enqueue(r.Context(), req.Command, opts...)
	if err != nil {
		h.fail(w, r, "failed to enqueue job", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": job})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	state, err := queuectl.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		h.writeError(w, "INVALID_ARGUMENT", err.Error(), http.StatusBadRequest)
		return
	}
	jobs, err := h.queue.ListJobs(r.Context(), state)
	if err != nil {
		h.fail(w, r, "failed to list jobs", err)
		return
	}
	h.writeList(w, jobs)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to get job", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": job})
}

func (h *Handler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListDLQ(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list dlq", err)
		return
	}
	h.writeList(w, jobs)
}

func (h *Handler) RetryDLQ(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.RequeueDLQ(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to retry job", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": job})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.queue.Status(r.Context())
	if err != nil {
		h.fail(w, r, "failed to get status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": st})
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	s, err := h.queue.Settings(r.Context())
	if err != nil {
		h.fail(w, r, "failed to load config", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": s})
}

func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req SetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "INVALID_ARGUMENT", "invalid request body", http.StatusBadRequest)
		return
	}
	s, err := h.queue.SetSetting(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.fail(w, r, "failed to set config", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": s})
}

// StopWorkers asks the workers of this process to stop after their current
// job. Running jobs are not interrupted and the HTTP server keeps serving.
func (h *Handler) StopWorkers(w http.ResponseWriter, r *http.Request) {
	n := h.queue.ActiveWorkers()
	h.queue.StopWorkers()
	h.logger.InfoContext(r.Context(), "workers stop requested", slog.Int("workers", n))
	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]int{"stopping": n},
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeList(w http.ResponseWriter, jobs []queuectl.JobRecord) {
	if jobs == nil {
		jobs = []queuectl.JobRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": jobs,
		"meta": map[string]int{"count": len(jobs)},
	})
}

// fail maps queue errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var stateErr *queuectl.InvalidStateError
	switch {
	case errors.Is(err, queuectl.ErrJobNotFound):
		h.writeError(w, "NOT_FOUND", err.Error(), http.StatusNotFound)
	case errors.Is(err, queuectl.ErrEmptyCommand),
		errors.Is(err, queuectl.ErrInvalidMaxRetries),
		errors.Is(err, queuectl.ErrUnknownSetting),
		errors.Is(err, queuectl.ErrInvalidSetting),
		errors.As(err, &stateErr):
		h.writeError(w, "INVALID_ARGUMENT", err.Error(), http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), msg, slog.String("error", err.Error()))
		h.writeError(w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
