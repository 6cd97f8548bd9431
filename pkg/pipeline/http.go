package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/mc4r"
	"github.com/synaptica-ai/erker2phenopackets/pkg/observability/metrics"
	"github.com/synaptica-ai/erker2phenopackets/pkg/parsing"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
	"github.com/synaptica-ai/erker2phenopackets/pkg/storage"
)

// RunReader looks up recorded runs.
type RunReader interface {
	Get(ctx context.Context, runID string) (*models.RunReport, error)
	Last(ctx context.Context) (*models.RunReport, error)
}

// HTTPHandler exposes batch mapping over HTTP. Documents are returned in the
// response and never written to disk.
type HTTPHandler struct {
	pipeline *Pipeline
	runs     RunReader
	maxBody  int64
}

func NewHTTPHandler(p *Pipeline, maxBody int64) *HTTPHandler {
	return &HTTPHandler{pipeline: p, maxBody: maxBody}
}

// WithRuns enables the run lookup routes.
func (h *HTTPHandler) WithRuns(runs RunReader) *HTTPHandler {
	h.runs = runs
	return h
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/phenopackets/map", h.handleMap).Methods(http.MethodPost)
	if h.runs != nil {
		router.HandleFunc("/api/v1/runs/last", h.handleLastRun).Methods(http.MethodGet)
		router.HandleFunc("/api/v1/runs/{id}", h.handleRun).Methods(http.MethodGet)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// handleMap reads a CSV registry export from the body. Query parameters:
// skip_invalid, sequential, workers and created (YYYY-MM-DD).
func (h *HTTPHandler) handleMap(w http.ResponseWriter, r *http.Request) {
	opts, err := mapOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	result, err := h.pipeline.MapCSV(r.Context(), body, opts)
	if err != nil {
		status := statusFor(err)
		logger.Log.WithError(err).WithField("status", status).Warn("mapping request failed")
		writeError(w, status, err.Error())
		return
	}
	metrics.ObserveRun(result.RowsRead, len(result.Failures), len(result.Documents), 0, 0, 0)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *HTTPHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runs.Get(r.Context(), mux.Vars(r)["id"])
	h.writeRun(w, report, err)
}

func (h *HTTPHandler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runs.Last(r.Context())
	h.writeRun(w, report, err)
}

func (h *HTTPHandler) writeRun(w http.ResponseWriter, report *models.RunReport, err error) {
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Log.WithError(err).Error("failed to fetch run")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func mapOptions(r *http.Request) (Options, error) {
	q := r.URL.Query()
	var opts Options
	var err error
	if v := q.Get("skip_invalid"); v != "" {
		if opts.SkipInvalid, err = strconv.ParseBool(v); err != nil {
			return opts, errors.New("skip_invalid must be a boolean")
		}
	}
	if v := q.Get("sequential"); v != "" {
		if opts.Sequential, err = strconv.ParseBool(v); err != nil {
			return opts, errors.New("sequential must be a boolean")
		}
	}
	if v := q.Get("workers"); v != "" {
		if opts.Workers, err = strconv.Atoi(v); err != nil || opts.Workers < 1 {
			return opts, errors.New("workers must be a positive integer")
		}
	}
	if v := q.Get("created"); v != "" {
		if opts.CreatedAt, err = time.Parse(createdLayout, v); err != nil {
			return opts, errors.New("created must be a YYYY-MM-DD date")
		}
	}
	return opts, nil
}

// statusFor maps row-level and input errors to 4xx; everything else is a
// server error.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case parsing.IsRangeError(err), parsing.IsFormatError(err), parsing.IsUnknownCodeError(err),
		mc4r.IsLengthMismatchError(err), errors.Is(err, registry.ErrRaggedRow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
