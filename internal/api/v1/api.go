// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/metrics"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/queue"
)

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	log  *slog.Logger
}

// New creates a new v1 API server.
func New(deps ServerDeps, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingDependency, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{deps: deps, log: log.With("component", "api")}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Queue
	mux.HandleFunc("GET /api/v1/queue", s.getQueue)
	mux.HandleFunc("DELETE /api/v1/queue/bulk", s.removeQueueItems)
	mux.HandleFunc("DELETE /api/v1/queue/{id}", s.removeQueueItem)
	mux.HandleFunc("POST /api/v1/queue/grab/{id}", s.requireGrabber(s.grabPending))

	// Blocklist
	mux.HandleFunc("GET /api/v1/blocklist", s.listBlocklist)
	mux.HandleFunc("DELETE /api/v1/blocklist/bulk", s.deleteBlocklistEntries)
	mux.HandleFunc("DELETE /api/v1/blocklist/{id}", s.deleteBlocklistEntry)

	// Library and pending releases
	mux.HandleFunc("POST /api/v1/series", s.requireLibrary(s.addSeries))
	mux.HandleFunc("POST /api/v1/pending", s.requirePending(s.addPending))

	// Imports
	mux.HandleFunc("POST /api/v1/downloads/imported", s.requireBus(s.downloadImported))

	// Events
	mux.HandleFunc("GET /api/v1/events", s.requireEventLog(s.listEvents))

	// Push and metrics
	if s.deps.Notifier != nil {
		mux.Handle("GET /api/v1/ws", s.deps.Notifier)
	}
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.deps.Gatherer))
	}
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeQueueError maps removal and grab failures to HTTP responses.
func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, pending.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, download.ErrClientUnavailable):
		writeError(w, http.StatusBadRequest, "CLIENT_UNAVAILABLE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request, name string) (int64, error) {
	idStr := r.PathValue(name)
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryBool extracts an optional boolean from query string.
func queryBool(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// queryList splits comma-separated and repeated query values, dropping blanks.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryInts parses a list of integers, skipping values that do not parse.
func queryInts(r *http.Request, name string) []int {
	var out []int
	for _, v := range queryList(r, name) {
		if i, err := strconv.Atoi(v); err == nil {
			out = append(out, i)
		}
	}
	return out
}

func queryInt64s(r *http.Request, name string) []int64 {
	var out []int64
	for _, v := range queryList(r, name) {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, i)
		}
	}
	return out
}

// queryProtocol parses an optional protocol. Unknown names yield nil.
func queryProtocol(r *http.Request, name string) *download.Protocol {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	p, err := download.ParseProtocol(val)
	if err != nil || p == download.ProtocolUnknown {
		return nil
	}
	return &p
}
