package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/pending"
)

func (s *Server) addSeries(w http.ResponseWriter, r *http.Request) {
	var req addSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_SERIES", "title is required")
		return
	}

	tx, err := s.deps.Library.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	defer func() { _ = tx.Rollback() }()

	series := &library.Series{Title: req.Title, SortTitle: req.SortTitle}
	if err := tx.AddSeries(series); err != nil {
		writeLibraryError(w, err)
		return
	}
	for _, e := range req.Episodes {
		ep := &library.Episode{
			SeriesID:   series.ID,
			Season:     e.Season,
			Number:     e.Number,
			Title:      e.Title,
			AirDateUTC: e.AirDateUTC,
		}
		if err := tx.AddEpisode(ep); err != nil {
			writeLibraryError(w, err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	s.deps.Resolver.Invalidate()
	s.log.Info("series added", "series_id", series.ID, "title", series.Title, "episodes", len(req.Episodes))
	writeJSON(w, http.StatusCreated, series)
}

func writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrDuplicate):
		writeError(w, http.StatusConflict, "DUPLICATE", err.Error())
	case errors.Is(err, library.ErrConstraint):
		writeError(w, http.StatusBadRequest, "CONSTRAINT", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
	}
}

func (s *Server) addPending(w http.ResponseWriter, r *http.Request) {
	var req addPendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Title == "" || req.DownloadURL == "" {
		writeError(w, http.StatusBadRequest, "INVALID_RELEASE", "title and downloadUrl are required")
		return
	}

	remote, err := s.deps.Resolver.Resolve(req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "RESOLVE_ERROR", err.Error())
		return
	}
	if remote == nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN_SERIES", "release does not match a known series")
		return
	}

	rel := &pending.Release{
		Title:       req.Title,
		DownloadURL: req.DownloadURL,
		Indexer:     req.Indexer,
		Protocol:    req.Protocol,
		Size:        req.Size,
		Remote:      *remote,
		Reason:      req.Reason,
	}
	if req.ReleaseAt != nil {
		rel.ReleaseAt = req.ReleaseAt.UTC()
	}
	if err := s.deps.Pending.Add(rel); err != nil {
		if errors.Is(err, pending.ErrInvalidRelease) {
			writeError(w, http.StatusBadRequest, "INVALID_RELEASE", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) downloadImported(w http.ResponseWriter, r *http.Request) {
	var req importedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Client == "" || req.DownloadID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "client and downloadId are required")
		return
	}

	err := s.deps.Bus.Publish(r.Context(), &events.ImportCompleted{
		BaseEvent:  events.NewBaseEvent(events.EventImportCompleted, events.EntityDownload, 0),
		Client:     req.Client,
		DownloadID: req.DownloadID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
