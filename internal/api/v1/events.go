package v1

import (
	"net/http"
	"time"

	"github.com/vmunix/arrq/internal/events"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		raw []events.RawEvent
		err error
	)
	if entityType := r.URL.Query().Get("entityType"); entityType != "" {
		raw, err = s.deps.EventLog.ForEntity(entityType, int64(queryInt(r, "entityId", 0)))
	} else if since := r.URL.Query().Get("since"); since != "" {
		t, perr := time.Parse(time.RFC3339, since)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC 3339 time")
			return
		}
		raw, err = s.deps.EventLog.Since(t)
		// Oldest first; keep the newest limit events.
		if err == nil && len(raw) > limit {
			raw = raw[len(raw)-limit:]
		}
	} else {
		raw, err = s.deps.EventLog.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items: make([]EventResponse, len(raw)),
		Total: len(raw),
	}
	for i, e := range raw {
		resp.Items[i] = EventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
