package v1

import (
	"encoding/json"
	"net/http"

	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/queue"
)

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	spec := queue.PagingSpec{
		Page:          queryInt(r, "page", 1),
		PageSize:      queryInt(r, "pageSize", 0),
		SortKey:       r.URL.Query().Get("sortKey"),
		SortDirection: r.URL.Query().Get("sortDirection"),
	}

	f := queue.Filter{
		SeriesIDs:            queryInt64s(r, "seriesIds"),
		Protocol:             queryProtocol(r, "protocol"),
		Languages:            queryInts(r, "languages"),
		Qualities:            queryInts(r, "quality"),
		IncludeUnknownSeries: queryBool(r, "includeUnknownSeriesItems", false),
	}
	for _, st := range queryList(r, "status") {
		f.Statuses = append(f.Statuses, queue.Status(st))
	}

	writeJSON(w, http.StatusOK, s.deps.Queue.GetQueue(spec, f))
}

// removeOptions reads the removal flags. removeFromClient defaults to true.
func removeOptions(r *http.Request) queue.RemoveOptions {
	return queue.RemoveOptions{
		RemoveFromClient: queryBool(r, "removeFromClient", true),
		Blocklist:        queryBool(r, "blocklist", false),
		SkipRedownload:   queryBool(r, "skipRedownload", false),
		ChangeCategory:   queryBool(r, "changeCategory", false),
	}
}

func (s *Server) removeQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id")
		return
	}

	if err := s.deps.Remover.Remove(r.Context(), int(id), removeOptions(r)); err != nil {
		s.log.Debug("remove failed", "id", id, "error", err)
		writeQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeQueueItems(w http.ResponseWriter, r *http.Request) {
	var req bulkRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	n, err := s.deps.Remover.RemoveMany(r.Context(), req.IDs, removeOptions(r))
	resp := bulkRemoveResponse{Removed: n}
	if err != nil {
		s.log.Warn("bulk remove incomplete", "requested", len(req.IDs), "removed", n, "error", err)
		if n == 0 {
			writeQueueError(w, err)
			return
		}
		for _, e := range unwrapJoined(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) grabPending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id")
		return
	}
	if id < pending.QueueIDBase {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "only pending releases can be grabbed")
		return
	}

	if err := s.deps.Grabber.GrabNow(r.Context(), int(id)); err != nil {
		writeQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
