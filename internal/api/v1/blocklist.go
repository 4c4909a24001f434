package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmunix/arrq/internal/blocklist"
)

const defaultBlocklistPageSize = 20

func (s *Server) listBlocklist(w http.ResponseWriter, r *http.Request) {
	page := max(queryInt(r, "page", 1), 1)
	pageSize := queryInt(r, "pageSize", defaultBlocklistPageSize)
	if pageSize < 1 {
		pageSize = defaultBlocklistPageSize
	}

	entries, total, err := s.deps.Blocklist.List(blocklist.Filter{
		SeriesIDs: queryInt64s(r, "seriesIds"),
		Protocol:  queryProtocol(r, "protocol"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if entries == nil {
		entries = []*blocklist.Entry{}
	}

	writeJSON(w, http.StatusOK, blocklistPage{
		Page:         page,
		PageSize:     pageSize,
		TotalRecords: total,
		Records:      entries,
	})
}

func (s *Server) deleteBlocklistEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id")
		return
	}

	if err := s.deps.Blocklist.Delete(id); err != nil {
		if errors.Is(err, blocklist.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "blocklist entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteBlocklistEntries(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	n, err := s.deps.Blocklist.DeleteMany(req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: n})
}
