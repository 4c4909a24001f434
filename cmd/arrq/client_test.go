package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/queue"
)

func TestClientQueue_Params(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/queue").
		ExpectMethod(http.MethodGet).
		RespondJSON(http.StatusOK, queue.Page{
			Page:         2,
			PageSize:     10,
			TotalRecords: 11,
			Records: []queue.Item{
				{ID: 7, Title: "Andor.S01E02.1080p.WEB-DL", Status: queue.StatusDownloading, Size: 1000, SizeLeft: 250},
			},
		})
	srv := m.Build()

	page, err := NewClient(srv.URL).Queue(QueueOptions{
		Page:          2,
		PageSize:      10,
		SortKey:       "timeleft",
		SortDirection: "descending",
		Statuses:      []string{"downloading", "failed"},
		SeriesIDs:     []int64{3, 4},
		Protocol:      "usenet",
		IncludeAll:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, page.TotalRecords)
	require.Len(t, page.Records, 1)
	assert.Equal(t, queue.StatusDownloading, page.Records[0].Status)

	q, err := url.ParseQuery(m.lastQuery)
	require.NoError(t, err)
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("pageSize"))
	assert.Equal(t, "timeleft", q.Get("sortKey"))
	assert.Equal(t, "descending", q.Get("sortDirection"))
	assert.Equal(t, []string{"downloading", "failed"}, q["status"])
	assert.Equal(t, []string{"3", "4"}, q["seriesIds"])
	assert.Equal(t, "usenet", q.Get("protocol"))
	assert.Equal(t, "true", q.Get("includeUnknownSeriesItems"))
}

func TestClientQueue_NoParams(t *testing.T) {
	m := newMockServer(t).RespondJSON(http.StatusOK, queue.Page{Records: []queue.Item{}})
	srv := m.Build()

	page, err := NewClient(srv.URL).Queue(QueueOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, m.lastQuery)
}

func TestClientQueue_ServerError(t *testing.T) {
	srv := newMockServer(t).RespondError(http.StatusInternalServerError, `{"error":"boom"}`).Build()

	_, err := NewClient(srv.URL).Queue(QueueOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClientRemoveQueueItem(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/queue/42").
		ExpectMethod(http.MethodDelete).
		RespondStatus(http.StatusNoContent)
	srv := m.Build()

	err := NewClient(srv.URL).RemoveQueueItem(42, RemoveOptions{RemoveFromClient: false, Blocklist: true, ChangeCategory: true})
	require.NoError(t, err)

	q, err := url.ParseQuery(m.lastQuery)
	require.NoError(t, err)
	assert.Equal(t, "false", q.Get("removeFromClient"))
	assert.Equal(t, "true", q.Get("blocklist"))
	assert.Equal(t, "false", q.Get("skipRedownload"))
	assert.Equal(t, "true", q.Get("changeCategory"))
}

func TestClientRemoveQueueItem_NotFound(t *testing.T) {
	srv := newMockServer(t).RespondError(http.StatusNotFound, `{"error":"queue item not found","code":"NOT_FOUND"}`).Build()

	err := NewClient(srv.URL).RemoveQueueItem(999, RemoveOptions{RemoveFromClient: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientRemoveQueueItems(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/queue/bulk").
		ExpectMethod(http.MethodDelete).
		RespondJSON(http.StatusOK, BulkRemoveResponse{Removed: 1, Errors: []string{"queue item 3: not found"}})
	srv := m.Build()

	resp, err := NewClient(srv.URL).RemoveQueueItems([]int{2, 3}, RemoveOptions{RemoveFromClient: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Removed)
	assert.Len(t, resp.Errors, 1)

	var body struct {
		IDs []int `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(m.lastBody, &body))
	assert.Equal(t, []int{2, 3}, body.IDs)
}

func TestClientGrabPending(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/queue/grab/1073741829").
		ExpectMethod(http.MethodPost).
		RespondStatus(http.StatusNoContent).
		Build()

	require.NoError(t, NewClient(srv.URL).GrabPending(1073741829))
}

func TestClientBlocklist(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/blocklist").
		RespondJSON(http.StatusOK, BlocklistPage{
			Page:         1,
			PageSize:     20,
			TotalRecords: 1,
			Records:      []blocklist.Entry{{ID: 5, SourceTitle: "Bad.Release", Date: time.Now()}},
		})
	srv := m.Build()

	resp, err := NewClient(srv.URL).Blocklist(1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Bad.Release", resp.Records[0].SourceTitle)
	assert.Equal(t, "page=1&pageSize=20", m.lastQuery)
}

func TestClientDeleteBlocklistMany(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/blocklist/bulk").
		ExpectMethod(http.MethodDelete).
		RespondJSON(http.StatusOK, map[string]int64{"deleted": 2})
	srv := m.Build()

	n, err := NewClient(srv.URL).DeleteBlocklistMany([]int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.JSONEq(t, `{"ids":[1,2]}`, string(m.lastBody))
}

func TestClientMarkImported(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/downloads/imported").
		ExpectMethod(http.MethodPost).
		RespondStatus(http.StatusAccepted)
	srv := m.Build()

	require.NoError(t, NewClient(srv.URL).MarkImported("sab", "SAB_1"))
	assert.JSONEq(t, `{"client":"sab","downloadId":"SAB_1"}`, string(m.lastBody))
}

func TestClientEvents(t *testing.T) {
	m := newMockServer(t).
		ExpectPath("/api/v1/events").
		RespondJSON(http.StatusOK, ListEventsResponse{
			Items: []EventResponse{{ID: 1, EventType: "download.removed", EntityType: "download", EntityID: 3}},
			Total: 1,
		})
	srv := m.Build()

	resp, err := NewClient(srv.URL).Events(5, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "limit=5", m.lastQuery)

	since := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = NewClient(srv.URL).Events(5, since)
	require.NoError(t, err)
	assert.Equal(t, "limit=5&since=2024-06-01T12%3A00%3A00Z", m.lastQuery)
}
