package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/queue"
)

// Client wraps HTTP calls to the arrq server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new arrq API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	return c.do(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.do(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string, body any, result any) error {
	return c.do(http.MethodDelete, path, body, result)
}

func (c *Client) do(method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// QueueOptions selects one page of the queue.
type QueueOptions struct {
	Page          int
	PageSize      int
	SortKey       string
	SortDirection string
	Statuses      []string
	SeriesIDs     []int64
	Protocol      string
	IncludeAll    bool
}

func (o QueueOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.SortKey != "" {
		v.Set("sortKey", o.SortKey)
	}
	if o.SortDirection != "" {
		v.Set("sortDirection", o.SortDirection)
	}
	for _, s := range o.Statuses {
		v.Add("status", s)
	}
	for _, id := range o.SeriesIDs {
		v.Add("seriesIds", strconv.FormatInt(id, 10))
	}
	if o.Protocol != "" {
		v.Set("protocol", o.Protocol)
	}
	if o.IncludeAll {
		v.Set("includeUnknownSeriesItems", "true")
	}
	return v
}

// Queue fetches one page of the queue.
func (c *Client) Queue(opts QueueOptions) (*queue.Page, error) {
	path := "/api/v1/queue"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var page queue.Page
	if err := c.get(path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RemoveOptions mirrors the removal flags the server accepts.
type RemoveOptions struct {
	RemoveFromClient bool
	Blocklist        bool
	SkipRedownload   bool
	ChangeCategory   bool
}

func (o RemoveOptions) query() string {
	v := url.Values{}
	v.Set("removeFromClient", strconv.FormatBool(o.RemoveFromClient))
	v.Set("blocklist", strconv.FormatBool(o.Blocklist))
	v.Set("skipRedownload", strconv.FormatBool(o.SkipRedownload))
	v.Set("changeCategory", strconv.FormatBool(o.ChangeCategory))
	return v.Encode()
}

// RemoveQueueItem removes one queue item.
func (c *Client) RemoveQueueItem(id int, opts RemoveOptions) error {
	return c.delete(fmt.Sprintf("/api/v1/queue/%d?%s", id, opts.query()), nil, nil)
}

// RemoveQueueItems removes several queue items in one request.
func (c *Client) RemoveQueueItems(ids []int, opts RemoveOptions) (*BulkRemoveResponse, error) {
	var resp BulkRemoveResponse
	if err := c.delete("/api/v1/queue/bulk?"+opts.query(), map[string][]int{"ids": ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GrabPending sends a pending release to its download client now.
func (c *Client) GrabPending(id int) error {
	return c.post(fmt.Sprintf("/api/v1/queue/grab/%d", id), nil, nil)
}

// Blocklist fetches one page of the blocklist.
func (c *Client) Blocklist(page, pageSize int) (*BlocklistPage, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(pageSize))
	var resp BlocklistPage
	if err := c.get("/api/v1/blocklist?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteBlocklist removes one blocklist entry.
func (c *Client) DeleteBlocklist(id int64) error {
	return c.delete(fmt.Sprintf("/api/v1/blocklist/%d", id), nil, nil)
}

// DeleteBlocklistMany removes several blocklist entries.
func (c *Client) DeleteBlocklistMany(ids []int64) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.delete("/api/v1/blocklist/bulk", map[string][]int64{"ids": ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// AddSeries adds a series and its episodes to the library.
func (c *Client) AddSeries(req AddSeriesRequest) (*library.Series, error) {
	var series library.Series
	if err := c.post("/api/v1/series", req, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// AddPending defers a release until its release time.
func (c *Client) AddPending(req AddPendingRequest) (*pending.Release, error) {
	var rel pending.Release
	if err := c.post("/api/v1/pending", req, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// MarkImported reports that a download was imported.
func (c *Client) MarkImported(client, downloadID string) error {
	return c.post("/api/v1/downloads/imported", map[string]string{
		"client":     client,
		"downloadId": downloadID,
	}, nil)
}

// Events fetches the most recent events, only those at or after since when it is set.
func (c *Client) Events(limit int, since time.Time) (*ListEventsResponse, error) {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	if !since.IsZero() {
		v.Set("since", since.UTC().Format(time.RFC3339))
	}
	var resp ListEventsResponse
	if err := c.get("/api/v1/events?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// API request and response types (mirror server types)

type BulkRemoveResponse struct {
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

type BlocklistPage struct {
	Page         int               `json:"page"`
	PageSize     int               `json:"pageSize"`
	TotalRecords int               `json:"totalRecords"`
	Records      []blocklist.Entry `json:"records"`
}

type AddSeriesRequest struct {
	Title    string              `json:"title"`
	Episodes []AddEpisodeRequest `json:"episodes"`
}

type AddEpisodeRequest struct {
	Season int    `json:"seasonNumber"`
	Number int    `json:"episodeNumber"`
	Title  string `json:"title,omitempty"`
}

type AddPendingRequest struct {
	Title       string     `json:"title"`
	DownloadURL string     `json:"downloadUrl"`
	Indexer     string     `json:"indexer"`
	Protocol    string     `json:"protocol"`
	Size        int64      `json:"size"`
	Reason      string     `json:"reason,omitempty"`
	ReleaseAt   *time.Time `json:"releaseAt,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"eventType"`
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	OccurredAt string `json:"occurredAt"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}
