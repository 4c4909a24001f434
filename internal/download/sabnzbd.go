package download

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SABnzbdClient is the usenet download client adapter for SABnzbd.
type SABnzbdClient struct {
	name             string
	baseURL          string
	apiKey           string
	category         string
	importedCategory string
	httpClient       *http.Client
	log              *slog.Logger
}

// SABnzbdOptions configures a SABnzbd adapter.
type SABnzbdOptions struct {
	Name             string
	URL              string
	APIKey           string
	Category         string
	ImportedCategory string
	Timeout          time.Duration
}

// NewSABnzbdClient creates a new SABnzbd client.
func NewSABnzbdClient(opts SABnzbdOptions, log *slog.Logger) *SABnzbdClient {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "sabnzbd"
	}
	return &SABnzbdClient{
		name:             opts.Name,
		baseURL:          strings.TrimSuffix(opts.URL, "/"),
		apiKey:           opts.APIKey,
		category:         opts.Category,
		importedCategory: opts.ImportedCategory,
		log:              log.With("component", "sabnzbd", "client", opts.Name),
		httpClient:       &http.Client{Timeout: opts.Timeout},
	}
}

// Name returns the configured client name.
func (c *SABnzbdClient) Name() string { return c.name }

// Protocol returns ProtocolUsenet.
func (c *SABnzbdClient) Protocol() Protocol { return ProtocolUsenet }

// Add sends an NZB URL to SABnzbd. An empty category uses the configured one.
func (c *SABnzbdClient) Add(ctx context.Context, nzbURL, category string) (string, error) {
	if category == "" {
		category = c.category
	}
	c.log.Debug("adding nzb", "category", category)

	var resp addResponse
	if err := c.doRequest(ctx, url.Values{
		"mode": {"addurl"},
		"name": {nzbURL},
		"cat":  {category},
	}, &resp); err != nil {
		return "", err
	}

	if !resp.Status {
		if isAPIKeyError(resp.Error) {
			return "", ErrInvalidAPIKey
		}
		return "", fmt.Errorf("sabnzbd add failed: %s", resp.Error)
	}
	if len(resp.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd returned no nzo_id")
	}

	c.log.Debug("nzb added", "nzo_id", resp.NzoIDs[0])
	return resp.NzoIDs[0], nil
}

// List returns queue items followed by history items in the configured category.
func (c *SABnzbdClient) List(ctx context.Context) ([]ClientItem, error) {
	queue, err := c.getQueue(ctx)
	if err != nil {
		return nil, err
	}
	history, err := c.getHistory(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]ClientItem, 0, len(queue)+len(history))
	items = append(items, queue...)
	items = append(items, history...)
	return items, nil
}

// Remove deletes an item from the queue, or from history once it has finished.
func (c *SABnzbdClient) Remove(ctx context.Context, downloadID string, deleteData bool) error {
	c.log.Debug("removing download", "download_id", downloadID, "delete_data", deleteData)

	queue, err := c.getQueue(ctx)
	if err != nil {
		return err
	}
	mode := "history"
	for _, item := range queue {
		if item.DownloadID == downloadID {
			mode = "queue"
			break
		}
	}

	delFiles := "0"
	if deleteData {
		delFiles = "1"
	}

	var resp statusResponse
	if err := c.doRequest(ctx, url.Values{
		"mode":      {mode},
		"name":      {"delete"},
		"value":     {downloadID},
		"del_files": {delFiles},
	}, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("sabnzbd remove %s: %w", downloadID, ErrDownloadNotFound)
	}

	c.log.Debug("download removed", "download_id", downloadID, "mode", mode)
	return nil
}

// MarkImported moves the item to the post-import category.
func (c *SABnzbdClient) MarkImported(ctx context.Context, downloadID string) error {
	if c.importedCategory == "" {
		return fmt.Errorf("sabnzbd %s: no imported category configured", c.name)
	}

	var resp statusResponse
	if err := c.doRequest(ctx, url.Values{
		"mode":   {"change_cat"},
		"value":  {downloadID},
		"value2": {c.importedCategory},
	}, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("sabnzbd change category %s: %w", downloadID, ErrDownloadNotFound)
	}
	return nil
}

func (c *SABnzbdClient) getQueue(ctx context.Context) ([]ClientItem, error) {
	params := url.Values{"mode": {"queue"}}
	if c.category != "" {
		params.Set("cat", c.category)
	}

	var resp queueResponse
	if err := c.doRequest(ctx, params, &resp); err != nil {
		return nil, err
	}

	paused := resp.Queue.Paused
	items := make([]ClientItem, 0, len(resp.Queue.Slots))
	for _, slot := range resp.Queue.Slots {
		status := mapQueueStatus(slot.Status)
		if paused && status != StatusPaused {
			status = StatusQueued
		}
		item := ClientItem{
			DownloadID: slot.NzoID,
			Title:      slot.Filename,
			Category:   slot.Category,
			Status:     status,
			Size:       megabytes(slot.MB),
			SizeLeft:   megabytes(slot.MBLeft),
		}
		// A paused queue reports a meaningless time left.
		if status == StatusDownloading {
			if left, ok := parseTimeLeft(slot.TimeLeft); ok {
				item.TimeLeft = &left
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *SABnzbdClient) getHistory(ctx context.Context) ([]ClientItem, error) {
	params := url.Values{"mode": {"history"}}
	if c.category != "" {
		params.Set("category", c.category)
	}

	var resp historyResponse
	if err := c.doRequest(ctx, params, &resp); err != nil {
		return nil, err
	}

	items := make([]ClientItem, 0, len(resp.History.Slots))
	for _, slot := range resp.History.Slots {
		status := mapHistoryStatus(slot.Status)
		item := ClientItem{
			DownloadID: slot.NzoID,
			Title:      slot.Name,
			Category:   slot.Category,
			Status:     status,
			Message:    slot.FailMessage,
			Size:       slot.Bytes,
			OutputPath: slot.Storage,
		}
		if status == StatusCompleted {
			zero := time.Duration(0)
			item.TimeLeft = &zero
		} else {
			item.OutputPath = ""
		}
		items = append(items, item)
	}
	return items, nil
}

// doRequest performs an HTTP request to the SABnzbd API.
// Transport failures map to ErrClientUnavailable.
func (c *SABnzbdClient) doRequest(ctx context.Context, params url.Values, result any) error {
	start := time.Now()
	mode := params.Get("mode")
	params.Set("apikey", c.apiKey)
	params.Set("output", "json")
	reqURL := c.baseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "mode", mode, "error", err)
		return fmt.Errorf("sabnzbd %s: %w", c.name, ErrClientUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("api unexpected status", "mode", mode, "status", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("sabnzbd %s status %d: %w", c.name, resp.StatusCode, ErrClientUnavailable)
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug("api request complete", "mode", mode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

type statusResponse struct {
	Status bool `json:"status"`
}

type queueResponse struct {
	Queue struct {
		Paused bool        `json:"paused"`
		Slots  []queueSlot `json:"slots"`
	} `json:"queue"`
}

type queueSlot struct {
	NzoID    string `json:"nzo_id"`
	Filename string `json:"filename"`
	Category string `json:"cat"`
	Status   string `json:"status"`
	MB       string `json:"mb"`
	MBLeft   string `json:"mbleft"`
	TimeLeft string `json:"timeleft"`
}

type historyResponse struct {
	History struct {
		Slots []historySlot `json:"slots"`
	} `json:"history"`
}

type historySlot struct {
	NzoID       string `json:"nzo_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	FailMessage string `json:"fail_message"`
	Bytes       int64  `json:"bytes"`
	Storage     string `json:"storage"`
}

func mapQueueStatus(sabStatus string) Status {
	switch sabStatus {
	case "Paused":
		return StatusPaused
	case "Queued", "Propagating", "Grabbing":
		return StatusQueued
	default:
		return StatusDownloading
	}
}

func mapHistoryStatus(sabStatus string) Status {
	switch sabStatus {
	case "Completed":
		return StatusCompleted
	case "Failed":
		return StatusFailed
	default:
		// Verifying, Repairing, Extracting, Moving, Running: post-processing.
		return StatusDownloading
	}
}

func isAPIKeyError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "apikey")
}

// megabytes converts SABnzbd's decimal MB strings to bytes.
func megabytes(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(f * 1024 * 1024)
}

// parseTimeLeft parses "H:MM:SS" or "D:HH:MM:SS".
func parseTimeLeft(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return 0, false
	}
	units := []time.Duration{time.Second, time.Minute, time.Hour, 24 * time.Hour}
	var total time.Duration
	for i := range parts {
		n, err := strconv.Atoi(parts[len(parts)-1-i])
		if err != nil || n < 0 {
			return 0, false
		}
		total += time.Duration(n) * units[i]
	}
	return total, true
}
