package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// qbittorrentInfiniteETA is the eta qBittorrent reports when it cannot estimate one.
const qbittorrentInfiniteETA = 8640000

// QBittorrentClient is the torrent download client adapter for the qBittorrent Web API.
type QBittorrentClient struct {
	name             string
	baseURL          string
	username         string
	password         string
	category         string
	importedCategory string
	httpClient       *http.Client
	log              *slog.Logger

	mu  sync.Mutex
	sid *http.Cookie
}

// QBittorrentOptions configures a qBittorrent adapter.
type QBittorrentOptions struct {
	Name             string
	URL              string
	Username         string
	Password         string
	Category         string
	ImportedCategory string
	Timeout          time.Duration
}

// NewQBittorrentClient creates a new qBittorrent client.
func NewQBittorrentClient(opts QBittorrentOptions, log *slog.Logger) *QBittorrentClient {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "qbittorrent"
	}
	return &QBittorrentClient{
		name:             opts.Name,
		baseURL:          strings.TrimSuffix(opts.URL, "/"),
		username:         opts.Username,
		password:         opts.Password,
		category:         opts.Category,
		importedCategory: opts.ImportedCategory,
		httpClient:       &http.Client{Timeout: opts.Timeout},
		log:              log.With("component", "qbittorrent", "client", opts.Name),
	}
}

// Name returns the configured client name.
func (c *QBittorrentClient) Name() string { return c.name }

// Protocol returns ProtocolTorrent.
func (c *QBittorrentClient) Protocol() Protocol { return ProtocolTorrent }

// Add sends a magnet link to qBittorrent and returns its info hash.
func (c *QBittorrentClient) Add(ctx context.Context, magnet, category string) (string, error) {
	hash := magnetHash(magnet)
	if hash == "" {
		return "", fmt.Errorf("qbittorrent add: no info hash in %q", magnet)
	}
	if category == "" {
		category = c.category
	}

	form := url.Values{"urls": {magnet}}
	if category != "" {
		form.Set("category", category)
	}
	if _, err := c.post(ctx, "/api/v2/torrents/add", form); err != nil {
		return "", err
	}
	c.log.Debug("torrent added", "hash", hash)
	return hash, nil
}

// List returns torrents in the configured category.
func (c *QBittorrentClient) List(ctx context.Context) ([]ClientItem, error) {
	path := "/api/v2/torrents/info"
	if c.category != "" {
		path += "?" + url.Values{"category": {c.category}}.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var torrents []qbTorrent
	if err := json.Unmarshal(body, &torrents); err != nil {
		return nil, fmt.Errorf("decode torrents: %w", err)
	}

	items := make([]ClientItem, 0, len(torrents))
	for _, t := range torrents {
		status, message := mapTorrentState(t.State)
		item := ClientItem{
			DownloadID: strings.ToUpper(t.Hash),
			Title:      t.Name,
			Category:   t.Category,
			Status:     status,
			Message:    message,
			Size:       t.Size,
			SizeLeft:   t.AmountLeft,
		}
		if t.ETA >= 0 && t.ETA < qbittorrentInfiniteETA {
			left := time.Duration(t.ETA) * time.Second
			item.TimeLeft = &left
		}
		if status == StatusCompleted {
			item.OutputPath = t.ContentPath
			item.SizeLeft = 0
		}
		items = append(items, item)
	}
	return items, nil
}

// Remove deletes a torrent, optionally with its data.
func (c *QBittorrentClient) Remove(ctx context.Context, downloadID string, deleteData bool) error {
	c.log.Debug("removing torrent", "download_id", downloadID, "delete_data", deleteData)
	_, err := c.post(ctx, "/api/v2/torrents/delete", url.Values{
		"hashes":      {strings.ToLower(downloadID)},
		"deleteFiles": {fmt.Sprint(deleteData)},
	})
	return err
}

// MarkImported moves the torrent to the post-import category so it keeps seeding.
func (c *QBittorrentClient) MarkImported(ctx context.Context, downloadID string) error {
	if c.importedCategory == "" {
		return fmt.Errorf("qbittorrent %s: no imported category configured", c.name)
	}
	_, err := c.post(ctx, "/api/v2/torrents/setCategory", url.Values{
		"hashes":   {strings.ToLower(downloadID)},
		"category": {c.importedCategory},
	})
	return err
}

func (c *QBittorrentClient) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, form)
}

// do performs an authenticated request, logging in again once if the session expired.
func (c *QBittorrentClient) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		sid, err := c.session(ctx, attempt > 0)
		if err != nil {
			return nil, err
		}

		body, status, err := c.send(ctx, method, path, form, sid)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusForbidden:
			continue
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("qbittorrent %s %s: %w", c.name, path, ErrDownloadNotFound)
		case status >= http.StatusInternalServerError:
			return nil, fmt.Errorf("qbittorrent %s status %d: %w", c.name, status, ErrClientUnavailable)
		case status != http.StatusOK:
			return nil, fmt.Errorf("qbittorrent %s: unexpected status %d", path, status)
		}
		return body, nil
	}
	return nil, ErrInvalidAPIKey
}

func (c *QBittorrentClient) send(ctx context.Context, method, path string, form url.Values, sid *http.Cookie) ([]byte, int, error) {
	var reader io.Reader
	if form != nil {
		reader = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sid != nil {
		req.AddCookie(sid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", path, "error", err)
		return nil, 0, fmt.Errorf("qbittorrent %s: %w", c.name, ErrClientUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// session returns the cached SID cookie, logging in when there is none or refresh is set.
func (c *QBittorrentClient) session(ctx context.Context, refresh bool) (*http.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sid != nil && !refresh {
		return c.sid, nil
	}
	if c.username == "" {
		// Authentication disabled for local clients.
		return nil, nil
	}

	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qbittorrent %s login: %w", c.name, ErrClientUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qbittorrent %s login status %d: %w", c.name, resp.StatusCode, ErrInvalidAPIKey)
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "SID" {
			c.sid = cookie
			return cookie, nil
		}
	}
	return nil, fmt.Errorf("qbittorrent %s login rejected: %w", c.name, ErrInvalidAPIKey)
}

type qbTorrent struct {
	Hash        string `json:"hash"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	State       string `json:"state"`
	Size        int64  `json:"size"`
	AmountLeft  int64  `json:"amount_left"`
	ETA         int64  `json:"eta"`
	ContentPath string `json:"content_path"`
}

func mapTorrentState(state string) (Status, string) {
	switch state {
	case "error":
		return StatusWarning, "qBittorrent is reporting an error"
	case "missingFiles":
		return StatusWarning, "The download is missing files"
	case "stalledDL":
		return StatusWarning, "The download is stalled with no connections"
	case "pausedDL", "stoppedDL":
		return StatusPaused, ""
	case "queuedDL", "checkingDL", "checkingResumeData", "allocating", "metaDL", "forcedMetaDL", "moving":
		return StatusQueued, ""
	case "pausedUP", "stoppedUP", "uploading", "stalledUP", "queuedUP", "forcedUP", "checkingUP":
		return StatusCompleted, ""
	default:
		return StatusDownloading, ""
	}
}

// magnetHash extracts the btih info hash from a magnet link, upper-cased.
func magnetHash(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil || u.Scheme != "magnet" {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if hash, ok := strings.CutPrefix(xt, "urn:btih:"); ok {
			return strings.ToUpper(hash)
		}
	}
	return ""
}
