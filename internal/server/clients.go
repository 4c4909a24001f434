package server

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/vmunix/arrq/internal/config"
	"github.com/vmunix/arrq/internal/download"
)

// NewClients builds the configured download clients ordered by name.
func NewClients(cfg config.DownloadersConfig, log *slog.Logger) ([]download.Downloader, error) {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	slices.Sort(names)

	clients := make([]download.Downloader, 0, len(names))
	for _, name := range names {
		dc := cfg[name]
		if dc == nil {
			continue
		}
		switch dc.Type {
		case "sabnzbd":
			clients = append(clients, download.NewSABnzbdClient(download.SABnzbdOptions{
				Name:             name,
				URL:              dc.URL,
				APIKey:           dc.APIKey,
				Category:         dc.Category,
				ImportedCategory: dc.ImportedCategory,
				Timeout:          dc.Timeout,
			}, log))
		case "qbittorrent":
			clients = append(clients, download.NewQBittorrentClient(download.QBittorrentOptions{
				Name:             name,
				URL:              dc.URL,
				Username:         dc.Username,
				Password:         dc.Password,
				Category:         dc.Category,
				ImportedCategory: dc.ImportedCategory,
				Timeout:          dc.Timeout,
			}, log))
		default:
			return nil, fmt.Errorf("downloader %s: unknown type %q", name, dc.Type)
		}
	}
	return clients, nil
}
