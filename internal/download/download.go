// Package download talks to download clients and records which releases were grabbed.
package download

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination=mocks/downloader.go -package=mocks . Downloader

// Protocol is the transport a release is downloaded over.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolUsenet
	ProtocolTorrent
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUsenet:
		return "usenet"
	case ProtocolTorrent:
		return "torrent"
	default:
		return "unknown"
	}
}

// ParseProtocol parses a protocol name (case-insensitive).
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usenet", "nzb":
		return ProtocolUsenet, nil
	case "torrent":
		return ProtocolTorrent, nil
	case "unknown", "":
		return ProtocolUnknown, nil
	default:
		return ProtocolUnknown, fmt.Errorf("unknown protocol %q", s)
	}
}

// MarshalText encodes the protocol by name.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a protocol name.
func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ClientItem is one download as reported by a download client.
type ClientItem struct {
	DownloadID string
	Title      string
	Category   string
	Status     Status
	Message    string
	Size       int64 // bytes
	SizeLeft   int64 // bytes
	// TimeLeft is nil when the client cannot estimate completion.
	TimeLeft   *time.Duration
	OutputPath string
}

// Downloader is a download client adapter.
// Every method returns ErrClientUnavailable when the client cannot be reached.
type Downloader interface {
	// Name is the configured name of the client instance.
	Name() string
	// Protocol is the protocol this client downloads.
	Protocol() Protocol
	// Add hands a release URL to the client and returns the client's download id.
	Add(ctx context.Context, url, category string) (string, error)
	// List returns the client's current items in the configured category.
	List(ctx context.Context) ([]ClientItem, error)
	// Remove deletes an item, optionally with its downloaded data.
	Remove(ctx context.Context, downloadID string, deleteData bool) error
	// MarkImported moves an item to the post-import category.
	MarkImported(ctx context.Context, downloadID string) error
}
