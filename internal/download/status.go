package download

// Status is the raw state a download client reports for an item.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusPaused      Status = "paused"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusWarning     Status = "warning"
)

// IsFinished reports whether the client has stopped working on the item.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the item is waiting for or receiving data.
func (s Status) IsActive() bool {
	switch s {
	case StatusQueued, StatusPaused, StatusDownloading:
		return true
	}
	return false
}
