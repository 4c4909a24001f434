package tracked

import (
	"slices"
	"time"

	"github.com/vmunix/arrq/internal/download"
)

// State is the reconciled lifecycle state of a tracked download.
type State string

const (
	StateDownloading State = "downloading"
	StateWarning     State = "warning"
	StateImporting   State = "importing"
	StateImported    State = "imported"
	StateFailed      State = "failed"
	StateIgnored     State = "ignored"
)

var validTransitions = map[State][]State{
	StateDownloading: {StateWarning, StateImporting, StateFailed, StateIgnored},
	StateWarning:     {StateDownloading, StateImporting, StateFailed, StateIgnored},
	StateImporting:   {StateImported, StateWarning, StateFailed, StateIgnored},
	StateImported:    {},
	StateFailed:      {},
	StateIgnored:     {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s State) CanTransitionTo(target State) bool {
	return slices.Contains(validTransitions[s], target)
}

// IsTerminal reports whether s has no outgoing transitions.
func (s State) IsTerminal() bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

const (
	messageNoFiles = "No files found are eligible for import"
	messageStalled = "The download is stalled with no progress"
)

// deriveState maps a client's raw status onto the state machine.
// lastProgress is when sizeLeft last decreased; a zero stallTimeout disables stall detection.
func deriveState(item download.ClientItem, lastProgress, now time.Time, stallTimeout time.Duration) (State, []string) {
	switch item.Status {
	case download.StatusFailed:
		return StateFailed, messages(item.Message)
	case download.StatusCompleted:
		if item.OutputPath == "" {
			return StateWarning, []string{messageNoFiles}
		}
		return StateImporting, nil
	case download.StatusWarning:
		return StateWarning, messages(item.Message)
	case download.StatusDownloading:
		if stallTimeout > 0 && !lastProgress.IsZero() && now.Sub(lastProgress) > stallTimeout {
			return StateWarning, []string{messageStalled}
		}
	}
	return StateDownloading, nil
}

func messages(msg string) []string {
	if msg == "" {
		return nil
	}
	return []string{msg}
}
