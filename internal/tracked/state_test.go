package tracked

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vmunix/arrq/internal/download"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateDownloading, StateImporting, true},
		{StateDownloading, StateWarning, true},
		{StateDownloading, StateImported, false},
		{StateWarning, StateDownloading, true},
		{StateImporting, StateImported, true},
		{StateImporting, StateDownloading, false},
		{StateImported, StateDownloading, false},
		{StateFailed, StateDownloading, false},
		{StateIgnored, StateFailed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	assert.True(t, StateImported.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateIgnored.IsTerminal())
	assert.False(t, StateDownloading.IsTerminal())
	assert.False(t, StateWarning.IsTerminal())
	assert.False(t, State("bogus").IsTerminal())
	assert.False(t, State("bogus").Valid())
}

func TestDeriveState(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Minute)
	old := now.Add(-2 * time.Hour)

	tests := []struct {
		name         string
		item         download.ClientItem
		lastProgress time.Time
		want         State
		wantMsg      bool
	}{
		{"queued", download.ClientItem{Status: download.StatusQueued}, old, StateDownloading, false},
		{"paused is not stalled", download.ClientItem{Status: download.StatusPaused}, old, StateDownloading, false},
		{"downloading", download.ClientItem{Status: download.StatusDownloading}, recent, StateDownloading, false},
		{"stalled", download.ClientItem{Status: download.StatusDownloading}, old, StateWarning, true},
		{"completed", download.ClientItem{Status: download.StatusCompleted, OutputPath: "/dl/x"}, old, StateImporting, false},
		{"completed without files", download.ClientItem{Status: download.StatusCompleted}, old, StateWarning, true},
		{"client warning", download.ClientItem{Status: download.StatusWarning, Message: "missing"}, recent, StateWarning, true},
		{"failed", download.ClientItem{Status: download.StatusFailed, Message: "CRC"}, recent, StateFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msgs := deriveState(tt.item, tt.lastProgress, now, time.Hour)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, len(msgs) > 0)
		})
	}
}

func TestDeriveState_StallDisabled(t *testing.T) {
	now := time.Now()
	got, _ := deriveState(download.ClientItem{Status: download.StatusDownloading}, now.Add(-24*time.Hour), now, 0)
	assert.Equal(t, StateDownloading, got)
}

func TestHashQueueID(t *testing.T) {
	a := hashQueueID(Key{"sab", "nzo_1"})
	assert.Equal(t, a, hashQueueID(Key{"sab", "nzo_1"}), "stable across calls")
	assert.NotEqual(t, a, hashQueueID(Key{"sab", "nzo_2"}))
	assert.NotEqual(t, hashQueueID(Key{"ab", "cd"}), hashQueueID(Key{"abc", "d"}))

	for _, k := range []Key{{"", ""}, {"sab", "x"}, {"qbit", "ABCDEF"}} {
		id := hashQueueID(k)
		assert.GreaterOrEqual(t, id, 1)
		assert.Less(t, id, queueIDSpace)
	}
}
