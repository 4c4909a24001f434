package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrq/internal/config"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/quality"
)

func TestScheduler_RunsJobsUntilCanceled(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func() { runs.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	require.NoError(t, s.Add("boom", "@every 1s", func() {
		runs.Add(1)
		panic("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(nil)

	err := s.Add("sweep", "every minute", func() {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")
}

func TestNewClients(t *testing.T) {
	clients, err := NewClients(config.DownloadersConfig{
		"qbit": {Type: "qbittorrent", URL: "http://localhost:8081"},
		"nzb":  {Type: "sabnzbd", URL: "http://localhost:8080", APIKey: "key"},
		"gone": nil,
	}, nil)

	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "nzb", clients[0].Name())
	assert.Equal(t, download.ProtocolUsenet, clients[0].Protocol())
	assert.Equal(t, "qbit", clients[1].Name())
	assert.Equal(t, download.ProtocolTorrent, clients[1].Protocol())
}

func TestNewClients_UnknownType(t *testing.T) {
	_, err := NewClients(config.DownloadersConfig{"x": {Type: "nzbget"}}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nzbget")
}

func TestRankingFrom(t *testing.T) {
	r := rankingFrom(config.QualityConfig{
		Order:     []string{"WEBDL-1080p", "bogus", "SDTV"},
		Languages: []string{"French", "English"},
	})

	sd := quality.Model{Quality: quality.SDTV, Revision: 1}
	web := quality.Model{Quality: quality.WEBDL1080p, Revision: 1}
	assert.Positive(t, r.CompareQuality(sd, web))
	assert.Positive(t, r.CompareLanguages(
		[]quality.Language{quality.LanguageEnglish},
		[]quality.Language{quality.LanguageFrench},
	))
}
