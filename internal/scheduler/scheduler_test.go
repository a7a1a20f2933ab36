package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupSchedulerTest(t *testing.T) (*database.DB, *Scheduler) {
	t.Helper()

	dbCfg := config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             ":memory:",
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        "silent",
	}
	db, err := database.New(dbCfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	ingestCfg := config.IngestionConfig{
		ChannelBatchSize: 100,
		EPGBatchSize:     100,
		HTTPTimeout:      5 * time.Second,
		MaxConcurrent:    2,
		RetryAttempts:    1,
		RetryDelay:       5 * time.Millisecond,
	}
	sources := repository.NewPlaylistSourceRepository(db.DB)
	playlists := ingest.NewService(db, ingestCfg, discardLogger())
	epg := ingest.NewEPGService(db, ingestCfg, discardLogger())

	sched := New(sources, playlists, epg, config.SchedulerConfig{CheckInterval: time.Minute}, discardLogger())

	return db, sched
}

func TestScheduler_IsDue(t *testing.T) {
	_, sched := setupSchedulerTest(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return now }

	hourAgo := now.Add(-time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	tests := []struct {
		name   string
		source models.PlaylistSource
		due    bool
	}{
		{"never synced", models.PlaylistSource{RefreshIntervalHours: 24}, true},
		{"interval not elapsed", models.PlaylistSource{RefreshIntervalHours: 24, LastSyncAt: &hourAgo}, false},
		{"interval elapsed", models.PlaylistSource{RefreshIntervalHours: 24, LastSyncAt: &twoDaysAgo}, true},
		{"zero interval defaults to daily", models.PlaylistSource{LastSyncAt: &twoDaysAgo}, true},
		{"cron due", models.PlaylistSource{RefreshCron: "0 12 * * *", LastSyncAt: &hourAgo}, true},
		{"cron not due", models.PlaylistSource{RefreshCron: "0 3 * * *", LastSyncAt: &hourAgo}, false},
		{"invalid cron never due", models.PlaylistSource{RefreshCron: "nonsense", LastSyncAt: &twoDaysAgo}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, sched.isDue(&tt.source))
		})
	}
}

func TestScheduler_CheckSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Test\nhttp://host/live/s.ts\n")
	}))
	defer server.Close()

	db, sched := setupSchedulerTest(t)
	ctx := context.Background()
	repo := repository.NewPlaylistSourceRepository(db.DB)

	auto := &models.PlaylistSource{
		Name:        "auto",
		Kind:        models.SourceKindM3U,
		URL:         server.URL,
		AutoRefresh: true,
	}
	require.NoError(t, repo.Create(ctx, auto))

	manual := &models.PlaylistSource{
		Name: "manual",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	}
	require.NoError(t, repo.Create(ctx, manual))

	sched.CheckSources(ctx)

	synced, err := repo.GetByID(ctx, auto.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, synced.LastSyncStatus)
	assert.Equal(t, 1, synced.ChannelCount)

	untouched, err := repo.GetByID(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, untouched.LastSyncStatus)
}

func TestScheduler_CheckSourcesSkipsFreshSource(t *testing.T) {
	db, sched := setupSchedulerTest(t)
	ctx := context.Background()
	repo := repository.NewPlaylistSourceRepository(db.DB)

	// Recently synced; the URL is unreachable so an attempted sync would
	// flip the status to failed.
	source := &models.PlaylistSource{
		Name:        "fresh",
		Kind:        models.SourceKindM3U,
		URL:         "http://example.invalid/list.m3u",
		AutoRefresh: true,
	}
	require.NoError(t, repo.Create(ctx, source))
	source.MarkSuccess(1, 0, 0)
	require.NoError(t, repo.Update(ctx, source))

	sched.CheckSources(ctx)

	after, err := repo.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, after.LastSyncStatus)
}

func TestScheduler_RefreshSkipsRunningSync(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var requests atomic.Int32
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		once.Do(func() { close(entered) })
		<-release
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Test\nhttp://host/live/s.ts\n")
	}))
	defer server.Close()

	db, sched := setupSchedulerTest(t)
	ctx := context.Background()
	repo := repository.NewPlaylistSourceRepository(db.DB)

	source := &models.PlaylistSource{
		Name:        "busy",
		Kind:        models.SourceKindM3U,
		URL:         server.URL,
		AutoRefresh: true,
	}
	require.NoError(t, repo.Create(ctx, source))

	done := make(chan error, 1)
	go func() { done <- sched.playlists.Sync(ctx, source.ID) }()
	<-entered

	// A second sync of the same source reports in-progress.
	err := sched.playlists.Sync(ctx, source.ID)
	require.ErrorIs(t, err, models.ErrSyncInProgress)

	// The refresh path treats that as a skip, not a failure, and does
	// not issue another download.
	sched.refresh(ctx, source)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), requests.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	_, sched := setupSchedulerTest(t)

	require.NoError(t, sched.Start(context.Background()))
	assert.Error(t, sched.Start(context.Background()), "double start must fail")
	sched.Stop()

	// A stopped scheduler can be started again.
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
}
