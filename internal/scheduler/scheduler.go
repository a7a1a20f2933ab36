// Package scheduler re-syncs playlist sources on their configured cadence.
// Sources refresh on a fixed hour interval or, when set, a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/ingest"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/observability"
	"github.com/jmylchreest/tvcat/internal/repository"
)

// Scheduler periodically checks auto-refresh sources and re-syncs the ones
// that are due.
type Scheduler struct {
	mu sync.Mutex

	sources   repository.PlaylistSourceRepository
	playlists *ingest.Service
	epg       *ingest.EPGService
	logger    *slog.Logger

	// cron parser for per-source refresh schedules
	parser cron.Parser

	checkInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler driving the given sync services.
func New(
	sources repository.PlaylistSourceRepository,
	playlists *ingest.Service,
	epg *ingest.EPGService,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = 5 * time.Minute
	}

	return &Scheduler{
		sources:       sources,
		playlists:     playlists,
		epg:           epg,
		logger:        observability.WithComponent(logger, "scheduler"),
		parser:        cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start begins the background check loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.checkLoop()

	s.logger.Info("scheduler started",
		slog.Duration("check_interval", s.checkInterval))

	return nil
}

// Stop stops the check loop and waits for any in-flight sync to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) checkLoop() {
	defer s.wg.Done()

	// Run immediately on start
	s.CheckSources(s.ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.CheckSources(s.ctx)
		}
	}
}

// CheckSources syncs every enabled auto-refresh source whose refresh is due.
func (s *Scheduler) CheckSources(ctx context.Context) {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		s.logger.Error("listing sources for scheduling", slog.Any("error", err))
		return
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			return
		}
		if !source.AutoRefresh {
			continue
		}
		if !s.isDue(source) {
			continue
		}
		s.refresh(ctx, source)
	}
}

// isDue reports whether a source's next refresh falls inside the current
// check window.
func (s *Scheduler) isDue(source *models.PlaylistSource) bool {
	now := s.now()

	if source.RefreshCron != "" {
		schedule, err := s.parser.Parse(source.RefreshCron)
		if err != nil {
			s.logger.Warn("invalid refresh cron expression",
				slog.String("source", source.Name),
				slog.String("cron", source.RefreshCron),
				slog.Any("error", err))
			return false
		}
		next := schedule.Next(now.Add(-s.checkInterval))
		return !next.After(now)
	}

	if source.LastSyncAt == nil {
		return true
	}

	interval := time.Duration(source.RefreshIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return now.Sub(*source.LastSyncAt) >= interval
}

// refresh runs the playlist sync and, when the source carries a guide, the
// EPG sync. A sync already running for the source is not an error.
func (s *Scheduler) refresh(ctx context.Context, source *models.PlaylistSource) {
	log := observability.WithSource(s.logger, source.Name)
	log.Info("scheduled refresh starting")

	if err := s.playlists.Sync(ctx, source.ID); err != nil {
		if errors.Is(err, models.ErrSyncInProgress) {
			log.Debug("refresh skipped, sync already running")
			return
		}
		log.Error("scheduled playlist sync failed", slog.Any("error", err))
		return
	}

	if source.EpgURL == "" && !source.IsXtream() {
		return
	}
	if _, err := s.epg.Sync(ctx, source.ID); err != nil {
		log.Error("scheduled guide sync failed", slog.Any("error", err))
	}
}
