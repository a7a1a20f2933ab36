package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/observability"
	"github.com/jmylchreest/tvcat/internal/repository"
	"github.com/jmylchreest/tvcat/pkg/xmltv"
	"github.com/jmylchreest/tvcat/pkg/xtream"
)

// ErrNoEPGSource indicates a source has no EPG URL and no way to derive one.
var ErrNoEPGSource = errors.New("source has no EPG URL")

// EPGService synchronizes programme guide data from XMLTV feeds.
type EPGService struct {
	sources    repository.PlaylistSourceRepository
	programmes repository.EpgProgrammeRepository
	cfg        config.IngestionConfig
	downloader *Downloader
	logger     *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewEPGService creates an EPG sync service.
func NewEPGService(db *database.DB, cfg config.IngestionConfig, logger *slog.Logger) *EPGService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "epg-sync")

	return &EPGService{
		sources:    repository.NewPlaylistSourceRepository(db.DB),
		programmes: repository.NewEpgProgrammeRepository(db.DB),
		cfg:        cfg,
		downloader: NewDownloader(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Sync downloads and ingests guide data for a source, returning the number of
// programmes stored. Sources without an explicit EPG URL fall back to the
// provider's XMLTV endpoint when they are Xtream sources.
func (s *EPGService) Sync(ctx context.Context, sourceID models.ULID) (int, error) {
	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if source == nil {
		return 0, models.ErrSourceNotFound
	}

	url, err := s.guideURL(source)
	if err != nil {
		return 0, err
	}

	log := observability.WithSource(s.logger, source.Name)

	var syncErr error
	done := observability.TimedOperationWithError(ctx, log, "sync_epg", &syncErr)
	defer done()

	var count int
	count, syncErr = s.syncGuide(ctx, url, log)
	return count, syncErr
}

// guideURL resolves the XMLTV URL for a source.
func (s *EPGService) guideURL(source *models.PlaylistSource) (string, error) {
	if source.EpgURL != "" {
		return source.EpgURL, nil
	}
	if source.IsXtream() {
		creds := xtream.Credentials{
			Server:   source.URL,
			Username: source.Username,
			Password: source.Password,
		}
		return creds.XMLTVURL(), nil
	}
	return "", ErrNoEPGSource
}

// syncGuide downloads and parses one XMLTV feed, then prunes finished
// programmes and inserts the new ones in a single transaction.
func (s *EPGService) syncGuide(ctx context.Context, url string, log *slog.Logger) (int, error) {
	body, err := s.downloader.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	var programmes []*models.EpgProgramme
	parser := &xmltv.Parser{
		OnProgramme: func(p *xmltv.Programme) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			programmes = append(programmes, &models.EpgProgramme{
				ChannelID:   p.Channel,
				Title:       p.Title,
				SubTitle:    p.SubTitle,
				Description: p.Description,
				Category:    p.Category,
				IconURL:     p.Icon,
				EpisodeNum:  p.EpisodeNum,
				Rating:      p.Rating,
				Start:       p.Start,
				Stop:        p.Stop,
			})
			return nil
		},
		OnError: func(err error) {
			log.Debug("skipping malformed guide element", slog.String("error", err.Error()))
		},
	}
	if err := parser.ParseCompressed(body); err != nil {
		return 0, fmt.Errorf("parsing guide: %w", err)
	}

	err = s.programmes.Transaction(ctx, func(repo repository.EpgProgrammeRepository) error {
		expired, err := repo.DeleteExpired(ctx, s.now())
		if err != nil {
			return err
		}
		if expired > 0 {
			log.Debug("pruned finished programmes", slog.Int64("count", expired))
		}
		return repo.CreateInBatches(ctx, programmes, s.cfg.EPGBatchSize)
	})
	if err != nil {
		return 0, fmt.Errorf("storing guide: %w", err)
	}

	log.Info("guide sync complete", slog.Int("programmes", len(programmes)))
	return len(programmes), nil
}

// CurrentProgramme returns the programme airing on a channel right now, or
// nil when the guide has no entry covering the current time.
func (s *EPGService) CurrentProgramme(ctx context.Context, channelID string) (*models.EpgProgramme, error) {
	return s.programmes.GetCurrentByChannelID(ctx, channelID, s.now())
}

// NextProgramme returns the next programme to start on a channel, or nil
// when nothing later is scheduled.
func (s *EPGService) NextProgramme(ctx context.Context, channelID string) (*models.EpgProgramme, error) {
	return s.programmes.GetNextByChannelID(ctx, channelID, s.now())
}

// Guide returns a channel's programmes overlapping the given window.
func (s *EPGService) Guide(ctx context.Context, channelID string, start, end time.Time) ([]*models.EpgProgramme, error) {
	return s.programmes.GetByChannelID(ctx, channelID, start, end)
}

// Search finds programmes whose title matches the query.
func (s *EPGService) Search(ctx context.Context, query string) ([]*models.EpgProgramme, error) {
	return s.programmes.Search(ctx, query)
}

// Count returns the total number of stored programmes.
func (s *EPGService) Count(ctx context.Context) (int64, error) {
	return s.programmes.Count(ctx)
}

// Stats summarizes the stored guide window.
func (s *EPGService) Stats(ctx context.Context) (repository.GuideStats, error) {
	return s.programmes.Stats(ctx)
}
