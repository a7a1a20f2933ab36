package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	gosync "sync"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/observability"
	"github.com/jmylchreest/tvcat/internal/repository"
	"github.com/jmylchreest/tvcat/pkg/classify"
	"github.com/jmylchreest/tvcat/pkg/m3u"
	"github.com/jmylchreest/tvcat/pkg/xtream"
	"gorm.io/gorm"
)

// unknownSeriesName groups episodes whose series could not be resolved.
const unknownSeriesName = "Unknown Series"

// Counts reports what a successful playlist sync produced.
type Counts struct {
	Channels int
	Movies   int
	Series   int
	Episodes int
}

// Service orchestrates playlist synchronization for M3U and Xtream sources.
type Service struct {
	db         *database.DB
	sources    repository.PlaylistSourceRepository
	cfg        config.IngestionConfig
	downloader *Downloader
	state      *StateManager
	logger     *slog.Logger
}

// NewService creates a playlist sync service.
func NewService(db *database.DB, cfg config.IngestionConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "playlist-sync")

	return &Service{
		db:         db,
		sources:    repository.NewPlaylistSourceRepository(db.DB),
		cfg:        cfg,
		downloader: NewDownloader(cfg, logger),
		state:      NewStateManager(),
		logger:     logger,
	}
}

// Sync synchronizes a single playlist source by ID. The source's sync status
// is set to syncing before any network I/O, and always resolves to success
// or failed when the attempt ends.
func (s *Service) Sync(ctx context.Context, id models.ULID) error {
	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if source == nil {
		return models.ErrSourceNotFound
	}
	return s.syncSource(ctx, source)
}

// SyncByName synchronizes a single playlist source by its unique name.
func (s *Service) SyncByName(ctx context.Context, name string) error {
	source, err := s.sources.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if source == nil {
		return models.ErrSourceNotFound
	}
	return s.syncSource(ctx, source)
}

func (s *Service) syncSource(ctx context.Context, source *models.PlaylistSource) error {
	if !source.Enabled {
		return models.ErrSourceDisabled
	}
	if err := s.state.Begin(source.ID); err != nil {
		return err
	}
	defer s.state.End(source.ID)

	log := observability.WithSource(s.logger, source.Name)

	source.MarkSyncing()
	if err := s.sources.Update(ctx, source); err != nil {
		return fmt.Errorf("marking source syncing: %w", err)
	}

	var syncErr error
	done := observability.TimedOperationWithError(ctx, log, "sync_playlist", &syncErr)
	defer done()

	var counts Counts
	switch source.Kind {
	case models.SourceKindM3U:
		counts, syncErr = s.syncM3U(ctx, source, log)
	case models.SourceKindXtream:
		counts, syncErr = s.syncXtream(ctx, source, log)
	default:
		syncErr = models.ErrInvalidSourceKind
	}

	if syncErr != nil {
		source.MarkFailed(syncErr)
		if err := s.sources.Update(ctx, source); err != nil {
			log.Error("recording sync failure", slog.String("error", err.Error()))
		}
		return syncErr
	}

	source.MarkSuccess(counts.Channels, counts.Movies, counts.Series)
	if err := s.sources.Update(ctx, source); err != nil {
		return fmt.Errorf("recording sync success: %w", err)
	}

	log.Info("playlist sync complete",
		slog.Int("channels", counts.Channels),
		slog.Int("movies", counts.Movies),
		slog.Int("series", counts.Series),
		slog.Int("episodes", counts.Episodes),
	)
	return nil
}

// SyncAll synchronizes every enabled source, at most cfg.MaxConcurrent at a time.
func (s *Service) SyncAll(ctx context.Context) error {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return err
	}

	maxConcurrent := s.cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	errs := make([]error, len(sources))
	var wg gosync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, source *models.PlaylistSource) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.syncSource(ctx, source); err != nil {
				errs[i] = fmt.Errorf("source %s: %w", source.Name, err)
			}
		}(i, source)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Delete removes a source and all catalog content it owns.
func (s *Service) Delete(ctx context.Context, id models.ULID) error {
	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if source == nil {
		return models.ErrSourceNotFound
	}

	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.purgeContent(ctx, tx, id); err != nil {
			return err
		}
		return repository.NewPlaylistSourceRepository(tx).Delete(ctx, id)
	})
}

// purgeContent removes all catalog rows owned by a source within tx.
// Episodes go first so the series rows they reference still exist for the
// subquery.
func (s *Service) purgeContent(ctx context.Context, tx *gorm.DB, sourceID models.ULID) error {
	if err := repository.NewEpisodeRepository(tx).DeleteBySourceID(ctx, sourceID); err != nil {
		return err
	}
	if err := repository.NewSeriesRepository(tx).DeleteBySourceID(ctx, sourceID); err != nil {
		return err
	}
	if err := repository.NewMovieRepository(tx).DeleteBySourceID(ctx, sourceID); err != nil {
		return err
	}
	return repository.NewChannelRepository(tx).DeleteBySourceID(ctx, sourceID)
}

// syncM3U downloads an M3U playlist, parses it, and replaces the source's
// catalog content with the result.
func (s *Service) syncM3U(ctx context.Context, source *models.PlaylistSource, log *slog.Logger) (Counts, error) {
	body, err := s.downloader.Fetch(ctx, source.URL)
	if err != nil {
		return Counts{}, err
	}
	defer body.Close()

	var entries []*m3u.Entry
	parser := &m3u.Parser{
		OnEntry: func(entry *m3u.Entry) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			entries = append(entries, entry)
			return nil
		},
		OnError: func(lineNum int, err error) {
			log.Debug("skipping malformed playlist line",
				slog.Int("line", lineNum),
				slog.String("error", err.Error()),
			)
		},
	}
	if err := parser.ParseCompressed(body); err != nil {
		return Counts{}, fmt.Errorf("parsing playlist: %w", err)
	}

	batch := s.partitionEntries(source.ID, entries)

	counts, err := s.replaceContent(ctx, source.ID, batch)
	if err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// catalogBatch holds the partitioned rows destined for one source's catalog.
type catalogBatch struct {
	channels []*models.Channel
	movies   []*models.Movie
	series   []*seriesGroup
}

// seriesGroup is a series together with its episodes, accumulated before the
// series row has an ID.
type seriesGroup struct {
	series   *models.Series
	episodes []*models.Episode
	seasons  map[int]struct{}
}

// partitionEntries splits parsed playlist entries into channel, movie and
// series/episode rows. Live and unclassified entries become channels.
func (s *Service) partitionEntries(sourceID models.ULID, entries []*m3u.Entry) *catalogBatch {
	batch := &catalogBatch{}
	groups := make(map[string]*seriesGroup)
	var order []string

	for _, entry := range entries {
		switch entry.Type {
		case classify.Movie:
			movie := &models.Movie{
				SourceID:   sourceID,
				Title:      entry.Name,
				StreamURL:  entry.URL,
				PosterURL:  entry.LogoURL,
				GroupTitle: entry.GroupTitle,
				Headers:    models.HeaderMap(entry.Headers),
			}
			if entry.Year > 0 {
				year := entry.Year
				movie.Year = &year
			}
			batch.movies = append(batch.movies, movie)

		case classify.Episode, classify.Series:
			name := strings.TrimSpace(entry.SeriesName)
			if name == "" {
				name = strings.TrimSpace(entry.GroupTitle)
			}
			if name == "" {
				name = unknownSeriesName
			}

			group, ok := groups[name]
			if !ok {
				group = &seriesGroup{
					series: &models.Series{
						SourceID:   sourceID,
						Name:       name,
						PosterURL:  entry.LogoURL,
						GroupTitle: entry.GroupTitle,
					},
					seasons: make(map[int]struct{}),
				}
				groups[name] = group
				order = append(order, name)
			}

			// Only explicitly parsed seasons count toward SeasonCount;
			// stored episodes still land in season 1.
			if entry.Season > 0 {
				group.seasons[entry.Season] = struct{}{}
			}
			season := entry.Season
			if season <= 0 {
				season = 1
			}
			group.episodes = append(group.episodes, &models.Episode{
				Title:     entry.Name,
				StreamURL: entry.URL,
				Season:    season,
				Number:    entry.Episode,
				PosterURL: entry.LogoURL,
				Headers:   models.HeaderMap(entry.Headers),
			})

		default: // live and unknown entries are browseable channels
			batch.channels = append(batch.channels, &models.Channel{
				SourceID:    sourceID,
				Name:        entry.Name,
				StreamURL:   entry.URL,
				LogoURL:     entry.LogoURL,
				GroupTitle:  entry.GroupTitle,
				TvgID:       entry.TvgID,
				TvgName:     entry.TvgName,
				TvgCountry:  entry.TvgCountry,
				TvgLanguage: entry.TvgLanguage,
				Headers:     models.HeaderMap(entry.Headers),
			})
		}
	}

	for _, name := range order {
		group := groups[name]
		group.series.EpisodeCount = len(group.episodes)
		group.series.SeasonCount = len(group.seasons)
		batch.series = append(batch.series, group)
	}

	return batch
}

// replaceContent purges a source's catalog rows and inserts the new batch in
// a single transaction, so an aborted sync leaves the old catalog intact.
func (s *Service) replaceContent(ctx context.Context, sourceID models.ULID, batch *catalogBatch) (Counts, error) {
	var counts Counts

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.purgeContent(ctx, tx, sourceID); err != nil {
			return err
		}

		channelRepo := repository.NewChannelRepository(tx)
		movieRepo := repository.NewMovieRepository(tx)
		seriesRepo := repository.NewSeriesRepository(tx)
		episodeRepo := repository.NewEpisodeRepository(tx)

		if err := channelRepo.CreateInBatches(ctx, batch.channels, s.cfg.ChannelBatchSize); err != nil {
			return err
		}
		if err := movieRepo.CreateInBatches(ctx, batch.movies, s.cfg.ChannelBatchSize); err != nil {
			return err
		}

		for _, group := range batch.series {
			if err := seriesRepo.Create(ctx, group.series); err != nil {
				return err
			}
			for _, episode := range group.episodes {
				episode.SeriesID = group.series.ID
			}
			if err := episodeRepo.CreateInBatches(ctx, group.episodes, s.cfg.ChannelBatchSize); err != nil {
				return err
			}
			counts.Episodes += len(group.episodes)
		}

		counts.Channels = len(batch.channels)
		counts.Movies = len(batch.movies)
		counts.Series = len(batch.series)
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("replacing catalog content: %w", err)
	}

	return counts, nil
}

// syncXtream queries an Xtream provider and replaces the source's catalog
// content. Authentication failure aborts the sync; any individual catalog
// call failing degrades to an empty result for that call.
func (s *Service) syncXtream(ctx context.Context, source *models.PlaylistSource, log *slog.Logger) (Counts, error) {
	creds := xtream.Credentials{
		Server:   source.URL,
		Username: source.Username,
		Password: source.Password,
	}
	client := xtream.NewClient(creds, xtream.WithHTTPClient(s.downloader.HTTPClient()))

	if _, err := client.Authenticate(ctx); err != nil {
		return Counts{}, fmt.Errorf("authenticating: %w", err)
	}

	batch := &catalogBatch{}

	// Live channels
	liveCategories := categoryNames(ctx, log, "live", client.GetLiveCategories)
	for _, stream := range fetchOrEmpty(ctx, log, "live streams", client.GetLiveStreams) {
		batch.channels = append(batch.channels, &models.Channel{
			SourceID:   source.ID,
			Name:       stream.Name,
			StreamURL:  creds.LiveStreamURL(stream.StreamID.Int(), ""),
			LogoURL:    stream.StreamIcon,
			GroupTitle: liveCategories[stream.CategoryID.String()],
			TvgID:      stream.EPGChannelID,
		})
	}

	// Movies
	vodCategories := categoryNames(ctx, log, "vod", client.GetVODCategories)
	for _, stream := range fetchOrEmpty(ctx, log, "vod streams", client.GetVODStreams) {
		ext := stream.ContainerExtension
		if ext == "" {
			ext = "mkv"
		}
		rating := stream.Rating.String()
		if rating == "" && stream.Rating5Based.Float() > 0 {
			rating = strconv.FormatFloat(stream.Rating5Based.Float(), 'f', -1, 64)
		}
		batch.movies = append(batch.movies, &models.Movie{
			SourceID:     source.ID,
			Title:        stream.Name,
			StreamURL:    creds.VODStreamURL(stream.StreamID.Int(), ext),
			PosterURL:    stream.StreamIcon,
			GroupTitle:   vodCategories[stream.CategoryID.String()],
			Rating:       rating,
			ContainerExt: ext,
		})
	}

	// Series and episodes
	seriesCategories := categoryNames(ctx, log, "series", client.GetSeriesCategories)
	for _, sr := range fetchOrEmpty(ctx, log, "series list", client.GetSeries) {
		genre := sr.Genre
		if genre == "" {
			genre = seriesCategories[sr.CategoryID.String()]
		}
		group := &seriesGroup{
			series: &models.Series{
				SourceID:   source.ID,
				Name:       sr.Name,
				PosterURL:  sr.Cover,
				GroupTitle: genre,
				Plot:       sr.Plot,
			},
			seasons: make(map[int]struct{}),
		}

		info, err := client.GetSeriesInfo(ctx, sr.SeriesID.Int())
		if err != nil {
			log.Warn("fetching series episodes failed, keeping empty series",
				slog.String("series", sr.Name),
				slog.String("error", err.Error()),
			)
		} else {
			group.episodes = xtreamEpisodes(creds, info, group.seasons)
		}

		group.series.EpisodeCount = len(group.episodes)
		group.series.SeasonCount = len(group.seasons)
		batch.series = append(batch.series, group)
	}

	return s.replaceContent(ctx, source.ID, batch)
}

// xtreamEpisodes flattens a series info response into episode rows, walking
// seasons in numeric order so inserts are deterministic.
func xtreamEpisodes(creds xtream.Credentials, info *xtream.SeriesInfo, seasons map[int]struct{}) []*models.Episode {
	keys := make([]string, 0, len(info.Episodes))
	for key := range info.Episodes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return seasonKeyNum(keys[i]) < seasonKeyNum(keys[j])
	})

	var episodes []*models.Episode
	for _, key := range keys {
		for _, ep := range info.Episodes[key] {
			season := int(ep.Season.Int())
			if season <= 0 {
				season = seasonKeyNum(key)
			}
			if season <= 0 {
				season = 1
			}
			seasons[season] = struct{}{}

			title := ep.Title
			if title == "" {
				title = fmt.Sprintf("Episode %d", ep.EpisodeNum.Int())
			}

			ext := ep.ContainerExtension
			if ext == "" {
				ext = "mkv"
			}

			episodes = append(episodes, &models.Episode{
				Title:     title,
				StreamURL: creds.SeriesStreamURL(ep.ID.Int(), ext),
				Season:    season,
				Number:    int(ep.EpisodeNum.Int()),
				PosterURL: ep.Info.MovieImage,
			})
		}
	}
	return episodes
}

// seasonKeyNum parses a season map key ("1", "2", ...) to its number.
func seasonKeyNum(key string) int {
	n := 0
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// categoryNames fetches a category list and returns an id -> name map,
// degrading to an empty map on failure.
func categoryNames(ctx context.Context, log *slog.Logger, kind string, fetch func(context.Context) ([]xtream.Category, error)) map[string]string {
	names := make(map[string]string)
	categories, err := fetch(ctx)
	if err != nil {
		log.Warn("fetching categories failed, group titles will be empty",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return names
	}
	for _, c := range categories {
		names[c.CategoryID.String()] = c.CategoryName
	}
	return names
}

// fetchOrEmpty runs a catalog listing call and degrades to an empty slice on
// failure so one broken endpoint does not abort the whole sync.
func fetchOrEmpty[T any](ctx context.Context, log *slog.Logger, what string, fetch func(context.Context) ([]T, error)) []T {
	items, err := fetch(ctx)
	if err != nil {
		log.Warn("catalog call failed, continuing with empty result",
			slog.String("call", what),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return items
}
