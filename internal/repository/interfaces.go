// Package repository provides data access interfaces and GORM-backed
// implementations for playlist sources, catalog entities and EPG data.
package repository

import (
	"context"
	"time"

	"github.com/jmylchreest/tvcat/internal/models"
)

// PlaylistSourceRepository defines operations for managing playlist sources.
type PlaylistSourceRepository interface {
	Create(ctx context.Context, source *models.PlaylistSource) error
	GetByID(ctx context.Context, id models.ULID) (*models.PlaylistSource, error)
	GetByName(ctx context.Context, name string) (*models.PlaylistSource, error)
	GetAll(ctx context.Context) ([]*models.PlaylistSource, error)
	GetEnabled(ctx context.Context) ([]*models.PlaylistSource, error)
	Update(ctx context.Context, source *models.PlaylistSource) error
	Delete(ctx context.Context, id models.ULID) error
}

// ChannelRepository defines operations for managing live channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	CreateBatch(ctx context.Context, channels []*models.Channel) error
	CreateInBatches(ctx context.Context, channels []*models.Channel, batchSize int) error
	GetByID(ctx context.Context, id models.ULID) (*models.Channel, error)
	GetAll(ctx context.Context) ([]*models.Channel, error)
	GetBySourceID(ctx context.Context, sourceID models.ULID) ([]*models.Channel, error)
	GetByGroupTitle(ctx context.Context, groupTitle string) ([]*models.Channel, error)
	GetByTvgID(ctx context.Context, tvgID string) ([]*models.Channel, error)
	GetDistinctGroups(ctx context.Context) ([]string, error)
	GetFavorites(ctx context.Context) ([]*models.Channel, error)
	Search(ctx context.Context, query string) ([]*models.Channel, error)
	SetFavorite(ctx context.Context, id models.ULID, favorite bool) error
	TouchWatched(ctx context.Context, id models.ULID, at time.Time) error
	Update(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, id models.ULID) error
	DeleteBySourceID(ctx context.Context, sourceID models.ULID) error
	CountBySourceID(ctx context.Context, sourceID models.ULID) (int64, error)
	Transaction(ctx context.Context, fn func(ChannelRepository) error) error
}

// MovieRepository defines operations for managing VOD movies.
type MovieRepository interface {
	Create(ctx context.Context, movie *models.Movie) error
	CreateBatch(ctx context.Context, movies []*models.Movie) error
	CreateInBatches(ctx context.Context, movies []*models.Movie, batchSize int) error
	GetByID(ctx context.Context, id models.ULID) (*models.Movie, error)
	GetBySourceID(ctx context.Context, sourceID models.ULID) ([]*models.Movie, error)
	GetByGroupTitle(ctx context.Context, groupTitle string) ([]*models.Movie, error)
	GetDistinctGroups(ctx context.Context) ([]string, error)
	GetFavorites(ctx context.Context) ([]*models.Movie, error)
	Search(ctx context.Context, query string) ([]*models.Movie, error)
	SetFavorite(ctx context.Context, id models.ULID, favorite bool) error
	TouchWatched(ctx context.Context, id models.ULID, at time.Time, positionMs int64) error
	Update(ctx context.Context, movie *models.Movie) error
	Delete(ctx context.Context, id models.ULID) error
	DeleteBySourceID(ctx context.Context, sourceID models.ULID) error
	CountBySourceID(ctx context.Context, sourceID models.ULID) (int64, error)
}

// SeriesRepository defines operations for managing series.
type SeriesRepository interface {
	Create(ctx context.Context, series *models.Series) error
	CreateBatch(ctx context.Context, series []*models.Series) error
	GetByID(ctx context.Context, id models.ULID) (*models.Series, error)
	GetBySourceID(ctx context.Context, sourceID models.ULID) ([]*models.Series, error)
	GetByGroupTitle(ctx context.Context, groupTitle string) ([]*models.Series, error)
	GetDistinctGroups(ctx context.Context) ([]string, error)
	GetFavorites(ctx context.Context) ([]*models.Series, error)
	Search(ctx context.Context, query string) ([]*models.Series, error)
	Update(ctx context.Context, series *models.Series) error
	Delete(ctx context.Context, id models.ULID) error
	DeleteBySourceID(ctx context.Context, sourceID models.ULID) error
	CountBySourceID(ctx context.Context, sourceID models.ULID) (int64, error)
}

// EpisodeRepository defines operations for managing series episodes.
type EpisodeRepository interface {
	Create(ctx context.Context, episode *models.Episode) error
	CreateBatch(ctx context.Context, episodes []*models.Episode) error
	CreateInBatches(ctx context.Context, episodes []*models.Episode, batchSize int) error
	GetByID(ctx context.Context, id models.ULID) (*models.Episode, error)
	GetBySeriesID(ctx context.Context, seriesID models.ULID) ([]*models.Episode, error)
	GetBySeason(ctx context.Context, seriesID models.ULID, season int) ([]*models.Episode, error)
	TouchWatched(ctx context.Context, id models.ULID, at time.Time, positionMs int64) error
	Update(ctx context.Context, episode *models.Episode) error
	Delete(ctx context.Context, id models.ULID) error
	DeleteBySeriesID(ctx context.Context, seriesID models.ULID) error
	DeleteBySourceID(ctx context.Context, sourceID models.ULID) error
	CountBySeriesID(ctx context.Context, seriesID models.ULID) (int64, error)
}

// EpgProgrammeRepository defines operations for managing EPG programmes.
type EpgProgrammeRepository interface {
	Create(ctx context.Context, programme *models.EpgProgramme) error
	CreateBatch(ctx context.Context, programmes []*models.EpgProgramme) error
	CreateInBatches(ctx context.Context, programmes []*models.EpgProgramme, batchSize int) error
	GetByID(ctx context.Context, id models.ULID) (*models.EpgProgramme, error)
	GetByChannelID(ctx context.Context, channelID string, start, end time.Time) ([]*models.EpgProgramme, error)
	GetCurrentByChannelID(ctx context.Context, channelID string, now time.Time) (*models.EpgProgramme, error)
	GetNextByChannelID(ctx context.Context, channelID string, now time.Time) (*models.EpgProgramme, error)
	Search(ctx context.Context, query string) ([]*models.EpgProgramme, error)
	DeleteByChannelID(ctx context.Context, channelID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (GuideStats, error)
	Transaction(ctx context.Context, fn func(EpgProgrammeRepository) error) error
}

// GuideStats summarizes the stored guide: total programmes and the
// time window they span. Earliest and Latest are zero when the guide
// is empty.
type GuideStats struct {
	Programmes int64
	Earliest   time.Time
	Latest     time.Time
}
