package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/tvcat/internal/models"
	"gorm.io/gorm"
)

// episodeRepo implements EpisodeRepository using GORM.
type episodeRepo struct {
	db *gorm.DB
}

// NewEpisodeRepository creates a new EpisodeRepository.
func NewEpisodeRepository(db *gorm.DB) *episodeRepo {
	return &episodeRepo{db: db}
}

// Create creates a new episode.
func (r *episodeRepo) Create(ctx context.Context, episode *models.Episode) error {
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return fmt.Errorf("creating episode: %w", err)
	}
	return nil
}

// CreateBatch creates multiple episodes in a single batch.
func (r *episodeRepo) CreateBatch(ctx context.Context, episodes []*models.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(episodes).Error; err != nil {
		return fmt.Errorf("creating episode batch: %w", err)
	}
	return nil
}

// CreateInBatches creates multiple episodes in batches.
func (r *episodeRepo) CreateInBatches(ctx context.Context, episodes []*models.Episode, batchSize int) error {
	if len(episodes) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	if err := r.db.WithContext(ctx).CreateInBatches(episodes, batchSize).Error; err != nil {
		return fmt.Errorf("creating episodes in batches: %w", err)
	}
	return nil
}

// GetByID retrieves an episode by ID.
func (r *episodeRepo) GetByID(ctx context.Context, id models.ULID) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&episode).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting episode by ID: %w", err)
	}
	return &episode, nil
}

// GetBySeriesID retrieves all episodes for a series ordered by season and number.
func (r *episodeRepo) GetBySeriesID(ctx context.Context, seriesID models.ULID) ([]*models.Episode, error) {
	var episodes []*models.Episode
	if err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("season ASC, number ASC").
		Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("getting episodes by series ID: %w", err)
	}
	return episodes, nil
}

// GetBySeason retrieves the episodes of a single season ordered by number.
func (r *episodeRepo) GetBySeason(ctx context.Context, seriesID models.ULID, season int) ([]*models.Episode, error) {
	var episodes []*models.Episode
	if err := r.db.WithContext(ctx).
		Where("series_id = ? AND season = ?", seriesID, season).
		Order("number ASC").
		Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("getting episodes by season: %w", err)
	}
	return episodes, nil
}

// TouchWatched records the last watch time and resume position for an episode.
func (r *episodeRepo) TouchWatched(ctx context.Context, id models.ULID, at time.Time, positionMs int64) error {
	updates := map[string]any{
		"last_watched_at":  at,
		"last_position_ms": positionMs,
	}
	if err := r.db.WithContext(ctx).Model(&models.Episode{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("touching episode watch time: %w", err)
	}
	return nil
}

// Update updates an existing episode.
func (r *episodeRepo) Update(ctx context.Context, episode *models.Episode) error {
	if err := r.db.WithContext(ctx).Save(episode).Error; err != nil {
		return fmt.Errorf("updating episode: %w", err)
	}
	return nil
}

// Delete deletes an episode by ID.
func (r *episodeRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Episode{}).Error; err != nil {
		return fmt.Errorf("deleting episode: %w", err)
	}
	return nil
}

// DeleteBySeriesID deletes all episodes for a series.
func (r *episodeRepo) DeleteBySeriesID(ctx context.Context, seriesID models.ULID) error {
	if err := r.db.WithContext(ctx).Where("series_id = ?", seriesID).Delete(&models.Episode{}).Error; err != nil {
		return fmt.Errorf("deleting episodes by series ID: %w", err)
	}
	return nil
}

// DeleteBySourceID deletes all episodes belonging to any series of a source.
// Done with a subquery rather than relying on FK cascades so it behaves the
// same on every supported driver.
func (r *episodeRepo) DeleteBySourceID(ctx context.Context, sourceID models.ULID) error {
	sub := r.db.WithContext(ctx).Model(&models.Series{}).Select("id").Where("source_id = ?", sourceID)
	if err := r.db.WithContext(ctx).Where("series_id IN (?)", sub).Delete(&models.Episode{}).Error; err != nil {
		return fmt.Errorf("deleting episodes by source ID: %w", err)
	}
	return nil
}

// CountBySeriesID returns the number of episodes for a series.
func (r *episodeRepo) CountBySeriesID(ctx context.Context, seriesID models.ULID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Episode{}).Where("series_id = ?", seriesID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting episodes: %w", err)
	}
	return count, nil
}

// Ensure episodeRepo implements EpisodeRepository at compile time.
var _ EpisodeRepository = (*episodeRepo)(nil)
