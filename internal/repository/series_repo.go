package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/tvcat/internal/models"
	"gorm.io/gorm"
)

// seriesRepo implements SeriesRepository using GORM.
type seriesRepo struct {
	db *gorm.DB
}

// NewSeriesRepository creates a new SeriesRepository.
func NewSeriesRepository(db *gorm.DB) *seriesRepo {
	return &seriesRepo{db: db}
}

// Create creates a new series.
func (r *seriesRepo) Create(ctx context.Context, series *models.Series) error {
	if err := r.db.WithContext(ctx).Create(series).Error; err != nil {
		return fmt.Errorf("creating series: %w", err)
	}
	return nil
}

// CreateBatch creates multiple series in a single batch.
func (r *seriesRepo) CreateBatch(ctx context.Context, series []*models.Series) error {
	if len(series) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(series).Error; err != nil {
		return fmt.Errorf("creating series batch: %w", err)
	}
	return nil
}

// GetByID retrieves a series by ID, including its episodes.
func (r *seriesRepo) GetByID(ctx context.Context, id models.ULID) (*models.Series, error) {
	var series models.Series
	if err := r.db.WithContext(ctx).
		Preload("Episodes", func(db *gorm.DB) *gorm.DB {
			return db.Order("season ASC, number ASC")
		}).
		Where("id = ?", id).
		First(&series).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting series by ID: %w", err)
	}
	return &series, nil
}

// GetBySourceID retrieves all series for a source.
func (r *seriesRepo) GetBySourceID(ctx context.Context, sourceID models.ULID) ([]*models.Series, error) {
	var series []*models.Series
	if err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("name ASC").
		Find(&series).Error; err != nil {
		return nil, fmt.Errorf("getting series by source ID: %w", err)
	}
	return series, nil
}

// GetByGroupTitle retrieves series by group/category.
func (r *seriesRepo) GetByGroupTitle(ctx context.Context, groupTitle string) ([]*models.Series, error) {
	var series []*models.Series
	if err := r.db.WithContext(ctx).
		Where("group_title = ?", groupTitle).
		Order("name ASC").
		Find(&series).Error; err != nil {
		return nil, fmt.Errorf("getting series by group_title: %w", err)
	}
	return series, nil
}

// GetDistinctGroups returns all unique group titles.
func (r *seriesRepo) GetDistinctGroups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := r.db.WithContext(ctx).
		Model(&models.Series{}).
		Distinct("group_title").
		Where("group_title != ''").
		Order("group_title ASC").
		Pluck("group_title", &groups).Error; err != nil {
		return nil, fmt.Errorf("getting distinct groups: %w", err)
	}
	return groups, nil
}

// GetFavorites retrieves all series marked as favorite.
func (r *seriesRepo) GetFavorites(ctx context.Context) ([]*models.Series, error) {
	var series []*models.Series
	if err := r.db.WithContext(ctx).
		Where("favorite = ?", true).
		Order("name ASC").
		Find(&series).Error; err != nil {
		return nil, fmt.Errorf("getting favorite series: %w", err)
	}
	return series, nil
}

// Search retrieves series whose name matches the query (case-insensitive substring).
func (r *seriesRepo) Search(ctx context.Context, query string) ([]*models.Series, error) {
	var series []*models.Series
	if err := r.db.WithContext(ctx).
		Where("name LIKE ?", "%"+query+"%").
		Order("name ASC").
		Find(&series).Error; err != nil {
		return nil, fmt.Errorf("searching series: %w", err)
	}
	return series, nil
}

// Update updates an existing series.
func (r *seriesRepo) Update(ctx context.Context, series *models.Series) error {
	if err := r.db.WithContext(ctx).Save(series).Error; err != nil {
		return fmt.Errorf("updating series: %w", err)
	}
	return nil
}

// Delete deletes a series by ID.
func (r *seriesRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Series{}).Error; err != nil {
		return fmt.Errorf("deleting series: %w", err)
	}
	return nil
}

// DeleteBySourceID deletes all series for a source.
func (r *seriesRepo) DeleteBySourceID(ctx context.Context, sourceID models.ULID) error {
	if err := r.db.WithContext(ctx).Where("source_id = ?", sourceID).Delete(&models.Series{}).Error; err != nil {
		return fmt.Errorf("deleting series by source ID: %w", err)
	}
	return nil
}

// CountBySourceID returns the number of series for a source.
func (r *seriesRepo) CountBySourceID(ctx context.Context, sourceID models.ULID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Series{}).Where("source_id = ?", sourceID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting series: %w", err)
	}
	return count, nil
}

// Ensure seriesRepo implements SeriesRepository at compile time.
var _ SeriesRepository = (*seriesRepo)(nil)
