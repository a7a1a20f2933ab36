package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/tvcat/internal/models"
	"gorm.io/gorm"
)

// movieRepo implements MovieRepository using GORM.
type movieRepo struct {
	db *gorm.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *gorm.DB) *movieRepo {
	return &movieRepo{db: db}
}

// Create creates a new movie.
func (r *movieRepo) Create(ctx context.Context, movie *models.Movie) error {
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return fmt.Errorf("creating movie: %w", err)
	}
	return nil
}

// CreateBatch creates multiple movies in a single batch.
func (r *movieRepo) CreateBatch(ctx context.Context, movies []*models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(movies).Error; err != nil {
		return fmt.Errorf("creating movie batch: %w", err)
	}
	return nil
}

// CreateInBatches creates multiple movies in batches.
func (r *movieRepo) CreateInBatches(ctx context.Context, movies []*models.Movie, batchSize int) error {
	if len(movies) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	if err := r.db.WithContext(ctx).CreateInBatches(movies, batchSize).Error; err != nil {
		return fmt.Errorf("creating movies in batches: %w", err)
	}
	return nil
}

// GetByID retrieves a movie by ID.
func (r *movieRepo) GetByID(ctx context.Context, id models.ULID) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&movie).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting movie by ID: %w", err)
	}
	return &movie, nil
}

// GetBySourceID retrieves all movies for a source.
func (r *movieRepo) GetBySourceID(ctx context.Context, sourceID models.ULID) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("title ASC").
		Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("getting movies by source ID: %w", err)
	}
	return movies, nil
}

// GetByGroupTitle retrieves movies by group/category.
func (r *movieRepo) GetByGroupTitle(ctx context.Context, groupTitle string) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).
		Where("group_title = ?", groupTitle).
		Order("title ASC").
		Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("getting movies by group_title: %w", err)
	}
	return movies, nil
}

// GetDistinctGroups returns all unique group titles.
func (r *movieRepo) GetDistinctGroups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Distinct("group_title").
		Where("group_title != ''").
		Order("group_title ASC").
		Pluck("group_title", &groups).Error; err != nil {
		return nil, fmt.Errorf("getting distinct groups: %w", err)
	}
	return groups, nil
}

// GetFavorites retrieves all movies marked as favorite.
func (r *movieRepo) GetFavorites(ctx context.Context) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).
		Where("favorite = ?", true).
		Order("title ASC").
		Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("getting favorite movies: %w", err)
	}
	return movies, nil
}

// Search retrieves movies whose title matches the query (case-insensitive substring).
func (r *movieRepo) Search(ctx context.Context, query string) ([]*models.Movie, error) {
	var movies []*models.Movie
	if err := r.db.WithContext(ctx).
		Where("title LIKE ?", "%"+query+"%").
		Order("title ASC").
		Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("searching movies: %w", err)
	}
	return movies, nil
}

// SetFavorite updates the favorite flag on a movie.
func (r *movieRepo) SetFavorite(ctx context.Context, id models.ULID, favorite bool) error {
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Update("favorite", favorite).Error; err != nil {
		return fmt.Errorf("setting movie favorite: %w", err)
	}
	return nil
}

// TouchWatched records the last watch time and resume position for a movie.
func (r *movieRepo) TouchWatched(ctx context.Context, id models.ULID, at time.Time, positionMs int64) error {
	updates := map[string]any{
		"last_watched_at":  at,
		"last_position_ms": positionMs,
	}
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("touching movie watch time: %w", err)
	}
	return nil
}

// Update updates an existing movie.
func (r *movieRepo) Update(ctx context.Context, movie *models.Movie) error {
	if err := r.db.WithContext(ctx).Save(movie).Error; err != nil {
		return fmt.Errorf("updating movie: %w", err)
	}
	return nil
}

// Delete deletes a movie by ID.
func (r *movieRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Movie{}).Error; err != nil {
		return fmt.Errorf("deleting movie: %w", err)
	}
	return nil
}

// DeleteBySourceID deletes all movies for a source.
func (r *movieRepo) DeleteBySourceID(ctx context.Context, sourceID models.ULID) error {
	if err := r.db.WithContext(ctx).Where("source_id = ?", sourceID).Delete(&models.Movie{}).Error; err != nil {
		return fmt.Errorf("deleting movies by source ID: %w", err)
	}
	return nil
}

// CountBySourceID returns the number of movies for a source.
func (r *movieRepo) CountBySourceID(ctx context.Context, sourceID models.ULID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("source_id = ?", sourceID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting movies: %w", err)
	}
	return count, nil
}

// Ensure movieRepo implements MovieRepository at compile time.
var _ MovieRepository = (*movieRepo)(nil)
