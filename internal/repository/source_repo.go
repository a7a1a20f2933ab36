package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/tvcat/internal/models"
	"gorm.io/gorm"
)

// playlistSourceRepo implements PlaylistSourceRepository using GORM.
type playlistSourceRepo struct {
	db *gorm.DB
}

// NewPlaylistSourceRepository creates a new PlaylistSourceRepository.
func NewPlaylistSourceRepository(db *gorm.DB) *playlistSourceRepo {
	return &playlistSourceRepo{db: db}
}

// Create creates a new playlist source.
func (r *playlistSourceRepo) Create(ctx context.Context, source *models.PlaylistSource) error {
	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("creating playlist source: %w", err)
	}
	return nil
}

// GetByID retrieves a playlist source by ID.
func (r *playlistSourceRepo) GetByID(ctx context.Context, id models.ULID) (*models.PlaylistSource, error) {
	var source models.PlaylistSource
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting playlist source by ID: %w", err)
	}
	return &source, nil
}

// GetByName retrieves a playlist source by its unique name.
func (r *playlistSourceRepo) GetByName(ctx context.Context, name string) (*models.PlaylistSource, error) {
	var source models.PlaylistSource
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting playlist source by name: %w", err)
	}
	return &source, nil
}

// GetAll retrieves all playlist sources.
func (r *playlistSourceRepo) GetAll(ctx context.Context) ([]*models.PlaylistSource, error) {
	var sources []*models.PlaylistSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting all playlist sources: %w", err)
	}
	return sources, nil
}

// GetEnabled retrieves all enabled playlist sources.
func (r *playlistSourceRepo) GetEnabled(ctx context.Context) ([]*models.PlaylistSource, error) {
	var sources []*models.PlaylistSource
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting enabled playlist sources: %w", err)
	}
	return sources, nil
}

// Update updates an existing playlist source.
func (r *playlistSourceRepo) Update(ctx context.Context, source *models.PlaylistSource) error {
	if err := r.db.WithContext(ctx).Save(source).Error; err != nil {
		return fmt.Errorf("updating playlist source: %w", err)
	}
	return nil
}

// Delete deletes a playlist source by ID.
// Associated catalog rows are removed by the database via ON DELETE CASCADE.
func (r *playlistSourceRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PlaylistSource{}).Error; err != nil {
		return fmt.Errorf("deleting playlist source: %w", err)
	}
	return nil
}

// Ensure playlistSourceRepo implements PlaylistSourceRepository at compile time.
var _ PlaylistSourceRepository = (*playlistSourceRepo)(nil)
