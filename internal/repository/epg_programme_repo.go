package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/tvcat/internal/models"
	"gorm.io/gorm"
)

// epgProgrammeRepo implements EpgProgrammeRepository using GORM.
type epgProgrammeRepo struct {
	db *gorm.DB
}

// NewEpgProgrammeRepository creates a new EpgProgrammeRepository.
func NewEpgProgrammeRepository(db *gorm.DB) *epgProgrammeRepo {
	return &epgProgrammeRepo{db: db}
}

// Create creates a new EPG programme.
func (r *epgProgrammeRepo) Create(ctx context.Context, programme *models.EpgProgramme) error {
	if err := r.db.WithContext(ctx).Create(programme).Error; err != nil {
		return fmt.Errorf("creating EPG programme: %w", err)
	}
	return nil
}

// CreateBatch creates multiple programmes in a single batch.
func (r *epgProgrammeRepo) CreateBatch(ctx context.Context, programmes []*models.EpgProgramme) error {
	if len(programmes) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(programmes).Error; err != nil {
		return fmt.Errorf("creating EPG programme batch: %w", err)
	}
	return nil
}

// CreateInBatches creates multiple programmes in smaller batches for memory efficiency.
func (r *epgProgrammeRepo) CreateInBatches(ctx context.Context, programmes []*models.EpgProgramme, batchSize int) error {
	if len(programmes) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	if err := r.db.WithContext(ctx).CreateInBatches(programmes, batchSize).Error; err != nil {
		return fmt.Errorf("creating EPG programmes in batches: %w", err)
	}
	return nil
}

// GetByID retrieves an EPG programme by ID.
func (r *epgProgrammeRepo) GetByID(ctx context.Context, id models.ULID) (*models.EpgProgramme, error) {
	var programme models.EpgProgramme
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&programme).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting EPG programme by ID: %w", err)
	}
	return &programme, nil
}

// GetByChannelID retrieves programmes for a channel that overlap the time range.
// A programme overlaps if it starts before the end AND stops after the start.
func (r *epgProgrammeRepo) GetByChannelID(ctx context.Context, channelID string, start, end time.Time) ([]*models.EpgProgramme, error) {
	var programmes []*models.EpgProgramme
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND start < ? AND stop > ?", channelID, end, start).
		Order("start ASC").
		Find(&programmes).Error; err != nil {
		return nil, fmt.Errorf("getting EPG programmes by channel: %w", err)
	}
	return programmes, nil
}

// GetCurrentByChannelID retrieves the programme airing at the given instant.
// A programme is current when start <= now and now < stop.
func (r *epgProgrammeRepo) GetCurrentByChannelID(ctx context.Context, channelID string, now time.Time) (*models.EpgProgramme, error) {
	var programme models.EpgProgramme
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND start <= ? AND stop > ?", channelID, now, now).
		Order("start DESC").
		First(&programme).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting current EPG programme: %w", err)
	}
	return &programme, nil
}

// GetNextByChannelID retrieves the earliest programme starting strictly after the given instant.
func (r *epgProgrammeRepo) GetNextByChannelID(ctx context.Context, channelID string, now time.Time) (*models.EpgProgramme, error) {
	var programme models.EpgProgramme
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND start > ?", channelID, now).
		Order("start ASC").
		First(&programme).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting next EPG programme: %w", err)
	}
	return &programme, nil
}

// Search retrieves programmes whose title matches the query (case-insensitive substring).
func (r *epgProgrammeRepo) Search(ctx context.Context, query string) ([]*models.EpgProgramme, error) {
	var programmes []*models.EpgProgramme
	if err := r.db.WithContext(ctx).
		Where("title LIKE ?", "%"+query+"%").
		Order("start ASC").
		Find(&programmes).Error; err != nil {
		return nil, fmt.Errorf("searching EPG programmes: %w", err)
	}
	return programmes, nil
}

// DeleteByChannelID deletes all programmes for a channel.
func (r *epgProgrammeRepo) DeleteByChannelID(ctx context.Context, channelID string) error {
	if err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.EpgProgramme{}).Error; err != nil {
		return fmt.Errorf("deleting EPG programmes by channel: %w", err)
	}
	return nil
}

// DeleteExpired deletes programmes that ended before the given instant and
// returns the number of rows removed.
func (r *epgProgrammeRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("stop < ?", before).Delete(&models.EpgProgramme{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting expired EPG programmes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteAll deletes every stored programme.
func (r *epgProgrammeRepo) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.EpgProgramme{}).Error; err != nil {
		return fmt.Errorf("deleting all EPG programmes: %w", err)
	}
	return nil
}

// Count returns the total number of stored programmes.
func (r *epgProgrammeRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.EpgProgramme{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting EPG programmes: %w", err)
	}
	return count, nil
}

// Stats summarizes the stored guide window.
func (r *epgProgrammeRepo) Stats(ctx context.Context) (GuideStats, error) {
	var stats GuideStats
	count, err := r.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Programmes = count
	if count == 0 {
		return stats, nil
	}

	var first models.EpgProgramme
	if err := r.db.WithContext(ctx).Order("start ASC").First(&first).Error; err != nil {
		return stats, fmt.Errorf("reading earliest programme: %w", err)
	}
	var last models.EpgProgramme
	if err := r.db.WithContext(ctx).Order("stop DESC").First(&last).Error; err != nil {
		return stats, fmt.Errorf("reading latest programme: %w", err)
	}
	stats.Earliest = first.Start
	stats.Latest = last.Stop
	return stats, nil
}

// Transaction executes the given function within a database transaction.
func (r *epgProgrammeRepo) Transaction(ctx context.Context, fn func(EpgProgrammeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &epgProgrammeRepo{db: tx}
		return fn(txRepo)
	})
}

// Ensure epgProgrammeRepo implements EpgProgrammeRepository at compile time.
var _ EpgProgrammeRepository = (*epgProgrammeRepo)(nil)
