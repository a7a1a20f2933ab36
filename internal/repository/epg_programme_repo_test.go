package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEpgTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.EpgProgramme{})
	require.NoError(t, err)

	return db
}

func insertProgramme(t *testing.T, repo EpgProgrammeRepository, channelID, title string, start, stop time.Time) *models.EpgProgramme {
	t.Helper()
	p := &models.EpgProgramme{
		ChannelID: channelID,
		Title:     title,
		Start:     start,
		Stop:      stop,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestEpgProgrammeRepo_GetCurrentByChannelID(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)

	insertProgramme(t, repo, "ch1", "Morning Show",
		now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	insertProgramme(t, repo, "ch1", "Noon News",
		now.Add(-30*time.Minute), now.Add(30*time.Minute))
	insertProgramme(t, repo, "ch1", "Evening Film",
		now.Add(2*time.Hour), now.Add(4*time.Hour))
	insertProgramme(t, repo, "ch2", "Other Channel Show",
		now.Add(-1*time.Hour), now.Add(1*time.Hour))

	current, err := repo.GetCurrentByChannelID(ctx, "ch1", now)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Noon News", current.Title)
}

func TestEpgProgrammeRepo_GetCurrentByChannelID_Boundaries(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	insertProgramme(t, repo, "ch1", "Show", start, stop)

	// Start boundary is inclusive.
	current, err := repo.GetCurrentByChannelID(ctx, "ch1", start)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Show", current.Title)

	// Stop boundary is exclusive.
	current, err = repo.GetCurrentByChannelID(ctx, "ch1", stop)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestEpgProgrammeRepo_GetNextByChannelID(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	insertProgramme(t, repo, "ch1", "Currently Airing",
		now.Add(-30*time.Minute), now.Add(30*time.Minute))
	insertProgramme(t, repo, "ch1", "Later Tonight",
		now.Add(4*time.Hour), now.Add(5*time.Hour))
	insertProgramme(t, repo, "ch1", "Up Next",
		now.Add(30*time.Minute), now.Add(90*time.Minute))

	next, err := repo.GetNextByChannelID(ctx, "ch1", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "Up Next", next.Title)
}

func TestEpgProgrammeRepo_GetNextByChannelID_None(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	insertProgramme(t, repo, "ch1", "Only Past Show",
		now.Add(-2*time.Hour), now.Add(-1*time.Hour))

	next, err := repo.GetNextByChannelID(ctx, "ch1", now)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestEpgProgrammeRepo_GetByChannelID_Overlap(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	insertProgramme(t, repo, "ch1", "Before Window",
		base.Add(-2*time.Hour), base.Add(-1*time.Hour))
	insertProgramme(t, repo, "ch1", "Spans Window Start",
		base.Add(-30*time.Minute), base.Add(30*time.Minute))
	insertProgramme(t, repo, "ch1", "Inside Window",
		base.Add(time.Hour), base.Add(2*time.Hour))
	insertProgramme(t, repo, "ch1", "After Window",
		base.Add(5*time.Hour), base.Add(6*time.Hour))

	programmes, err := repo.GetByChannelID(ctx, "ch1", base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, programmes, 2)
	assert.Equal(t, "Spans Window Start", programmes[0].Title)
	assert.Equal(t, "Inside Window", programmes[1].Title)
}

func TestEpgProgrammeRepo_DeleteExpired(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	insertProgramme(t, repo, "ch1", "Ended",
		now.Add(-2*time.Hour), now.Add(-1*time.Hour))
	insertProgramme(t, repo, "ch1", "Airing",
		now.Add(-30*time.Minute), now.Add(30*time.Minute))
	insertProgramme(t, repo, "ch1", "Future",
		now.Add(time.Hour), now.Add(2*time.Hour))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestEpgProgrammeRepo_Transaction_ReplaceGuide(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	insertProgramme(t, repo, "ch1", "Stale", now.Add(-2*time.Hour), now.Add(-1*time.Hour))

	err := repo.Transaction(ctx, func(tx EpgProgrammeRepository) error {
		if _, err := tx.DeleteExpired(ctx, now); err != nil {
			return err
		}
		return tx.CreateBatch(ctx, []*models.EpgProgramme{
			{ChannelID: "ch1", Title: "Fresh", Start: now, Stop: now.Add(time.Hour)},
		})
	})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEpgProgrammeRepo_Stats(t *testing.T) {
	db := setupEpgTestDB(t)
	repo := NewEpgProgrammeRepository(db)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Programmes)
	assert.True(t, stats.Earliest.IsZero())
	assert.True(t, stats.Latest.IsZero())

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	insertProgramme(t, repo, "ch1", "Morning Show", base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	insertProgramme(t, repo, "ch1", "Midday News", base, base.Add(time.Hour))
	insertProgramme(t, repo, "ch2", "Late Film", base.Add(6*time.Hour), base.Add(8*time.Hour))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Programmes)
	assert.Equal(t, base.Add(-3*time.Hour).Unix(), stats.Earliest.Unix())
	assert.Equal(t, base.Add(8*time.Hour).Unix(), stats.Latest.Unix())
}
