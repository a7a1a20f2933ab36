package models

import (
	"gorm.io/gorm"
)

// Episode represents a single episode belonging to a Series.
type Episode struct {
	BaseModel

	// SeriesID is the foreign key to the owning Series.
	SeriesID ULID `gorm:"type:varchar(26);not null;index" json:"series_id"`

	// Title is the episode title.
	Title string `gorm:"not null;size:512" json:"title"`

	// StreamURL is the playback URL.
	StreamURL string `gorm:"not null;size:4096" json:"stream_url"`

	// Season and Number position the episode within the series.
	// A missing season marker defaults to 1, a missing episode number to 0.
	Season int `gorm:"default:1" json:"season"`
	Number int `gorm:"default:0" json:"number"`

	// PosterURL is the episode artwork URL.
	PosterURL string `gorm:"size:2048" json:"poster_url,omitempty"`

	// Headers are extra HTTP headers required to fetch the stream.
	Headers HeaderMap `json:"headers,omitempty"`

	// LastPositionMs is the resume position in milliseconds.
	LastPositionMs int64 `gorm:"default:0" json:"last_position_ms"`

	LastWatchedAt *Time `json:"last_watched_at,omitempty"`

	Series *Series `gorm:"foreignKey:SeriesID" json:"series,omitempty"`
}

// TableName returns the table name for Episode.
func (Episode) TableName() string {
	return "episodes"
}

// Validate performs basic validation on the episode.
func (e *Episode) Validate() error {
	if e.SeriesID.IsZero() {
		return ErrSeriesIDRequired
	}
	if e.Title == "" {
		return ErrTitleRequired
	}
	if e.StreamURL == "" {
		return ErrStreamURLRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the episode and generates ULID.
func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if err := e.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if e.Season <= 0 {
		e.Season = 1
	}
	return e.Validate()
}
