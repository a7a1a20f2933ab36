package models

import (
	"gorm.io/gorm"
)

// Movie represents a VOD movie owned by a playlist source.
type Movie struct {
	BaseModel

	// SourceID is the foreign key to the owning PlaylistSource.
	SourceID ULID `gorm:"type:varchar(26);not null;index" json:"source_id"`

	// Title is the display title.
	Title string `gorm:"not null;size:512" json:"title"`

	// StreamURL is the playback URL.
	StreamURL string `gorm:"not null;size:4096" json:"stream_url"`

	// PosterURL is the artwork URL.
	PosterURL string `gorm:"size:2048" json:"poster_url,omitempty"`

	// GroupTitle is the category the movie belongs to.
	GroupTitle string `gorm:"size:255;index" json:"group_title,omitempty"`

	// Year is the release year when known.
	Year *int `json:"year,omitempty"`

	// Rating is the content rating or score as reported by the provider.
	Rating string `gorm:"size:50" json:"rating,omitempty"`

	// ContainerExt is the container extension for playback (mkv, mp4, ...).
	ContainerExt string `gorm:"size:10" json:"container_ext,omitempty"`

	// Headers are extra HTTP headers required to fetch the stream.
	Headers HeaderMap `json:"headers,omitempty"`

	Favorite      bool  `gorm:"default:false" json:"favorite"`
	LastWatchedAt *Time `json:"last_watched_at,omitempty"`

	// LastPositionMs is the resume position in milliseconds.
	LastPositionMs int64 `gorm:"default:0" json:"last_position_ms"`

	Source *PlaylistSource `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

// TableName returns the table name for Movie.
func (Movie) TableName() string {
	return "movies"
}

// Validate performs basic validation on the movie.
func (m *Movie) Validate() error {
	if m.SourceID.IsZero() {
		return ErrSourceIDRequired
	}
	if m.Title == "" {
		return ErrTitleRequired
	}
	if m.StreamURL == "" {
		return ErrStreamURLRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the movie and generates ULID.
func (m *Movie) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return m.Validate()
}
