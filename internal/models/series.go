package models

import (
	"gorm.io/gorm"
)

// Series represents a TV series owned by a playlist source. Episode
// rows hang off the series and are removed with it.
type Series struct {
	BaseModel

	// SourceID is the foreign key to the owning PlaylistSource.
	SourceID ULID `gorm:"type:varchar(26);not null;index" json:"source_id"`

	// Name is the series name.
	Name string `gorm:"not null;size:512" json:"name"`

	// PosterURL is the artwork URL.
	PosterURL string `gorm:"size:2048" json:"poster_url,omitempty"`

	// GroupTitle is the category or genre label.
	GroupTitle string `gorm:"size:255;index" json:"group_title,omitempty"`

	// Plot is the series synopsis when the provider supplies one.
	Plot string `gorm:"type:text" json:"plot,omitempty"`

	// Cached aggregates over the series' episodes.
	EpisodeCount int `gorm:"default:0" json:"episode_count"`
	SeasonCount  int `gorm:"default:0" json:"season_count"`

	Favorite bool `gorm:"default:false" json:"favorite"`

	Episodes []Episode       `gorm:"foreignKey:SeriesID;constraint:OnDelete:CASCADE" json:"episodes,omitempty"`
	Source   *PlaylistSource `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

// TableName returns the table name for Series.
func (Series) TableName() string {
	return "series"
}

// Validate performs basic validation on the series.
func (s *Series) Validate() error {
	if s.SourceID.IsZero() {
		return ErrSourceIDRequired
	}
	if s.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the series and generates ULID.
func (s *Series) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}
