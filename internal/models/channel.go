package models

import (
	"gorm.io/gorm"
)

// Channel represents a live channel owned by a playlist source.
type Channel struct {
	BaseModel

	// SourceID is the foreign key to the owning PlaylistSource.
	SourceID ULID `gorm:"type:varchar(26);not null;index" json:"source_id"`

	// Name is the display name from the playlist entry.
	Name string `gorm:"not null;size:512" json:"name"`

	// StreamURL is the playback URL.
	StreamURL string `gorm:"not null;size:4096" json:"stream_url"`

	// LogoURL is the channel artwork URL.
	LogoURL string `gorm:"size:2048" json:"logo_url,omitempty"`

	// GroupTitle is the category the channel belongs to.
	GroupTitle string `gorm:"size:255;index" json:"group_title,omitempty"`

	// TvgID links the channel to its EPG programmes.
	TvgID string `gorm:"size:255;index" json:"tvg_id,omitempty"`

	TvgName     string `gorm:"size:512" json:"tvg_name,omitempty"`
	TvgCountry  string `gorm:"size:50" json:"tvg_country,omitempty"`
	TvgLanguage string `gorm:"size:50" json:"tvg_language,omitempty"`

	// Headers are extra HTTP headers required to fetch the stream.
	Headers HeaderMap `json:"headers,omitempty"`

	// Favorite marks the channel as user-pinned. Survives re-sync only
	// by tvg-id match, since catalog rows are replaced wholesale.
	Favorite bool `gorm:"default:false" json:"favorite"`

	// LastWatchedAt is when the user last played this channel.
	LastWatchedAt *Time `json:"last_watched_at,omitempty"`

	Source *PlaylistSource `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// Validate performs basic validation on the channel.
func (c *Channel) Validate() error {
	if c.SourceID.IsZero() {
		return ErrSourceIDRequired
	}
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.StreamURL == "" {
		return ErrStreamURLRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates ULID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}
