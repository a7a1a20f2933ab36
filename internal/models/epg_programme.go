package models

import (
	"time"

	"gorm.io/gorm"
)

// EpgProgramme represents a single scheduled programme from an XMLTV feed.
//
// ChannelID matches a Channel's tvg-id; it is deliberately not a foreign
// key because EPG feeds are independent of playlist sources. Overlapping
// programmes from malformed feeds are accepted as-is; the table is
// replaced wholesale on each EPG sync.
type EpgProgramme struct {
	BaseModel

	// ChannelID is the XMLTV channel identifier (tvg-id).
	ChannelID string `gorm:"not null;size:255;index:idx_programme_channel_start" json:"channel_id"`

	// Title is the programme title.
	Title string `gorm:"not null;size:512" json:"title"`

	SubTitle    string `gorm:"size:512" json:"sub_title,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Category    string `gorm:"size:255" json:"category,omitempty"`
	IconURL     string `gorm:"size:2048" json:"icon_url,omitempty"`
	EpisodeNum  string `gorm:"size:255" json:"episode_num,omitempty"`
	Rating      string `gorm:"size:50" json:"rating,omitempty"`

	// Start and Stop bound the programme's air window.
	Start time.Time `gorm:"not null;index:idx_programme_channel_start" json:"start"`
	Stop  time.Time `gorm:"not null;index" json:"stop"`
}

// TableName returns the table name for EpgProgramme.
func (EpgProgramme) TableName() string {
	return "epg_programmes"
}

// IsOnAir reports whether the programme is airing at the given instant.
// The start bound is inclusive, the stop bound exclusive.
func (e *EpgProgramme) IsOnAir(now time.Time) bool {
	return !e.Start.After(now) && e.Stop.After(now)
}

// HasEnded reports whether the programme's air window is entirely in the past.
func (e *EpgProgramme) HasEnded(now time.Time) bool {
	return e.Stop.Before(now)
}

// Validate performs basic validation on the programme.
func (e *EpgProgramme) Validate() error {
	if e.ChannelID == "" {
		return ErrChannelIDRequired
	}
	if e.Title == "" {
		return ErrTitleRequired
	}
	if e.Start.IsZero() {
		return ErrStartTimeRequired
	}
	if e.Stop.IsZero() {
		return ErrEndTimeRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the programme and generates ULID.
func (e *EpgProgramme) BeforeCreate(tx *gorm.DB) error {
	if err := e.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return e.Validate()
}
