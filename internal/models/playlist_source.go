package models

import (
	"net/url"
	"strings"

	"gorm.io/gorm"
)

// SourceKind identifies how a playlist source is fetched and parsed.
type SourceKind string

const (
	// SourceKindM3U represents an M3U/M3U8 text playlist fetched over HTTP.
	SourceKindM3U SourceKind = "m3u"
	// SourceKindXtream represents an Xtream Codes API source.
	SourceKindXtream SourceKind = "xtream"
)

// SyncStatus represents the state of the last (or current) sync attempt.
// Transitions: pending -> syncing -> {success, failed}; both terminal
// states re-enter syncing on the next attempt.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// PlaylistSource represents an upstream playlist the catalog is built from.
type PlaylistSource struct {
	BaseModel

	// Name is a user-friendly name, unique across all sources.
	Name string `gorm:"uniqueIndex;not null;size:255" json:"name"`

	// Kind indicates whether this is an M3U or Xtream source.
	Kind SourceKind `gorm:"not null;size:20" json:"kind"`

	// URL is the playlist URL (M3U) or the Xtream server base URL.
	URL string `gorm:"not null;size:2048" json:"url"`

	// Username and Password are Xtream credentials (unused for M3U).
	Username string `gorm:"size:255" json:"username,omitempty"`
	Password string `gorm:"size:255" json:"password,omitempty"`

	// EpgURL is an optional XMLTV feed associated with this source.
	EpgURL string `gorm:"size:2048" json:"epg_url,omitempty"`

	// Enabled indicates whether this source participates in syncs.
	Enabled bool `gorm:"default:true" json:"enabled"`

	// AutoRefresh enables scheduled re-syncs every RefreshIntervalHours.
	AutoRefresh          bool `gorm:"default:false" json:"auto_refresh"`
	RefreshIntervalHours int  `gorm:"default:24" json:"refresh_interval_hours"`

	// RefreshCron optionally overrides the interval with a cron schedule.
	RefreshCron string `gorm:"size:100" json:"refresh_cron,omitempty"`

	// LastSyncAt is the timestamp of the last sync attempt.
	LastSyncAt *Time `json:"last_sync_at,omitempty"`

	// LastSyncStatus is the outcome of the last sync attempt.
	LastSyncStatus SyncStatus `gorm:"not null;default:'pending';size:20" json:"last_sync_status"`

	// LastSyncError is the error message from the last failed sync.
	LastSyncError string `gorm:"size:4096" json:"last_sync_error,omitempty"`

	// Content counts from the last successful sync.
	ChannelCount int `gorm:"default:0" json:"channel_count"`
	MovieCount   int `gorm:"default:0" json:"movie_count"`
	SeriesCount  int `gorm:"default:0" json:"series_count"`

	// Associations. Deleting a source cascades to all content it owns.
	Channels []Channel `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"channels,omitempty"`
	Movies   []Movie   `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"movies,omitempty"`
	Series   []Series  `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"series,omitempty"`
}

// TableName returns the table name for PlaylistSource.
func (PlaylistSource) TableName() string {
	return "playlist_sources"
}

// IsM3U returns true if this is an M3U source.
func (s *PlaylistSource) IsM3U() bool {
	return s.Kind == SourceKindM3U
}

// IsXtream returns true if this is an Xtream source.
func (s *PlaylistSource) IsXtream() bool {
	return s.Kind == SourceKindXtream
}

// MarkSyncing sets the source status to syncing. The timestamp is
// updated immediately so a hung sync is visible; counts keep their
// pre-sync values.
func (s *PlaylistSource) MarkSyncing() {
	s.LastSyncStatus = SyncStatusSyncing
	now := Now()
	s.LastSyncAt = &now
	s.LastSyncError = ""
}

// MarkSuccess sets the source status to success with the new content counts.
func (s *PlaylistSource) MarkSuccess(channels, movies, series int) {
	s.LastSyncStatus = SyncStatusSuccess
	now := Now()
	s.LastSyncAt = &now
	s.ChannelCount = channels
	s.MovieCount = movies
	s.SeriesCount = series
	s.LastSyncError = ""
}

// MarkFailed sets the source status to failed with an error message.
// Counts are left at their pre-sync values.
func (s *PlaylistSource) MarkFailed(err error) {
	s.LastSyncStatus = SyncStatusFailed
	now := Now()
	s.LastSyncAt = &now
	if err != nil {
		s.LastSyncError = err.Error()
	}
}

// Sanitize trims whitespace from user-provided fields.
func (s *PlaylistSource) Sanitize() {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Username = strings.TrimSpace(s.Username)
	s.Password = strings.TrimSpace(s.Password)
	s.EpgURL = strings.TrimSpace(s.EpgURL)
}

// Validate performs basic validation on the source.
func (s *PlaylistSource) Validate() error {
	s.Sanitize()

	if s.Name == "" {
		return ErrNameRequired
	}
	if s.URL == "" {
		return ErrURLRequired
	}
	if _, err := url.Parse(s.URL); err != nil {
		return ErrInvalidURL
	}
	if s.Kind != SourceKindM3U && s.Kind != SourceKindXtream {
		return ErrInvalidSourceKind
	}
	if s.Kind == SourceKindXtream && (s.Username == "" || s.Password == "") {
		return ErrXtreamCredentialsRequired
	}
	if s.RefreshIntervalHours <= 0 {
		s.RefreshIntervalHours = 24
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and generates ULID.
func (s *PlaylistSource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// BeforeUpdate is a GORM hook that validates the source before update.
func (s *PlaylistSource) BeforeUpdate(tx *gorm.DB) error {
	return s.Validate()
}
