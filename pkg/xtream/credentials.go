package xtream

import (
	"fmt"
	"net/url"
	"strings"
)

// Default stream extensions per content kind.
const (
	defaultExtensionTS  = "ts"
	defaultExtensionMKV = "mkv"
)

// Credentials identifies an account on an Xtream Codes server. It is a
// pure value type; all derived URLs are built from it.
type Credentials struct {
	// Server is the base URL of the provider, with or without a
	// trailing slash (e.g. "http://example.com:8080/").
	Server string

	Username string
	Password string
}

// BaseURL returns the server URL with any trailing slash stripped.
func (c Credentials) BaseURL() string {
	return strings.TrimRight(c.Server, "/")
}

// PlayerAPIURL returns the player_api.php endpoint URL.
func (c Credentials) PlayerAPIURL() string {
	return c.BaseURL() + "/player_api.php"
}

// XMLTVURL returns the bulk XMLTV EPG endpoint URL for this account.
func (c Credentials) XMLTVURL() string {
	return fmt.Sprintf("%s/xmltv.php?username=%s&password=%s",
		c.BaseURL(), url.QueryEscape(c.Username), url.QueryEscape(c.Password))
}

// LiveStreamURL returns the playback URL for a live stream.
// Live streams sit directly under the account path, without a kind
// segment. The extension defaults to "ts".
func (c Credentials) LiveStreamURL(streamID int64, extension string) string {
	if extension == "" {
		extension = defaultExtensionTS
	}
	return fmt.Sprintf("%s/%s/%s/%d.%s", c.BaseURL(), c.Username, c.Password, streamID, extension)
}

// VODStreamURL returns the playback URL for a VOD item. The extension
// should match the item's container_extension and defaults to "mkv".
func (c Credentials) VODStreamURL(streamID int64, extension string) string {
	if extension == "" {
		extension = defaultExtensionMKV
	}
	return fmt.Sprintf("%s/movie/%s/%s/%d.%s", c.BaseURL(), c.Username, c.Password, streamID, extension)
}

// SeriesStreamURL returns the playback URL for a series episode. The
// extension should match the episode's container_extension.
func (c Credentials) SeriesStreamURL(episodeID int64, extension string) string {
	if extension == "" {
		extension = defaultExtensionMKV
	}
	return fmt.Sprintf("%s/series/%s/%s/%d.%s", c.BaseURL(), c.Username, c.Password, episodeID, extension)
}
