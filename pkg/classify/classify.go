// Package classify infers the content type of IPTV catalog entries from
// their group label, title, and stream URL, and extracts series/season/
// episode and release-year details from free-text titles.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// ContentType is the inferred kind of a playlist entry.
type ContentType string

const (
	LiveChannel ContentType = "live"
	Movie       ContentType = "movie"
	Series      ContentType = "series"
	Episode     ContentType = "episode"
	Unknown     ContentType = "unknown"
)

var (
	// Matches S01E02 style markers.
	seasonEpisodeRegex = regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`)

	// Matches verbose "season 1 ... episode 2" markers, including the
	// French spellings commonly seen in provider playlists.
	verboseEpisodeRegex = regexp.MustCompile(`(?i)(?:season|saison)\s*(\d+).*?(?:episode|épisode)\s*(\d+)`)

	yearRegex = regexp.MustCompile(`\((\d{4})\)|\[(\d{4})\]`)
)

// Detect maps (group label, title, URL) to a ContentType. It is a pure
// total function: every input resolves to exactly one type, with
// LiveChannel as the final fallback. Rules are evaluated in order and
// the first match wins.
func Detect(group, title, streamURL string) ContentType {
	g := strings.ToLower(group)
	t := strings.ToLower(title)
	u := strings.ToLower(streamURL)

	if seasonEpisodeRegex.MatchString(t) || seasonEpisodeRegex.MatchString(g) ||
		verboseEpisodeRegex.MatchString(t) || verboseEpisodeRegex.MatchString(g) {
		return Episode
	}

	if containsAny(g, "series", "séries", "shows") {
		return Series
	}

	if containsAny(g, "vod", "movie", "film", "cinema", "cinéma") {
		return Movie
	}

	if containsAny(u, "/movie/", "/vod/", "/films/") {
		return Movie
	}

	if containsAny(u, "/series/", "/episode/") {
		return Episode
	}

	if strings.HasSuffix(u, ".m3u8") || strings.HasSuffix(u, ".ts") ||
		strings.Contains(u, ":8080/") || strings.Contains(u, "/live/") {
		return LiveChannel
	}

	return LiveChannel
}

// SeriesInfo holds series details extracted from a title.
type SeriesInfo struct {
	Name    string
	Season  int
	Episode int
}

// ExtractSeriesInfo pulls the series name and season/episode numbers out
// of a title. It only applies to entries already classified as Episode
// or Series; any other type returns ok=false. The SxxEyy form is tried
// first, with the series name taken as the text before the marker
// stripped of trailing separators, then the verbose season/episode form.
func ExtractSeriesInfo(title string, ct ContentType) (SeriesInfo, bool) {
	if ct != Episode && ct != Series {
		return SeriesInfo{}, false
	}

	if loc := seasonEpisodeRegex.FindStringSubmatchIndex(title); loc != nil {
		season, _ := strconv.Atoi(title[loc[2]:loc[3]])
		episode, _ := strconv.Atoi(title[loc[4]:loc[5]])
		name := strings.TrimRight(strings.TrimSpace(title[:loc[0]]), "-: ")
		return SeriesInfo{Name: strings.TrimSpace(name), Season: season, Episode: episode}, true
	}

	if m := verboseEpisodeRegex.FindStringSubmatch(title); m != nil {
		season, _ := strconv.Atoi(m[1])
		episode, _ := strconv.Atoi(m[2])
		idx := verboseEpisodeRegex.FindStringIndex(title)
		name := strings.TrimRight(strings.TrimSpace(title[:idx[0]]), "-: ")
		return SeriesInfo{Name: strings.TrimSpace(name), Season: season, Episode: episode}, true
	}

	return SeriesInfo{}, false
}

// ExtractYear returns the first four-digit year found inside parentheses
// or square brackets, e.g. "Heat (1995)" or "Heat [1995]".
func ExtractYear(title string) (int, bool) {
	m := yearRegex.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
