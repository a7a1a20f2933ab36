// Package m3u provides streaming M3U/M3U8 playlist parsing.
// It understands EXTINF metadata, EXTVLCOPT/KODIPROP header options,
// and EXTGRP group labels, and classifies each entry's content type.
package m3u

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/tvcat/pkg/classify"
)

// Entry represents a single normalized entry in an M3U playlist.
type Entry struct {
	// Name is the display title taken from the EXTINF line.
	Name string

	// URL is the stream URL.
	URL string

	// Duration is the declared duration in seconds (-1 for live streams).
	Duration int

	// TvgID is the EPG channel identifier.
	TvgID string

	// TvgName is the display name from the tvg-name attribute.
	TvgName string

	// LogoURL is the artwork URL from the tvg-logo attribute.
	LogoURL string

	// GroupTitle is the category from group-title or a preceding EXTGRP line.
	GroupTitle string

	TvgCountry  string
	TvgLanguage string

	// Headers holds HTTP headers required to fetch the stream, folded in
	// from EXTVLCOPT/KODIPROP lines under their canonical names.
	Headers map[string]string

	// Type is the inferred content type; never left ambiguous.
	Type classify.ContentType

	// SeriesName, Season and Episode are populated when Type is Episode
	// or Series and the title carries a recognizable marker.
	SeriesName string
	Season     int
	Episode    int

	// Year is the release year extracted from the title, 0 if absent.
	Year int
}

// Parser provides streaming M3U parsing with callback-based processing.
type Parser struct {
	// OnEntry is called for each parsed entry.
	OnEntry func(entry *Entry) error

	// OnError is called for recoverable parsing errors.
	// If nil, errors are silently ignored.
	OnError func(lineNum int, err error)
}

var durationRegex = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)`)

var attrRegexCache sync.Map // attribute name -> *regexp.Regexp

// Attr returns the quoted value of the named attribute on a metadata
// line, matched case-insensitively, or "" when absent. Malformed input
// never fails; absence is a valid outcome.
func Attr(line, name string) string {
	var rx *regexp.Regexp
	if cached, ok := attrRegexCache.Load(name); ok {
		rx = cached.(*regexp.Regexp)
	} else {
		rx = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\s*=\s*["']([^"']*)["']`)
		attrRegexCache.Store(name, rx)
	}
	m := rx.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// Parse parses an M3U playlist from a reader, calling OnEntry for each
// accepted entry. Pending metadata (EXTINF, headers, group) resets after
// every URL line whether or not the entry was accepted.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnEntry == nil {
		return fmt.Errorf("OnEntry callback is required")
	}

	scanner := bufio.NewScanner(r)
	// Some playlists carry very long URLs on a single line.
	const maxLineSize = 1024 * 1024
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	var (
		pendingExtinf string
		pendingHdrs   map[string]string
		pendingGroup  string
	)
	lineNum := 0

	reset := func() {
		pendingExtinf = ""
		pendingHdrs = nil
		pendingGroup = ""
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "#EXTM3U"):
			continue

		case strings.HasPrefix(line, "#EXTINF:"):
			pendingExtinf = line

		case strings.HasPrefix(line, "#EXTVLCOPT:"):
			foldHeader(&pendingHdrs, strings.TrimPrefix(line, "#EXTVLCOPT:"))

		case strings.HasPrefix(line, "#KODIPROP:"):
			foldHeader(&pendingHdrs, strings.TrimPrefix(line, "#KODIPROP:"))

		case strings.HasPrefix(line, "#EXTGRP:"):
			pendingGroup = strings.TrimSpace(strings.TrimPrefix(line, "#EXTGRP:"))

		case strings.HasPrefix(line, "#"):
			// Unknown directive, ignored.

		default:
			// A URL line terminates the current entry.
			if pendingExtinf == "" || !validScheme(line) {
				reset()
				continue
			}
			entry, err := buildEntry(pendingExtinf, line, pendingHdrs, pendingGroup)
			reset()
			if err != nil {
				p.handleError(lineNum, err)
				continue
			}
			if err := p.OnEntry(entry); err != nil {
				return fmt.Errorf("callback error at line %d: %w", lineNum, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning M3U: %w", err)
	}

	return nil
}

// ParseString parses a decoded in-memory playlist.
func (p *Parser) ParseString(s string) error {
	return p.Parse(strings.NewReader(s))
}

// ParseAll collects every entry from the reader into a slice.
// Recoverable per-entry errors are skipped.
func ParseAll(r io.Reader) ([]*Entry, error) {
	var entries []*Entry
	p := &Parser{
		OnEntry: func(e *Entry) error {
			entries = append(entries, e)
			return nil
		},
	}
	if err := p.Parse(r); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseCompressed parses a potentially compressed playlist, detecting
// gzip, bzip2 and xz by their magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// buildEntry turns a buffered EXTINF line plus its URL into an Entry.
func buildEntry(extinf, url string, headers map[string]string, groupFallback string) (*Entry, error) {
	entry := &Entry{
		Duration: -1,
		URL:      url,
		Headers:  headers,
	}

	if m := durationRegex.FindStringSubmatch(extinf); m != nil {
		entry.Duration, _ = strconv.Atoi(m[1])
	}

	entry.Name = extractTitle(extinf)
	if entry.Name == "" {
		return nil, fmt.Errorf("entry has no title")
	}

	entry.TvgID = Attr(extinf, "tvg-id")
	entry.TvgName = Attr(extinf, "tvg-name")
	entry.LogoURL = Attr(extinf, "tvg-logo")
	entry.GroupTitle = Attr(extinf, "group-title")
	entry.TvgCountry = Attr(extinf, "tvg-country")
	entry.TvgLanguage = Attr(extinf, "tvg-language")

	if entry.GroupTitle == "" {
		entry.GroupTitle = groupFallback
	}

	entry.Type = classify.Detect(entry.GroupTitle, entry.Name, entry.URL)
	if info, ok := classify.ExtractSeriesInfo(entry.Name, entry.Type); ok {
		entry.SeriesName = info.Name
		entry.Season = info.Season
		entry.Episode = info.Episode
	}
	if year, ok := classify.ExtractYear(entry.Name); ok {
		entry.Year = year
	}

	return entry, nil
}

// extractTitle returns the free-text title after the last comma outside
// quoted attribute values, falling back to a plain last-comma split when
// the quote-aware scan finds nothing.
func extractTitle(line string) string {
	if idx := lastTopLevelComma(line); idx >= 0 {
		if title := strings.TrimSpace(line[idx+1:]); title != "" {
			return title
		}
	}
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// lastTopLevelComma finds the last comma not inside a quoted span.
// A single active quote character (' or ") is tracked at a time.
func lastTopLevelComma(s string) int {
	last := -1
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case c == quote:
			quote = 0
		case c == ',' && quote == 0:
			last = i
		}
	}
	return last
}

// foldHeader parses a key=value option line and, when the key names a
// recognized transport header, stores it under its canonical name.
func foldHeader(headers *map[string]string, opt string) {
	eq := strings.Index(opt, "=")
	if eq < 0 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(opt[:eq]))
	value := strings.TrimSpace(opt[eq+1:])
	value = strings.Trim(value, `"'`)
	if value == "" {
		return
	}

	var canonical string
	switch {
	case strings.Contains(key, "user-agent"):
		canonical = "User-Agent"
	case strings.Contains(key, "referrer"), strings.Contains(key, "referer"):
		canonical = "Referer"
	case strings.Contains(key, "origin"):
		canonical = "Origin"
	default:
		return
	}

	if *headers == nil {
		*headers = make(map[string]string)
	}
	(*headers)[canonical] = value
}

// validScheme reports whether the URL carries a supported stream scheme.
func validScheme(url string) bool {
	u := strings.ToLower(url)
	for _, scheme := range []string{"http://", "https://", "rtmp://", "rtsp://", "mms://"} {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}

// handleError calls the OnError callback if set.
func (p *Parser) handleError(lineNum int, err error) {
	if p.OnError != nil {
		p.OnError(lineNum, err)
	}
}
