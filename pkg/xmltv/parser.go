// Package xmltv provides streaming XMLTV parsing for electronic program
// guide data.
package xmltv

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Channel represents a channel definition in an XMLTV file.
type Channel struct {
	ID          string
	DisplayName string
	Icon        string
}

// Programme represents a single program entry in an XMLTV file.
type Programme struct {
	Channel     string
	Start       time.Time
	Stop        time.Time
	Title       string
	SubTitle    string
	Description string
	Category    string
	Icon        string
	EpisodeNum  string
	Rating      string
}

// Parser provides streaming XMLTV parsing with callback-based processing.
// Parsing is best effort: a malformed element is skipped, and a decode
// failure partway through the stream ends the parse with everything
// emitted so far rather than failing the caller.
type Parser struct {
	// OnChannel is called for each channel definition.
	OnChannel func(channel *Channel) error

	// OnProgramme is called for each parsed programme.
	OnProgramme func(programme *Programme) error

	// OnError is called for recoverable parsing errors.
	OnError func(err error)
}

// xmltvTimeFormats are tried in order against start/stop attributes.
var xmltvTimeFormats = []string{
	"20060102150405 -0700",
	"20060102150405",
	"200601021504 -0700",
	"200601021504",
}

// parseXMLTVTime parses an XMLTV datetime such as "20240115120000 +0000".
// When no layout matches, the first 14 characters are sliced manually
// into date and time components as a last resort.
func parseXMLTVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	for _, format := range xmltvTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	if len(s) >= 14 {
		year, err1 := strconv.Atoi(s[0:4])
		month, err2 := strconv.Atoi(s[4:6])
		day, err3 := strconv.Atoi(s[6:8])
		hour, err4 := strconv.Atoi(s[8:10])
		minute, err5 := strconv.Atoi(s[10:12])
		second, err6 := strconv.Atoi(s[12:14])
		if err1 == nil && err2 == nil && err3 == nil && err4 == nil && err5 == nil && err6 == nil {
			return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}

// Parse parses an XMLTV stream, invoking the configured callbacks.
func (p *Parser) Parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Best effort: keep what was already emitted.
			p.handleError(fmt.Errorf("reading XML token: %w", err))
			break
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "channel":
				if p.OnChannel == nil {
					_ = decoder.Skip()
					continue
				}
				channel, err := parseChannel(decoder, elem)
				if err != nil {
					p.handleError(err)
					continue
				}
				if err := p.OnChannel(channel); err != nil {
					return fmt.Errorf("channel callback: %w", err)
				}

			case "programme":
				if p.OnProgramme == nil {
					_ = decoder.Skip()
					continue
				}
				programme, err := parseProgramme(decoder, elem)
				if err != nil {
					p.handleError(err)
					continue
				}
				if err := p.OnProgramme(programme); err != nil {
					return fmt.Errorf("programme callback: %w", err)
				}
			}
		}
	}

	return nil
}

// ParseCompressed parses a potentially compressed XMLTV stream, detecting
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

// parseChannel parses a channel element. The id attribute and at least
// one display-name are required.
func parseChannel(decoder *xml.Decoder, start xml.StartElement) (*Channel, error) {
	channel := &Channel{}

	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			channel.ID = attr.Value
		}
	}
	if channel.ID == "" {
		_ = decoder.Skip()
		return nil, fmt.Errorf("channel element without id")
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "display-name":
				var name string
				if err := decoder.DecodeElement(&name, &elem); err == nil && channel.DisplayName == "" {
					channel.DisplayName = strings.TrimSpace(name)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						channel.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "channel" {
				if channel.DisplayName == "" {
					return nil, fmt.Errorf("channel %s has no display-name", channel.ID)
				}
				return channel, nil
			}
		}
	}
}

// parseProgramme parses a programme element. The channel, start and stop
// attributes and a title are required; anything else is optional.
func parseProgramme(decoder *xml.Decoder, start xml.StartElement) (*Programme, error) {
	prog := &Programme{}
	var startErr, stopErr error

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "channel":
			prog.Channel = attr.Value
		case "start":
			prog.Start, startErr = parseXMLTVTime(attr.Value)
		case "stop":
			prog.Stop, stopErr = parseXMLTVTime(attr.Value)
		}
	}

	if prog.Channel == "" || prog.Start.IsZero() || prog.Stop.IsZero() || startErr != nil || stopErr != nil {
		_ = decoder.Skip()
		return nil, fmt.Errorf("programme missing channel/start/stop")
	}

	inRating := false

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil && prog.Title == "" {
					prog.Title = strings.TrimSpace(title)
				}
			case "sub-title":
				var subtitle string
				if err := decoder.DecodeElement(&subtitle, &elem); err == nil {
					prog.SubTitle = strings.TrimSpace(subtitle)
				}
			case "desc":
				var desc string
				if err := decoder.DecodeElement(&desc, &elem); err == nil {
					prog.Description = strings.TrimSpace(desc)
				}
			case "category":
				var cat string
				if err := decoder.DecodeElement(&cat, &elem); err == nil && prog.Category == "" {
					prog.Category = strings.TrimSpace(cat)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						prog.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "episode-num":
				var epNum string
				if err := decoder.DecodeElement(&epNum, &elem); err == nil {
					prog.EpisodeNum = strings.TrimSpace(epNum)
				}
			case "rating":
				inRating = true
			case "value":
				// Only the value nested inside a rating element counts.
				var value string
				if err := decoder.DecodeElement(&value, &elem); err == nil && inRating {
					prog.Rating = strings.TrimSpace(value)
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			switch elem.Name.Local {
			case "rating":
				inRating = false
			case "programme":
				if prog.Title == "" {
					return nil, fmt.Errorf("programme on %s has no title", prog.Channel)
				}
				return prog, nil
			}
		}
	}
}

// handleError calls the OnError callback if set.
func (p *Parser) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// ParseAll collects every channel and programme from the reader.
// Recoverable errors are skipped; on a mid-stream decode failure the
// results gathered up to that point are returned.
func ParseAll(r io.Reader) ([]*Channel, []*Programme, error) {
	var (
		channels   []*Channel
		programmes []*Programme
	)
	p := &Parser{
		OnChannel: func(c *Channel) error {
			channels = append(channels, c)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}
	if err := p.Parse(r); err != nil {
		return nil, nil, err
	}
	return channels, programmes, nil
}

// ParseString parses an in-memory XMLTV document.
func ParseString(content string) ([]*Channel, []*Programme, error) {
	return ParseAll(strings.NewReader(content))
}
