package xmltv

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
	"time"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="channel1.tv">
    <display-name>Channel One</display-name>
    <icon src="http://example.com/logo1.png"/>
  </channel>
  <channel id="channel2.tv">
    <display-name>Channel Two</display-name>
  </channel>
  <programme start="20240115120000 +0000" stop="20240115130000 +0000" channel="channel1.tv">
    <title>News at Noon</title>
    <sub-title>Midday Edition</sub-title>
    <desc>The latest news and weather.</desc>
    <category>News</category>
    <icon src="http://example.com/news.png"/>
    <episode-num system="onscreen">S01E05</episode-num>
    <rating system="VCHIP">
      <value>TV-PG</value>
    </rating>
  </programme>
  <programme start="20240115130000 +0000" stop="20240115140000 +0000" channel="channel1.tv">
    <title>Afternoon Movie</title>
  </programme>
</tv>`

func TestParseAll(t *testing.T) {
	channels, programmes, err := ParseString(sampleXMLTV)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(channels))
	}
	ch := channels[0]
	if ch.ID != "channel1.tv" || ch.DisplayName != "Channel One" {
		t.Errorf("channel = %+v", ch)
	}
	if ch.Icon != "http://example.com/logo1.png" {
		t.Errorf("Icon = %q", ch.Icon)
	}

	if len(programmes) != 2 {
		t.Fatalf("got %d programmes, want 2", len(programmes))
	}
	prog := programmes[0]
	if prog.Channel != "channel1.tv" || prog.Title != "News at Noon" {
		t.Errorf("programme = %+v", prog)
	}
	if prog.SubTitle != "Midday Edition" {
		t.Errorf("SubTitle = %q", prog.SubTitle)
	}
	if prog.Category != "News" {
		t.Errorf("Category = %q", prog.Category)
	}
	if prog.EpisodeNum != "S01E05" {
		t.Errorf("EpisodeNum = %q", prog.EpisodeNum)
	}
	if prog.Rating != "TV-PG" {
		t.Errorf("Rating = %q", prog.Rating)
	}

	wantStart := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !prog.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", prog.Start, wantStart)
	}
	if got := prog.Stop.Sub(prog.Start); got != time.Hour {
		t.Errorf("duration = %v, want 1h", got)
	}
}

func TestParseXMLTVTime(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			input: "20240115120000 +0000",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			input: "20240115120000 +0100",
			want:  time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		},
		{
			input: "20240115120000",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			input: "202401151200 +0000",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			input: "202401151200",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			// Trailing junk defeats the layouts; the 14-char slice
			// fallback still recovers the timestamp.
			input: "20240115120000junk",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{input: "", wantErr: true},
		{input: "not-a-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseXMLTVTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseXMLTVTime(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseXMLTVTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSkipsInvalidElements(t *testing.T) {
	input := `<tv>
  <channel>
    <display-name>No ID</display-name>
  </channel>
  <channel id="noname.tv">
    <icon src="http://example.com/x.png"/>
  </channel>
  <programme start="garbage" stop="20240115130000" channel="c1">
    <title>Bad Start</title>
  </programme>
  <programme start="20240115120000" stop="20240115130000" channel="c1">
    <desc>No title here</desc>
  </programme>
  <programme start="20240115120000" stop="20240115130000" channel="c1">
    <title>Valid</title>
  </programme>
</tv>`

	var errCount int
	var channels []*Channel
	var programmes []*Programme
	p := &Parser{
		OnChannel: func(c *Channel) error {
			channels = append(channels, c)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
		OnError: func(err error) { errCount++ },
	}

	if err := p.Parse(strings.NewReader(input)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(channels) != 0 {
		t.Errorf("got %d channels, want 0", len(channels))
	}
	if len(programmes) != 1 || programmes[0].Title != "Valid" {
		t.Errorf("programmes = %+v, want single Valid entry", programmes)
	}
	if errCount != 4 {
		t.Errorf("errCount = %d, want 4", errCount)
	}
}

func TestParseTruncatedStream(t *testing.T) {
	// The document is cut off mid-element; everything parsed before the
	// failure is still delivered.
	input := `<tv>
  <programme start="20240115120000" stop="20240115130000" channel="c1">
    <title>Complete</title>
  </programme>
  <programme start="20240115140000" stop="20240115150000" channel="c1">
    <title>Trunc`

	var programmes []*Programme
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}
	if err := p.Parse(strings.NewReader(input)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(programmes) != 1 || programmes[0].Title != "Complete" {
		t.Errorf("programmes = %+v, want single Complete entry", programmes)
	}
}

func TestParseUnrelatedValueIgnored(t *testing.T) {
	input := `<tv>
  <programme start="20240115120000" stop="20240115130000" channel="c1">
    <title>Show</title>
    <value>not-a-rating</value>
    <rating><value>PG</value></rating>
  </programme>
</tv>`

	_, programmes, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(programmes) != 1 {
		t.Fatalf("got %d programmes, want 1", len(programmes))
	}
	if programmes[0].Rating != "PG" {
		t.Errorf("Rating = %q, want PG", programmes[0].Rating)
	}
}

func TestParseCompressedGzip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	var count int
	p := &Parser{OnProgramme: func(prog *Programme) error {
		count++
		return nil
	}}
	if err := p.ParseCompressed(&buf); err != nil {
		t.Fatalf("ParseCompressed: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d programmes, want 2", count)
	}
}
