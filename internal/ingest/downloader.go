// Package ingest coordinates playlist and EPG synchronization: it downloads
// remote sources, runs the parsers, and reconciles results into the catalog.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/httpclient"
	"github.com/jmylchreest/tvcat/internal/version"
)

// Downloader fetches playlist and EPG payloads over HTTP.
type Downloader struct {
	client *httpclient.Client
}

// NewDownloader creates a downloader from the ingestion configuration.
func NewDownloader(cfg config.IngestionConfig, logger *slog.Logger) *Downloader {
	hcfg := httpclient.DefaultConfig()
	if cfg.HTTPTimeout > 0 {
		hcfg.Timeout = cfg.HTTPTimeout
	}
	if cfg.RetryAttempts > 0 {
		hcfg.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		hcfg.RetryDelay = cfg.RetryDelay
	}
	hcfg.UserAgent = cfg.UserAgent
	if hcfg.UserAgent == "" {
		hcfg.UserAgent = version.UserAgent()
	}
	if logger != nil {
		hcfg.Logger = logger
	}

	return &Downloader{client: httpclient.New(hcfg)}
}

// Fetch downloads the given URL and returns the response body.
// Non-200 responses are turned into classified errors suitable for
// storing on the source as its last sync error.
func (d *Downloader) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	}

	return resp.Body, nil
}

// HTTPClient returns a standard *http.Client backed by the resilient client,
// for collaborators that take a plain client (the Xtream API client).
func (d *Downloader) HTTPClient() *http.Client {
	return d.client.StandardClient()
}

// statusError maps an HTTP status code to a user-presentable error.
// Codes 800-899 are non-standard but used by many IPTV panels to signal
// subscription or credential problems.
func statusError(code int) error {
	switch {
	case code == http.StatusBadRequest:
		return fmt.Errorf("invalid request (HTTP 400)")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("access denied, check username and password (HTTP %d)", code)
	case code == http.StatusNotFound:
		return fmt.Errorf("source not found (HTTP 404)")
	case code >= 500 && code <= 599:
		return fmt.Errorf("provider server error (HTTP %d)", code)
	case code >= 800 && code <= 899:
		return fmt.Errorf("subscription expired or invalid credentials (code %d)", code)
	default:
		return fmt.Errorf("download failed (code %d)", code)
	}
}
