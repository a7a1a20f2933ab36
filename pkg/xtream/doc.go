// Package xtream provides a Go client for the Xtream Codes API.
//
// Xtream Codes is an IPTV panel system that exposes a REST API for
// accessing live TV streams, video on demand (VOD), TV series, and EPG
// (Electronic Program Guide) data.
//
// # Basic Usage
//
//	creds := xtream.Credentials{
//		Server:   "http://example.com:8080",
//		Username: "user",
//		Password: "pass",
//	}
//	client := xtream.NewClient(creds)
//
//	// Verify the credentials and get server info
//	info, err := client.Authenticate(ctx)
//
//	// List live stream categories and streams
//	categories, err := client.GetLiveCategories(ctx)
//	streams, err := client.GetLiveStreams(ctx)
//
//	// Series detail with episodes grouped by season
//	detail, err := client.GetSeriesInfo(ctx, 42)
//
// # Stream URLs
//
// Playback URLs are derived from the credentials:
//
//	url := creds.LiveStreamURL(12345, "ts")     // {base}/{user}/{pass}/12345.ts
//	url := creds.VODStreamURL(67890, "mp4")     // {base}/movie/{user}/{pass}/67890.mp4
//	url := creds.SeriesStreamURL(11111, "mkv")  // {base}/series/{user}/{pass}/11111.mkv
//
// # API Endpoints
//
// The Xtream Codes API uses the following endpoint pattern:
//
//	{baseURL}/player_api.php?username={user}&password={pass}&action={action}
//
// Actions used by this client:
//   - (no action): authentication status and server info
//   - get_live_categories / get_vod_categories / get_series_categories
//   - get_live_streams / get_vod_streams / get_series
//   - get_series_info (required: series_id)
//
// Additional endpoints:
//   - {baseURL}/xmltv.php?username={user}&password={pass}: Full XMLTV EPG
package xtream
