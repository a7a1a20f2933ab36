package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmylchreest/tvcat/internal/config"
	"github.com/jmylchreest/tvcat/internal/database"
	"github.com/jmylchreest/tvcat/internal/models"
	"github.com/jmylchreest/tvcat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSyncDB(t *testing.T) *database.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             ":memory:",
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        "silent",
	}
	db, err := database.New(cfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db
}

func createSource(t *testing.T, db *database.DB, source *models.PlaylistSource) *models.PlaylistSource {
	t.Helper()
	repo := repository.NewPlaylistSourceRepository(db.DB)
	require.NoError(t, repo.Create(context.Background(), source))
	return source
}

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" tvg-logo="http://img/bbc.png" group-title="News",BBC One
http://host:8080/live/user/pass/1.ts
#EXTINF:-1 group-title="News",Sky News
http://host:8080/live/user/pass/2.ts
#EXTINF:-1 group-title="Movies | Action",Heat (1995)
http://host/movie/user/pass/3.mkv
#EXTINF:-1 group-title="Series | Drama",Breaking Bad S01E01
http://host/series/user/pass/4.mkv
#EXTINF:-1 group-title="Series | Drama",Breaking Bad S02E01
http://host/series/user/pass/5.mkv
#EXTINF:-1 group-title="Series | Drama",Breaking Bad S02E02
http://host/series/user/pass/6.mkv
`

func TestService_Sync_M3U(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPlaylist)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	require.NoError(t, svc.Sync(context.Background(), source.ID))

	ctx := context.Background()
	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, models.SyncStatusSuccess, updated.LastSyncStatus)
	assert.Empty(t, updated.LastSyncError)
	assert.NotNil(t, updated.LastSyncAt)
	assert.Equal(t, 2, updated.ChannelCount)
	assert.Equal(t, 1, updated.MovieCount)
	assert.Equal(t, 1, updated.SeriesCount)

	channels, err := repository.NewChannelRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "BBC One", channels[0].Name)
	assert.Equal(t, "bbc1.uk", channels[0].TvgID)
	assert.Equal(t, "http://img/bbc.png", channels[0].LogoURL)

	movies, err := repository.NewMovieRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Heat (1995)", movies[0].Title)
	require.NotNil(t, movies[0].Year)
	assert.Equal(t, 1995, *movies[0].Year)

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "Breaking Bad", series[0].Name)
	assert.Equal(t, 3, series[0].EpisodeCount)
	assert.Equal(t, 2, series[0].SeasonCount)

	episodes, err := repository.NewEpisodeRepository(db.DB).GetBySeriesID(ctx, series[0].ID)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, 1, episodes[0].Season)
	assert.Equal(t, 1, episodes[0].Number)
	assert.Equal(t, 2, episodes[2].Season)
	assert.Equal(t, 2, episodes[2].Number)
}

func TestService_Sync_M3U_Resync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPlaylist)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()

	// Syncing twice must not duplicate content.
	require.NoError(t, svc.Sync(ctx, source.ID))
	require.NoError(t, svc.Sync(ctx, source.ID))

	count, err := repository.NewChannelRepository(db.DB).CountBySourceID(ctx, source.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestService_Sync_DownloadFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	// Seed counts from an earlier successful sync.
	source.MarkSuccess(5, 2, 1)
	ctx := context.Background()
	require.NoError(t, repository.NewPlaylistSourceRepository(db.DB).Update(ctx, source))

	svc := NewService(db, testIngestionConfig(), discardLogger())
	err := svc.Sync(ctx, source.ID)
	require.Error(t, err)

	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, updated.LastSyncStatus)
	assert.Equal(t, "source not found (HTTP 404)", updated.LastSyncError)

	// A failed sync leaves the previous counts alone.
	assert.Equal(t, 5, updated.ChannelCount)
	assert.Equal(t, 2, updated.MovieCount)
	assert.Equal(t, 1, updated.SeriesCount)
}

func TestService_Sync_SourceNotFound(t *testing.T) {
	db := setupSyncDB(t)
	svc := NewService(db, testIngestionConfig(), discardLogger())

	err := svc.Sync(context.Background(), models.NewULID())
	assert.ErrorIs(t, err, models.ErrSourceNotFound)
}

func TestService_Sync_SourceDisabled(t *testing.T) {
	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  "http://example.invalid/list.m3u",
	})
	require.NoError(t, db.DB.Model(source).Update("enabled", false).Error)

	svc := NewService(db, testIngestionConfig(), discardLogger())
	err := svc.Sync(context.Background(), source.ID)
	assert.ErrorIs(t, err, models.ErrSourceDisabled)
}

func TestService_SyncByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Test\nhttp://host/live/s.ts\n")
	}))
	defer server.Close()

	db := setupSyncDB(t)
	createSource(t, db, &models.PlaylistSource{
		Name: "named",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	require.NoError(t, svc.SyncByName(context.Background(), "named"))

	err := svc.SyncByName(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrSourceNotFound)
}

func TestService_Sync_UnknownSeriesFallback(t *testing.T) {
	// Episodes without an extractable series name group under the label,
	// and with no label either, under "Unknown Series".
	playlist := "#EXTM3U\n" +
		"#EXTINF:-1,Season 1 Episode 2\n" +
		"http://host/series/user/pass/9.mkv\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playlist)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	require.NoError(t, svc.Sync(context.Background(), source.ID))

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(context.Background(), source.ID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, unknownSeriesName, series[0].Name)
}

func TestService_Sync_SeasonCountOnlyParsedSeasons(t *testing.T) {
	// Episodes classified by URL alone carry no season number. They are
	// stored in season 1, but do not inflate the distinct-season count.
	playlist := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"Shows | Lost Tapes\",Opening Night\n" +
		"http://host/series/user/pass/1.mkv\n" +
		"#EXTINF:-1 group-title=\"Shows | Lost Tapes\",Closing Night\n" +
		"http://host/series/user/pass/2.mkv\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playlist)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	require.NoError(t, svc.Sync(context.Background(), source.ID))

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(context.Background(), source.ID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2, series[0].EpisodeCount)
	assert.Equal(t, 0, series[0].SeasonCount)

	episodes, err := repository.NewEpisodeRepository(db.DB).GetBySeriesID(context.Background(), series[0].ID)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, 1, episodes[0].Season)
	assert.Equal(t, 1, episodes[1].Season)
}

// newXtreamServer fakes a provider player_api.php endpoint.
func newXtreamServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player_api.php" {
			http.NotFound(w, r)
			return
		}

		switch r.URL.Query().Get("action") {
		case "":
			fmt.Fprint(w, `{"user_info":{"username":"user","auth":1,"status":"Active"},"server_info":{"url":"example.com","port":8080}}`)
		case "get_live_categories":
			fmt.Fprint(w, `[{"category_id":"1","category_name":"News"}]`)
		case "get_live_streams":
			fmt.Fprint(w, `[{"name":"BBC One","stream_id":10,"stream_icon":"http://img/bbc.png","epg_channel_id":"bbc1.uk","category_id":"1"}]`)
		case "get_vod_categories":
			fmt.Fprint(w, `[{"category_id":"2","category_name":"Action"}]`)
		case "get_vod_streams":
			fmt.Fprint(w, `[{"name":"Heat","stream_id":20,"stream_icon":"http://img/heat.jpg","rating":"8.3","category_id":"2","container_extension":"mkv"},{"name":"Ronin","stream_id":21,"category_id":"2","rating_5based":4.5}]`)
		case "get_series_categories":
			fmt.Fprint(w, `[{"category_id":"3","category_name":"Drama"}]`)
		case "get_series":
			fmt.Fprint(w, `[{"series_id":30,"name":"Breaking Bad","cover":"http://img/bb.jpg","plot":"A chemistry teacher.","category_id":"3"},{"series_id":31,"name":"Altered Carbon","genre":"Sci-Fi","category_id":"3"}]`)
		case "get_series_info":
			fmt.Fprint(w, `{"episodes":{"1":[{"id":"100","episode_num":1,"title":"Pilot","container_extension":"mkv","season":1,"info":{"movie_image":"http://img/ep1.jpg"}}],"2":[{"id":"101","episode_num":1,"season":2}]}}`)
		default:
			t.Errorf("unexpected action: %s", r.URL.Query().Get("action"))
			http.NotFound(w, r)
		}
	}))
}

func TestService_Sync_Xtream(t *testing.T) {
	server := newXtreamServer(t)
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name:     "panel",
		Kind:     models.SourceKindXtream,
		URL:      server.URL,
		Username: "user",
		Password: "pass",
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx, source.ID))

	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, updated.LastSyncStatus)
	assert.Equal(t, 1, updated.ChannelCount)
	assert.Equal(t, 2, updated.MovieCount)
	assert.Equal(t, 2, updated.SeriesCount)

	channels, err := repository.NewChannelRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "BBC One", channels[0].Name)
	assert.Equal(t, "News", channels[0].GroupTitle)
	assert.Equal(t, "bbc1.uk", channels[0].TvgID)
	assert.Equal(t, server.URL+"/user/pass/10.ts", channels[0].StreamURL)

	movies, err := repository.NewMovieRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Heat", movies[0].Title)
	assert.Equal(t, "Action", movies[0].GroupTitle)
	assert.Equal(t, "8.3", movies[0].Rating)
	assert.Equal(t, "mkv", movies[0].ContainerExt)
	assert.Equal(t, server.URL+"/movie/user/pass/20.mkv", movies[0].StreamURL)
	// No rating falls back to rating_5based, no container extension to mkv.
	assert.Equal(t, "Ronin", movies[1].Title)
	assert.Equal(t, "4.5", movies[1].Rating)
	assert.Equal(t, "mkv", movies[1].ContainerExt)
	assert.Equal(t, server.URL+"/movie/user/pass/21.mkv", movies[1].StreamURL)

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, series, 2)
	// The provider genre wins over the category name when present.
	assert.Equal(t, "Altered Carbon", series[0].Name)
	assert.Equal(t, "Sci-Fi", series[0].GroupTitle)
	assert.Equal(t, "Breaking Bad", series[1].Name)
	assert.Equal(t, "Drama", series[1].GroupTitle)
	assert.Equal(t, "http://img/bb.jpg", series[1].PosterURL)
	assert.Equal(t, 2, series[1].EpisodeCount)
	assert.Equal(t, 2, series[1].SeasonCount)

	episodes, err := repository.NewEpisodeRepository(db.DB).GetBySeriesID(ctx, series[1].ID)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "Pilot", episodes[0].Title)
	assert.Equal(t, server.URL+"/series/user/pass/100.mkv", episodes[0].StreamURL)
	// Episode with no title gets a synthesized one, and no container
	// extension falls back to mkv.
	assert.Equal(t, "Episode 1", episodes[1].Title)
	assert.Equal(t, server.URL+"/series/user/pass/101.mkv", episodes[1].StreamURL)
}

func TestService_Sync_XtreamAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user_info":{"auth":0,"status":"Expired","message":"account expired"}}`)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name:     "panel",
		Kind:     models.SourceKindXtream,
		URL:      server.URL,
		Username: "user",
		Password: "pass",
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()
	err := svc.Sync(ctx, source.ID)
	require.Error(t, err)

	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, updated.LastSyncStatus)
	assert.Contains(t, updated.LastSyncError, "authenticating")
}

func TestService_Sync_XtreamDegradedCalls(t *testing.T) {
	// All catalog calls fail after a successful auth; the sync still
	// succeeds with an empty catalog.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "" {
			fmt.Fprint(w, `{"user_info":{"auth":1,"status":"Active"},"server_info":{}}`)
			return
		}
		fmt.Fprint(w, `{"malformed":`)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name:     "panel",
		Kind:     models.SourceKindXtream,
		URL:      server.URL,
		Username: "user",
		Password: "pass",
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx, source.ID))

	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, updated.LastSyncStatus)
	assert.Equal(t, 0, updated.ChannelCount)
	assert.Equal(t, 0, updated.MovieCount)
	assert.Equal(t, 0, updated.SeriesCount)
}

func TestService_SyncAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Test\nhttp://host/live/s.ts\n")
	}))
	defer server.Close()

	db := setupSyncDB(t)
	a := createSource(t, db, &models.PlaylistSource{Name: "a", Kind: models.SourceKindM3U, URL: server.URL})
	b := createSource(t, db, &models.PlaylistSource{Name: "b", Kind: models.SourceKindM3U, URL: server.URL})
	disabled := createSource(t, db, &models.PlaylistSource{Name: "c", Kind: models.SourceKindM3U, URL: server.URL})
	require.NoError(t, db.DB.Model(disabled).Update("enabled", false).Error)

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()
	require.NoError(t, svc.SyncAll(ctx))

	for _, src := range []*models.PlaylistSource{a, b} {
		updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, src.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusSuccess, updated.LastSyncStatus, src.Name)
	}

	// The disabled source is never attempted.
	updated, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, disabled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, updated.LastSyncStatus)
}

func TestService_SyncAll_CollectsErrors(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:-1,Test\nhttp://host/live/s.ts\n")
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	db := setupSyncDB(t)
	createSource(t, db, &models.PlaylistSource{Name: "good", Kind: models.SourceKindM3U, URL: good.URL})
	createSource(t, db, &models.PlaylistSource{Name: "bad", Kind: models.SourceKindM3U, URL: bad.URL})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestService_Delete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPlaylist)
	}))
	defer server.Close()

	db := setupSyncDB(t)
	source := createSource(t, db, &models.PlaylistSource{
		Name: "provider",
		Kind: models.SourceKindM3U,
		URL:  server.URL,
	})

	svc := NewService(db, testIngestionConfig(), discardLogger())
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx, source.ID))
	require.NoError(t, svc.Delete(ctx, source.ID))

	gone, err := repository.NewPlaylistSourceRepository(db.DB).GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err := repository.NewChannelRepository(db.DB).CountBySourceID(ctx, source.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	series, err := repository.NewSeriesRepository(db.DB).GetBySourceID(ctx, source.ID)
	require.NoError(t, err)
	assert.Empty(t, series)
}
