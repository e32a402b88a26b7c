package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.MetadataConfig {
	return &config.MetadataConfig{
		RequestTimeout:  5 * time.Second,
		RateLimit:       1000,
		RateBurst:       100,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
		TMDB:            &config.TMDBConfig{APIKey: "tmdb-key", URL: baseURL + "/tmdb", ImageURL: "https://img.test/w500"},
		OMDb:            &config.OMDbConfig{APIKey: "omdb-key", URL: baseURL + "/omdb"},
		MAL:             &config.MALConfig{ClientID: "mal-id", URL: baseURL + "/mal"},
		RAWG:            &config.RAWGConfig{APIKey: "rawg-key", URL: baseURL + "/rawg"},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/tmdb/search/movie", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tmdb-key", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"results":[{"id":438631,"title":"Dune","poster_path":"/dune.jpg","overview":"Spice.","release_date":"2021-09-15"}]}`)
	})
	mux.HandleFunc("/tmdb/movie/438631", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "videos,credits", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, `{
			"id": 438631, "title": "Dune", "release_date": "2021-09-15", "runtime": 155,
			"vote_average": 7.76, "vote_count": 12000, "imdb_id": "tt1160419",
			"poster_path": "/dune.jpg", "overview": "Spice.",
			"genres": [{"name": "Science Fiction"}, {"name": "Adventure"}],
			"videos": {"results": [
				{"key": "teaser", "site": "YouTube", "type": "Teaser"},
				{"key": "n9xhJrPXop4", "site": "YouTube", "type": "Trailer"}
			]},
			"credits": {
				"cast": [{"name": "Timothée Chalamet", "character": "Paul Atreides", "profile_path": "/tc.jpg", "order": 0}],
				"crew": [{"name": "Joe Walker", "job": "Editor"}, {"name": "Denis Villeneuve", "job": "Director"}]
			}
		}`)
	})
	mux.HandleFunc("/tmdb/movie/1", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/tmdb/tv/95396", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 95396, "name": "Severance", "first_air_date": "", "episode_run_time": [],
			"vote_average": 8.4, "vote_count": 2000, "poster_path": "", "overview": "",
			"genres": [], "created_by": [{"name": "Dan Erickson"}],
			"external_ids": {"imdb_id": "tt11280740"},
			"seasons": [
				{"id": 1, "season_number": 0, "episode_count": 2, "name": "Specials"},
				{"id": 2, "season_number": 1, "episode_count": 9, "name": "Season 1", "air_date": "2022-02-18"},
				{"id": 3, "season_number": 2, "episode_count": 10, "name": ""}
			]
		}`)
	})
	mux.HandleFunc("/omdb/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "omdb-key", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("i") {
		case "tt1160419":
			fmt.Fprint(w, `{"Response":"True","imdbRating":"8.0","imdbVotes":"1,234,567","Metascore":"74",
				"Ratings":[{"Source":"Internet Movie Database","Value":"8.0/10"},{"Source":"Rotten Tomatoes","Value":"83%"}]}`)
		case "tt11280740":
			fmt.Fprint(w, `{"Response":"True","Year":"2022–","Runtime":"55 min","Genre":"Drama, Mystery, Sci-Fi",
				"Plot":"Office workers.","Poster":"https://img.test/sev.jpg","imdbRating":"8.7","imdbVotes":"N/A","Metascore":"N/A"}`)
		default:
			fmt.Fprint(w, `{"Response":"False","Error":"Incorrect IMDb ID."}`)
		}
	})
	mux.HandleFunc("/mal/anime", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mal-id", r.Header.Get("X-MAL-CLIENT-ID"))
		fmt.Fprint(w, `{"data":[
			{"node":{"id":5114,"title":"Fullmetal Alchemist: Brotherhood","media_type":"tv"}},
			{"node":{"id":199,"title":"Spirited Away","media_type":"movie","start_date":"2001-07-20","main_picture":{"medium":"https://mal.test/199.jpg"}}}
		]}`)
	})
	mux.HandleFunc("/mal/anime/199", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":199,"title":"Spirited Away","start_date":"2001-07-20","synopsis":"Bathhouse.","mean":8.77,
			"main_picture":{"medium":"https://mal.test/199.jpg"},"genres":[{"name":"Adventure"},{"name":"Fantasy"}]}`)
	})
	mux.HandleFunc("/mal/manga/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":2,"title":"Berserk","num_chapters":0,"num_volumes":null,"status":"currently_publishing","mean":9.47,
			"genres":[{"name":"Action"}],"authors":[{"node":{"first_name":"Kentarou","last_name":"Miura"},"role":"Story & Art"}]}`)
	})
	mux.HandleFunc("/rawg/games", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rawg-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"results":[{"id":327239,"name":"Hades","released":"2020-09-17","background_image":"https://rawg.test/hades.jpg"}]}`)
	})
	mux.HandleFunc("/rawg/games/327239", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":327239,"name":"Hades","released":"2020-09-17","playtime":21,"rating":4.42,"metacritic":93,
			"description_raw":"Defy the god of the dead.","background_image":"https://rawg.test/hades.jpg",
			"genres":[{"name":"Action"},{"name":"Indie"}],"developers":[{"name":"Supergiant Games"}],
			"platforms":[{"platform":{"name":"PC"}},{"platform":{"name":"Nintendo Switch"}}]}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchMovie(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)

	rec, err := s.Fetch(context.Background(), database.KindMovie, "", "438631")
	require.NoError(t, err)
	movie, ok := rec.(*database.Movie)
	require.True(t, ok)

	assert.Equal(t, "Dune", movie.Title)
	assert.Equal(t, 2021, *movie.Year)
	assert.Equal(t, 155, *movie.Runtime)
	assert.Equal(t, 7.8, *movie.TMDbRating)
	assert.Equal(t, "https://img.test/w500/dune.jpg", *movie.PosterPath)
	assert.Equal(t, database.JSONList[string]{"Science Fiction", "Adventure"}, movie.Genres)
	assert.Equal(t, "Denis Villeneuve", *movie.Director)
	assert.Equal(t, "https://www.youtube.com/watch?v=n9xhJrPXop4", *movie.Trailer)
	require.Len(t, movie.Cast, 1)
	assert.Equal(t, "https://img.test/w500/tc.jpg", *movie.Cast[0].Profile)

	assert.Equal(t, 8.0, *movie.IMDbRating)
	assert.Equal(t, 1234567, *movie.IMDbVotes)
	assert.Equal(t, 74, *movie.Metascore)
	assert.Equal(t, "83%", *movie.RottenTomatoes)
	assert.Zero(t, movie.ID, "fetched records are not stored")
}

func TestFetchMovieNoData(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)

	_, err := s.Fetch(context.Background(), database.KindMovie, SourceTMDB, "1")
	assert.ErrorIs(t, err, ErrNoData)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestFetchSeriesWithOMDbFallback(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)

	rec, err := s.Fetch(context.Background(), database.KindSeries, "", "95396")
	require.NoError(t, err)
	series := rec.(*database.Series)

	assert.Equal(t, "Severance", series.Title)
	assert.Equal(t, "Dan Erickson", *series.Creator)
	assert.Equal(t, 2, *series.TotalSeasons)
	assert.Equal(t, 19, *series.TotalEpisodes)
	require.Len(t, series.Seasons, 3)
	assert.Equal(t, "Season 2", series.Seasons[2].SeasonName)

	// TMDB had none of these
	assert.Equal(t, 2022, *series.Year)
	assert.Equal(t, 55, *series.Runtime)
	assert.Equal(t, database.JSONList[string]{"Drama", "Mystery", "Sci-Fi"}, series.Genres)
	assert.Equal(t, "Office workers.", *series.Plot)
	assert.Equal(t, "https://img.test/sev.jpg", *series.PosterPath)
	assert.Equal(t, 8.7, *series.IMDbRating)
	assert.Nil(t, series.IMDbVotes)
	assert.Nil(t, series.Metascore)
}

func TestFetchAnimeMovieAndManga(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)
	ctx := context.Background()

	rec, err := s.Fetch(ctx, database.KindMovie, SourceMAL, "199")
	require.NoError(t, err)
	anime := rec.(*database.Movie)
	assert.Equal(t, "Spirited Away", anime.Title)
	assert.Equal(t, 8.77, *anime.MALRating)
	assert.Equal(t, int64(199), *anime.MALID)
	assert.Equal(t, 2001, *anime.Year)

	rec, err = s.Fetch(ctx, database.KindManga, "", "2")
	require.NoError(t, err)
	manga := rec.(*database.Manga)
	assert.Equal(t, "Berserk", manga.Title)
	assert.Equal(t, database.JSONList[string]{"Kentarou Miura"}, manga.Authors)
	assert.Nil(t, manga.Volumes)
	assert.Equal(t, 0, *manga.Chapters)
}

func TestFetchGame(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)

	rec, err := s.Fetch(context.Background(), database.KindGame, "", "327239")
	require.NoError(t, err)
	game := rec.(*database.Game)
	assert.Equal(t, "Hades", game.Title)
	assert.Equal(t, database.JSONList[string]{"PC", "Nintendo Switch"}, game.Platforms)
	assert.Equal(t, database.JSONList[string]{"Supergiant Games"}, game.Developers)
	assert.Equal(t, 93, *game.Metascore)
	assert.Equal(t, 4.42, *game.Rating)
}

func TestSearch(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)
	ctx := context.Background()

	results, err := s.Search(ctx, database.KindMovie, "spirited")
	require.NoError(t, err)
	require.Len(t, results, 2, "tmdb result plus the anime movie, the tv anime is filtered")
	assert.Equal(t, SourceTMDB, results[0].Source)
	assert.Equal(t, "438631", results[0].ID)
	assert.Equal(t, "https://img.test/w500/dune.jpg", results[0].PosterURL)
	assert.Equal(t, SourceMAL, results[1].Source)
	assert.Equal(t, "movie", results[1].Type)

	results, err = s.Search(ctx, database.KindGame, "hades")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "327239", results[0].ID)

	results, err = s.Search(ctx, database.KindMovie, "   ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = s.Search(ctx, database.KindBook, "dune")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestMissingAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.RAWG.APIKey = ""
	s := New(cfg, nil)

	_, err := s.Search(context.Background(), database.KindGame, "hades")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestUnavailableAndCircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := New(testConfig(server.URL), nil)
	ctx := context.Background()

	for range 3 {
		_, err := s.Fetch(ctx, database.KindGame, "", "1")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(3), hits.Load())

	// the circuit is open now, the provider is not contacted
	_, err := s.Fetch(ctx, database.KindGame, "", "1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestResponsesAreCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"results":[{"id":1,"name":"Celeste","released":"2018-01-25"}]}`)
	}))
	defer server.Close()

	mc := cache.NewMetadataCache(&config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute})
	s := New(testConfig(server.URL), mc)

	for range 2 {
		results, err := s.Search(context.Background(), database.KindGame, "celeste")
		require.NoError(t, err)
		require.Len(t, results, 1)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestCancelledContext(t *testing.T) {
	server := newTestServer(t)
	s := New(testConfig(server.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fetch(ctx, database.KindMovie, "", "438631")
	assert.ErrorIs(t, err, context.Canceled)
}
