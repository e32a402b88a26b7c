package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/samber/lo"
)

const (
	maxSearchResults = 10
	maxCastMembers   = 10
)

// TMDB is a client for The Movie Database v3 API.
type TMDB struct {
	*provider
	apiKey   string
	imageURL string
	omdb     *OMDb
}

// NewTMDB creates a TMDB client. omdb enriches fetched records with IMDb ratings and may be nil.
func NewTMDB(cfg *config.MetadataConfig, responseCache *cache.ResponseCache, omdb *OMDb) *TMDB {
	tc := cfg.TMDB
	if tc == nil {
		tc = &config.TMDBConfig{}
	}
	return &TMDB{
		provider: newProvider("tmdb", tc.URL, cfg, responseCache, queryParam("api_key", tc.APIKey)),
		apiKey:   tc.APIKey,
		imageURL: tc.ImageURL,
		omdb:     omdb,
	}
}

type tmdbSearchResponse struct {
	Results []struct {
		ID           int64  `json:"id"`
		Title        string `json:"title"`
		Name         string `json:"name"`
		PosterPath   string `json:"poster_path"`
		Overview     string `json:"overview"`
		ReleaseDate  string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
	} `json:"results"`
}

type tmdbGenre struct {
	Name string `json:"name"`
}

type tmdbVideos struct {
	Results []struct {
		Key  string `json:"key"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

type tmdbCredits struct {
	Cast []struct {
		Name        string `json:"name"`
		Character   string `json:"character"`
		ProfilePath string `json:"profile_path"`
		Order       int    `json:"order"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

type tmdbMovie struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"`
	Runtime     *int        `json:"runtime"`
	VoteAverage float64     `json:"vote_average"`
	VoteCount   int         `json:"vote_count"`
	IMDbID      string      `json:"imdb_id"`
	PosterPath  string      `json:"poster_path"`
	Overview    string      `json:"overview"`
	Genres      []tmdbGenre `json:"genres"`
	Videos      tmdbVideos  `json:"videos"`
	Credits     tmdbCredits `json:"credits"`
}

type tmdbSeries struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	FirstAirDate   string      `json:"first_air_date"`
	EpisodeRunTime []int       `json:"episode_run_time"`
	VoteAverage    float64     `json:"vote_average"`
	VoteCount      int         `json:"vote_count"`
	PosterPath     string      `json:"poster_path"`
	Overview       string      `json:"overview"`
	Genres         []tmdbGenre `json:"genres"`
	Videos         tmdbVideos  `json:"videos"`
	Credits        tmdbCredits `json:"credits"`
	CreatedBy      []struct {
		Name string `json:"name"`
	} `json:"created_by"`
	ExternalIDs struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
	Seasons []struct {
		ID           int    `json:"id"`
		SeasonNumber int    `json:"season_number"`
		EpisodeCount *int   `json:"episode_count"`
		Name         string `json:"name"`
		AirDate      string `json:"air_date"`
	} `json:"seasons"`
}

func (t *TMDB) checkKey() error {
	if t.apiKey == "" {
		return fmt.Errorf("%w: tmdb", ErrMissingAPIKey)
	}
	return nil
}

func (t *TMDB) image(path string) string {
	if path == "" {
		return ""
	}
	return t.imageURL + path
}

func (t *TMDB) search(ctx context.Context, endpoint, query, resultType string) ([]SearchResult, error) {
	if err := t.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("page", "1")

	var resp tmdbSearchResponse
	if err := t.getJSON(ctx, endpoint, params, &resp); err != nil {
		if errors.Is(err, ErrNoData) {
			return []SearchResult{}, nil
		}
		return nil, err
	}

	results := make([]SearchResult, 0, min(len(resp.Results), maxSearchResults))
	for _, r := range lo.Slice(resp.Results, 0, maxSearchResults) {
		results = append(results, SearchResult{
			ID:          strconv.FormatInt(r.ID, 10),
			Title:       lo.CoalesceOrEmpty(r.Title, r.Name),
			PosterURL:   t.image(r.PosterPath),
			Overview:    r.Overview,
			ReleaseDate: lo.CoalesceOrEmpty(r.ReleaseDate, r.FirstAirDate),
			Type:        resultType,
			Source:      SourceTMDB,
		})
	}
	return results, nil
}

// SearchMovies searches TMDB for movies.
func (t *TMDB) SearchMovies(ctx context.Context, query string) ([]SearchResult, error) {
	return t.search(ctx, "/search/movie", query, "movie")
}

// SearchSeries searches TMDB for TV series.
func (t *TMDB) SearchSeries(ctx context.Context, query string) ([]SearchResult, error) {
	return t.search(ctx, "/search/tv", query, "tv")
}

// FetchMovie loads a movie by TMDB id and enriches it with IMDb ratings from OMDb.
func (t *TMDB) FetchMovie(ctx context.Context, id string) (*database.Movie, error) {
	if err := t.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("append_to_response", "videos,credits")

	var m tmdbMovie
	if err := t.getJSON(ctx, "/movie/"+url.PathEscape(id), params, &m); err != nil {
		return nil, err
	}

	movie := &database.Movie{
		Title:      m.Title,
		Year:       parseYear(m.ReleaseDate),
		Runtime:    m.Runtime,
		Plot:       optString(m.Overview),
		PosterPath: optString(t.image(m.PosterPath)),
		Genres:     genreNames(m.Genres),
		TMDbRating: lo.ToPtr(round1(m.VoteAverage)),
		TMDbVotes:  lo.ToPtr(m.VoteCount),
		IMDbID:     optString(m.IMDbID),
		TMDbID:     lo.ToPtr(m.ID),
		Director:   director(m.Credits),
		Cast:       t.cast(m.Credits),
		Trailer:    trailer(m.Videos),
	}

	if movie.IMDbID != nil && t.omdb != nil {
		if r, err := t.omdb.Ratings(ctx, *movie.IMDbID); err != nil {
			log.Warn("failed to fetch IMDb ratings", "imdb_id", *movie.IMDbID, "error", err)
		} else {
			r.applyMovie(movie)
		}
	}
	return movie, nil
}

// FetchSeries loads a series by TMDB id. Missing TMDB fields fall back to OMDb.
func (t *TMDB) FetchSeries(ctx context.Context, id string) (*database.Series, error) {
	if err := t.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("append_to_response", "videos,credits,external_ids")

	var s tmdbSeries
	if err := t.getJSON(ctx, "/tv/"+url.PathEscape(id), params, &s); err != nil {
		return nil, err
	}

	series := &database.Series{
		Title:      s.Name,
		Year:       parseYear(s.FirstAirDate),
		Plot:       optString(s.Overview),
		PosterPath: optString(t.image(s.PosterPath)),
		Genres:     genreNames(s.Genres),
		TMDbRating: lo.ToPtr(round1(s.VoteAverage)),
		TMDbVotes:  lo.ToPtr(s.VoteCount),
		IMDbID:     optString(s.ExternalIDs.IMDbID),
		TMDbID:     lo.ToPtr(s.ID),
		Cast:       t.cast(s.Credits),
		Trailer:    trailer(s.Videos),
		Seasons:    database.JSONList[database.Season]{},
	}
	if len(s.EpisodeRunTime) > 0 {
		series.Runtime = lo.ToPtr(s.EpisodeRunTime[0])
	}
	if len(s.CreatedBy) > 0 {
		series.Creator = optString(s.CreatedBy[0].Name)
	}

	var totalSeasons, totalEpisodes int
	for _, season := range s.Seasons {
		series.Seasons = append(series.Seasons, database.Season{
			SeasonNumber: season.SeasonNumber,
			SeasonName:   lo.CoalesceOrEmpty(season.Name, fmt.Sprintf("Season %d", season.SeasonNumber)),
			TMDbSeasonID: lo.ToPtr(season.ID),
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
		})
		// specials live in season 0 and do not count
		if season.SeasonNumber == 0 {
			continue
		}
		totalSeasons++
		if season.EpisodeCount != nil {
			totalEpisodes += *season.EpisodeCount
		}
	}
	series.TotalSeasons = lo.ToPtr(totalSeasons)
	series.TotalEpisodes = lo.ToPtr(totalEpisodes)

	if series.IMDbID != nil && t.omdb != nil {
		if r, err := t.omdb.Ratings(ctx, *series.IMDbID); err != nil {
			log.Warn("failed to fetch IMDb ratings", "imdb_id", *series.IMDbID, "error", err)
		} else {
			r.applySeries(series)
		}
	}
	return series, nil
}

func genreNames(genres []tmdbGenre) database.JSONList[string] {
	return lo.Map(genres, func(g tmdbGenre, _ int) string { return g.Name })
}

func trailer(videos tmdbVideos) *string {
	for _, v := range videos.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" {
			return lo.ToPtr("https://www.youtube.com/watch?v=" + v.Key)
		}
	}
	return nil
}

func director(credits tmdbCredits) *string {
	for _, c := range credits.Crew {
		if c.Job == "Director" {
			return lo.ToPtr(c.Name)
		}
	}
	return nil
}

func (t *TMDB) cast(credits tmdbCredits) database.JSONList[database.CastMember] {
	out := make(database.JSONList[database.CastMember], 0, maxCastMembers)
	for _, c := range lo.Slice(credits.Cast, 0, maxCastMembers) {
		out = append(out, database.CastMember{
			Name:      c.Name,
			Character: c.Character,
			Profile:   optString(t.image(c.ProfilePath)),
			Order:     lo.ToPtr(c.Order),
		})
	}
	return out
}
