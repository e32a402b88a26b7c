package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
)

// OMDb is a client for the Open Movie Database. It is the source of IMDb ratings.
type OMDb struct {
	*provider
	apiKey string
}

func NewOMDb(cfg *config.MetadataConfig, responseCache *cache.ResponseCache) *OMDb {
	oc := cfg.OMDb
	if oc == nil {
		oc = &config.OMDbConfig{}
	}
	return &OMDb{
		provider: newProvider("omdb", oc.URL, cfg, responseCache, queryParam("apikey", oc.APIKey)),
		apiKey:   oc.APIKey,
	}
}

type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
	Metascore  string `json:"Metascore"`
	Ratings    []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

// Ratings is what OMDb knows about a title. Missing values are nil.
type Ratings struct {
	IMDbRating     *float64
	IMDbVotes      *int
	Metascore      *int
	RottenTomatoes *string

	// used as fallbacks when TMDB lacks them
	Year    *int
	Runtime *int
	Genres  []string
	Plot    *string
	Poster  *string
}

// Ratings looks up a title by IMDb id.
func (o *OMDb) Ratings(ctx context.Context, imdbID string) (*Ratings, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("%w: omdb", ErrMissingAPIKey)
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")

	var resp omdbResponse
	if err := o.getJSON(ctx, "/", params, &resp); err != nil {
		return nil, err
	}
	// OMDb answers 200 with Response=False for unknown ids
	if !strings.EqualFold(resp.Response, "True") {
		return nil, fmt.Errorf("%w: omdb: %s", ErrNoData, resp.Error)
	}

	r := &Ratings{
		IMDbRating: parseFloat(resp.IMDbRating),
		IMDbVotes:  parseInt(resp.IMDbVotes),
		Metascore:  parseInt(resp.Metascore),
		Year:       parseYear(resp.Year),
		Runtime:    parseInt(resp.Runtime),
		Genres:     splitList(resp.Genre),
		Plot:       optString(resp.Plot),
		Poster:     optString(resp.Poster),
	}
	for _, rating := range resp.Ratings {
		if rating.Source == "Rotten Tomatoes" {
			r.RottenTomatoes = optString(rating.Value)
			break
		}
	}
	return r, nil
}

func (r *Ratings) applyMovie(m *database.Movie) {
	m.IMDbRating = r.IMDbRating
	m.IMDbVotes = r.IMDbVotes
	m.Metascore = r.Metascore
	m.RottenTomatoes = r.RottenTomatoes
}

func (r *Ratings) applySeries(s *database.Series) {
	s.IMDbRating = r.IMDbRating
	s.IMDbVotes = r.IMDbVotes
	s.Metascore = r.Metascore
	s.RottenTomatoes = r.RottenTomatoes

	if s.Runtime == nil {
		s.Runtime = r.Runtime
	}
	if len(s.Genres) == 0 && len(r.Genres) > 0 {
		s.Genres = r.Genres
	}
	if s.Year == nil {
		s.Year = r.Year
	}
	if s.Plot == nil {
		s.Plot = r.Plot
	}
	if s.PosterPath == nil {
		s.PosterPath = r.Poster
	}
}

// ApplyTo copies the rating fields onto a movie or series record.
// It reports whether rec is a kind that carries IMDb ratings.
func (r *Ratings) ApplyTo(rec database.Record) bool {
	switch v := rec.(type) {
	case *database.Movie:
		r.applyMovie(v)
	case *database.Series:
		s := *r
		// a refresh must not overwrite details the user may have edited
		s.Runtime, s.Genres, s.Year, s.Plot, s.Poster = nil, nil, nil, nil, nil
		s.applySeries(v)
	default:
		return false
	}
	return true
}
