// Package metadata looks up media information from TMDB, OMDb, MyAnimeList and RAWG.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
)

var (
	// ErrNoData is returned when a provider answered but has nothing for the request.
	ErrNoData = errors.New("no data")
	// ErrUnavailable is returned when a provider could not be reached or failed.
	ErrUnavailable = errors.New("service unavailable")
	// ErrMissingAPIKey is returned when a provider is used without credentials.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrNoProvider is returned for record kinds without a metadata provider.
	ErrNoProvider = errors.New("no metadata provider for this kind")
)

// Source names a metadata provider.
type Source string

const (
	SourceTMDB Source = "tmdb"
	SourceMAL  Source = "mal"
	SourceRAWG Source = "rawg"
)

// SearchResult is one candidate returned by a provider search.
type SearchResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PosterURL   string `json:"poster_url,omitempty"`
	Overview    string `json:"overview,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Type        string `json:"type"`
	Source      Source `json:"source"`
}

// Service bundles all metadata providers.
type Service struct {
	tmdb *TMDB
	omdb *OMDb
	mal  *MAL
	rawg *RAWG
}

// New creates the metadata service. mc may be nil to disable response caching.
func New(cfg *config.MetadataConfig, mc *cache.MetadataCache) *Service {
	if mc == nil {
		mc = &cache.MetadataCache{}
	}
	omdb := NewOMDb(cfg, mc.OMDb)
	return &Service{
		tmdb: NewTMDB(cfg, mc.TMDB, omdb),
		omdb: omdb,
		mal:  NewMAL(cfg, mc.MAL),
		rawg: NewRAWG(cfg, mc.RAWG),
	}
}

// OMDb returns the OMDb client used for ratings refreshes.
func (s *Service) OMDb() *OMDb {
	return s.omdb
}

// Search looks up candidates for a record kind. An empty query yields no results.
func (s *Service) Search(ctx context.Context, kind database.Kind, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	switch kind {
	case database.KindMovie:
		return s.SearchAll(ctx, query)
	case database.KindSeries:
		return s.tmdb.SearchSeries(ctx, query)
	case database.KindGame:
		return s.rawg.Search(ctx, query)
	case database.KindManga:
		return s.mal.SearchManga(ctx, query)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, kind)
	}
}

// Fetch loads a full record from the provider that produced id.
// An empty source selects the default provider of the kind.
// The record is not stored.
func (s *Service) Fetch(ctx context.Context, kind database.Kind, source Source, id string) (database.Record, error) {
	switch kind {
	case database.KindMovie:
		if source == SourceMAL {
			return s.mal.FetchAnimeMovie(ctx, id)
		}
		return s.tmdb.FetchMovie(ctx, id)
	case database.KindSeries:
		return s.tmdb.FetchSeries(ctx, id)
	case database.KindGame:
		return s.rawg.Fetch(ctx, id)
	case database.KindManga:
		return s.mal.FetchManga(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, kind)
	}
}
