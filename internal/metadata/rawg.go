package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/samber/lo"
)

// RAWG is a client for the RAWG video game database.
type RAWG struct {
	*provider
	apiKey string
}

func NewRAWG(cfg *config.MetadataConfig, responseCache *cache.ResponseCache) *RAWG {
	rc := cfg.RAWG
	if rc == nil {
		rc = &config.RAWGConfig{}
	}
	return &RAWG{
		provider: newProvider("rawg", rc.URL, cfg, responseCache, queryParam("key", rc.APIKey)),
		apiKey:   rc.APIKey,
	}
}

type rawgNamed struct {
	Name string `json:"name"`
}

type rawgSearchResponse struct {
	Results []struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		Released        string `json:"released"`
		BackgroundImage string `json:"background_image"`
	} `json:"results"`
}

type rawgGame struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Released        string         `json:"released"`
	Playtime        *int           `json:"playtime"`
	Rating          *float64       `json:"rating"`
	Metacritic      *int           `json:"metacritic"`
	DescriptionRaw  string         `json:"description_raw"`
	BackgroundImage string         `json:"background_image"`
	Genres          []rawgNamed    `json:"genres"`
	Developers      []rawgNamed    `json:"developers"`
	Platforms       []rawgPlatform `json:"platforms"`
}

type rawgPlatform struct {
	Platform rawgNamed `json:"platform"`
}

func (r *RAWG) checkKey() error {
	if r.apiKey == "" {
		return fmt.Errorf("%w: rawg", ErrMissingAPIKey)
	}
	return nil
}

// Search searches RAWG for games.
func (r *RAWG) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if err := r.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(maxSearchResults))

	var resp rawgSearchResponse
	if err := r.getJSON(ctx, "/games", params, &resp); err != nil {
		if errors.Is(err, ErrNoData) {
			return []SearchResult{}, nil
		}
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, g := range lo.Slice(resp.Results, 0, maxSearchResults) {
		results = append(results, SearchResult{
			ID:          strconv.FormatInt(g.ID, 10),
			Title:       g.Name,
			PosterURL:   g.BackgroundImage,
			ReleaseDate: g.Released,
			Type:        "game",
			Source:      SourceRAWG,
		})
	}
	return results, nil
}

// Fetch loads a game by RAWG id or slug.
func (r *RAWG) Fetch(ctx context.Context, id string) (*database.Game, error) {
	if err := r.checkKey(); err != nil {
		return nil, err
	}

	var g rawgGame
	if err := r.getJSON(ctx, "/games/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, err
	}

	names := func(n rawgNamed, _ int) string { return n.Name }
	return &database.Game{
		Title:      g.Name,
		Year:       parseYear(g.Released),
		Platforms:  lo.Map(g.Platforms, func(p rawgPlatform, _ int) string { return p.Platform.Name }),
		Genres:     lo.Map(g.Genres, names),
		Rating:     g.Rating,
		Metascore:  g.Metacritic,
		Playtime:   g.Playtime,
		PosterPath: optString(g.BackgroundImage),
		Plot:       optString(g.DescriptionRaw),
		RawgID:     lo.ToPtr(g.ID),
		Developers: lo.Map(g.Developers, names),
	}, nil
}
