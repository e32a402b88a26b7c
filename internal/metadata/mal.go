package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/samber/lo"
)

// MAL search rejects queries shorter than this.
const malMinQueryLength = 3

// anime media types that are tracked as movies
var animeMovieTypes = []string{"movie", "ova", "special", "ona"}

// MAL is a client for the MyAnimeList v2 API.
type MAL struct {
	*provider
	clientID string
}

func NewMAL(cfg *config.MetadataConfig, responseCache *cache.ResponseCache) *MAL {
	mc := cfg.MAL
	if mc == nil {
		mc = &config.MALConfig{}
	}
	return &MAL{
		provider: newProvider("mal", mc.URL, cfg, responseCache, header("X-MAL-CLIENT-ID", mc.ClientID)),
		clientID: mc.ClientID,
	}
}

type malPicture struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

type malNode struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	MainPicture malPicture `json:"main_picture"`
	MediaType   string     `json:"media_type"`
	StartDate   string     `json:"start_date"`
	Synopsis    string     `json:"synopsis"`
}

type malSearchItem struct {
	Node malNode `json:"node"`
}

type malSearchResponse struct {
	Data []malSearchItem `json:"data"`
}

type malGenre struct {
	Name string `json:"name"`
}

type malAnime struct {
	malNode
	Mean   *float64   `json:"mean"`
	Genres []malGenre `json:"genres"`
}

type malManga struct {
	malNode
	Mean        *float64   `json:"mean"`
	Genres      []malGenre `json:"genres"`
	NumChapters *int       `json:"num_chapters"`
	NumVolumes  *int       `json:"num_volumes"`
	Status      string     `json:"status"`
	Authors     []struct {
		Node struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"node"`
		Role string `json:"role"`
	} `json:"authors"`
}

func (m *MAL) checkKey() error {
	if m.clientID == "" {
		return fmt.Errorf("%w: mal", ErrMissingAPIKey)
	}
	return nil
}

func (m *MAL) search(ctx context.Context, endpoint, query string, limit int) ([]malNode, error) {
	if err := m.checkKey(); err != nil {
		return nil, err
	}
	if len([]rune(query)) < malMinQueryLength {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "id,title,main_picture,media_type,start_date,synopsis")

	var resp malSearchResponse
	if err := m.getJSON(ctx, endpoint, params, &resp); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, err
	}
	return lo.Map(resp.Data, func(d malSearchItem, _ int) malNode { return d.Node }), nil
}

func (n malNode) result() SearchResult {
	return SearchResult{
		ID:          strconv.FormatInt(n.ID, 10),
		Title:       n.Title,
		PosterURL:   n.MainPicture.Medium,
		Overview:    n.Synopsis,
		ReleaseDate: n.StartDate,
		Type:        n.MediaType,
		Source:      SourceMAL,
	}
}

// SearchAnimeMovies searches MyAnimeList for anime that are tracked as movies.
func (m *MAL) SearchAnimeMovies(ctx context.Context, query string) ([]SearchResult, error) {
	nodes, err := m.search(ctx, "/anime", query, 20)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(nodes))
	for _, n := range nodes {
		if slices.Contains(animeMovieTypes, n.MediaType) {
			results = append(results, n.result())
		}
	}
	return results, nil
}

// SearchManga searches MyAnimeList for manga.
func (m *MAL) SearchManga(ctx context.Context, query string) ([]SearchResult, error) {
	nodes, err := m.search(ctx, "/manga", query, maxSearchResults)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, n.result())
	}
	return results, nil
}

// FetchAnimeMovie loads an anime by MAL id as a movie record.
func (m *MAL) FetchAnimeMovie(ctx context.Context, id string) (*database.Movie, error) {
	if err := m.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("fields", "id,title,main_picture,media_type,start_date,synopsis,mean,genres")

	var a malAnime
	if err := m.getJSON(ctx, "/anime/"+url.PathEscape(id), params, &a); err != nil {
		return nil, err
	}

	return &database.Movie{
		Title:      a.Title,
		Year:       parseYear(a.StartDate),
		Plot:       optString(a.Synopsis),
		PosterPath: optString(a.MainPicture.Medium),
		Genres:     malGenreNames(a.Genres),
		MALRating:  a.Mean,
		MALID:      lo.ToPtr(a.ID),
	}, nil
}

// FetchManga loads a manga by MAL id.
func (m *MAL) FetchManga(ctx context.Context, id string) (*database.Manga, error) {
	if err := m.checkKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("fields", "id,title,main_picture,start_date,synopsis,mean,genres,num_chapters,num_volumes,status,authors{first_name,last_name}")

	var mg malManga
	if err := m.getJSON(ctx, "/manga/"+url.PathEscape(id), params, &mg); err != nil {
		return nil, err
	}

	authors := make(database.JSONList[string], 0, len(mg.Authors))
	for _, a := range mg.Authors {
		if name := strings.TrimSpace(a.Node.FirstName + " " + a.Node.LastName); name != "" {
			authors = append(authors, name)
		}
	}

	return &database.Manga{
		Title:      mg.Title,
		Chapters:   mg.NumChapters,
		Volumes:    mg.NumVolumes,
		Status:     optString(mg.Status),
		PosterPath: optString(mg.MainPicture.Medium),
		Genres:     malGenreNames(mg.Genres),
		Plot:       optString(mg.Synopsis),
		MALID:      lo.ToPtr(mg.ID),
		MALRating:  mg.Mean,
		Authors:    authors,
	}, nil
}

func malGenreNames(genres []malGenre) database.JSONList[string] {
	return lo.Map(genres, func(g malGenre, _ int) string { return g.Name })
}
