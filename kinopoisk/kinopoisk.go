// Package kinopoisk is a minimal client for the kinopoisk.dev v1.4 API,
// used to backfill movie metadata missing from the local cache.
package kinopoisk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/autogenz/movieai/store"
)

const (
	baseURL   = "https://api.kinopoisk.dev/v1.4"
	searchURL = baseURL + "/movie/search"

	// The free API tier allows roughly one request per second sustained.
	requestsPerSecond = 1
	requestBurst      = 3
)

// Client fetches movie records from the external provider. All requests
// go through a shared rate limiter.
type Client struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// movieDoc mirrors the subset of the v1.4 movie document this service reads.
type movieDoc struct {
	ID              int64  `json:"id"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	AlternativeName string `json:"alternativeName"`
	Description     string `json:"description"`
	Year            int    `json:"year"`
	MovieLength     int    `json:"movieLength"`
	ExternalID      struct {
		Tmdb int64 `json:"tmdb"`
	} `json:"externalId"`
	Rating struct {
		Kp   float64 `json:"kp"`
		Imdb float64 `json:"imdb"`
	} `json:"rating"`
	Poster struct {
		URL string `json:"url"`
	} `json:"poster"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Countries []struct {
		Name string `json:"name"`
	} `json:"countries"`
}

type searchResponse struct {
	Docs []movieDoc `json:"docs"`
}

// GetByKpID fetches one movie document by its id. Returns nil when the
// record does not exist or is filtered out.
func (c *Client) GetByKpID(ctx context.Context, kpID int64) (*store.Movie, error) {
	var doc movieDoc
	ok, err := c.get(ctx, baseURL+"/movie/"+strconv.FormatInt(kpID, 10), &doc)
	if err != nil || !ok {
		return nil, err
	}
	return toMovie(&doc), nil
}

// GetByTitle searches for the best match for a title, optionally narrowed
// by year and genre, and returns the top document or nil.
func (c *Client) GetByTitle(ctx context.Context, title string, year int, genre string) (*store.Movie, error) {
	parts := []string{title}
	if year > 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	if genre != "" {
		parts = append(parts, genre)
	}
	docs, err := c.search(ctx, strings.Join(parts, " "), 1)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return toMovie(&docs[0]), nil
}

// Search returns up to limit filtered matches for a free-form query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*store.Movie, error) {
	docs, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	movies := make([]*store.Movie, 0, len(docs))
	for i := range docs {
		movies = append(movies, toMovie(&docs[i]))
	}
	return movies, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]movieDoc, error) {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("query", query)

	var result searchResponse
	ok, err := c.get(ctx, searchURL+"?"+params.Encode(), &result)
	if err != nil || !ok {
		return nil, err
	}

	docs := result.Docs[:0]
	for _, doc := range result.Docs {
		if usable(&doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// get performs one rate-limited request. A non-200 status is not an
// error: the caller treats it as not-found, matching how retrieval
// failures degrade to empty results everywhere else.
func (c *Client) get(ctx context.Context, rawURL string, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// usable drops series and records missing the fields the UI requires.
func usable(doc *movieDoc) bool {
	if doc.Type == "tv-series" {
		return false
	}
	if doc.Poster.URL == "" {
		return false
	}
	if doc.Year == 0 {
		return false
	}
	return true
}

func toMovie(doc *movieDoc) *store.Movie {
	if !usable(doc) {
		return nil
	}
	movie := &store.Movie{
		KpID:        doc.ID,
		TmdbID:      doc.ExternalID.Tmdb,
		TitleRu:     doc.Name,
		TitleEn:     doc.AlternativeName,
		OverviewRu:  doc.Description,
		RatingKp:    doc.Rating.Kp,
		RatingImdb:  doc.Rating.Imdb,
		Year:        doc.Year,
		MovieLength: doc.MovieLength,
		PosterURL:   doc.Poster.URL,
	}
	for _, g := range doc.Genres {
		movie.GenresRu = append(movie.GenresRu, g.Name)
	}
	for _, country := range doc.Countries {
		movie.CountriesRu = append(movie.CountriesRu, country.Name)
	}
	return movie
}
