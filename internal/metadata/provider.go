// Package metadata enriches an indexed MediaItem with poster art, overview,
// rating and genres from an external movie/TV provider (spec.md §4.9,
// "external movie/TV metadata provider reached over HTTPS with JSON
// responses"), grounded in the teacher's TMDB scraper (scraper_tmdb.go)
// but trimmed to the single search+lookup round trip a movie/show needs,
// dropping the teacher's TVDB/MusicBrainz/OpenLibrary/Audnexus/NFO/
// automatch providers that serve music and audiobook libraries outside
// this spec's scope.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// Match is one search candidate the Provider returns, ranked best-first.
type Match struct {
	ExternalID  string
	Title       string
	Year        *int
	Overview    string
	PosterURL   string
	BackdropURL string
	Rating      float64
	Genres      []string
}

// Provider is the external collaborator spec.md §6 names: an HTTPS JSON API
// keyed by an optional API key and language.
type Provider struct {
	apiKey   string
	language string
	client   *http.Client
}

func NewProvider(apiKey, language string) *Provider {
	if language == "" {
		language = "en"
	}
	return &Provider{apiKey: apiKey, language: language, client: &http.Client{Timeout: 15 * time.Second}}
}

// Configured reports whether an API key was supplied; Enrich is a no-op
// without one rather than failing every scan.
func (p *Provider) Configured() bool { return p.apiKey != "" }

var genreNames = map[int]string{
	28: "Action", 12: "Adventure", 16: "Animation", 35: "Comedy", 80: "Crime",
	99: "Documentary", 18: "Drama", 10751: "Family", 14: "Fantasy", 36: "History",
	27: "Horror", 10402: "Music", 9648: "Mystery", 10749: "Romance",
	878: "Science Fiction", 53: "Thriller", 10752: "War", 37: "Western",
	10759: "Action & Adventure", 10762: "Kids", 10763: "News", 10764: "Reality",
	10765: "Sci-Fi & Fantasy", 10766: "Soap", 10767: "Talk", 10768: "War & Politics",
}

type tmdbSearchResponse struct {
	Results []struct {
		ID            int     `json:"id"`
		Title         string  `json:"title"`
		Name          string  `json:"name"`
		Overview      string  `json:"overview"`
		PosterPath    string  `json:"poster_path"`
		BackdropPath  string  `json:"backdrop_path"`
		ReleaseDate   string  `json:"release_date"`
		FirstAirDate  string  `json:"first_air_date"`
		VoteAverage   float64 `json:"vote_average"`
		GenreIDs      []int   `json:"genre_ids"`
	} `json:"results"`
}

// Search queries TMDB's /search/{movie|tv} endpoint for title, optionally
// narrowed by year, and returns ranked candidates.
func (p *Provider) Search(ctx context.Context, title string, year *int, kind models.MediaKind) ([]Match, error) {
	if !p.Configured() {
		return nil, apperr.New(apperr.Upstream, "metadata provider not configured")
	}

	searchType := "movie"
	if kind == models.MediaTvShow {
		searchType = "tv"
	}

	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("language", p.language)
	q.Set("query", title)
	if year != nil && *year > 0 {
		if searchType == "movie" {
			q.Set("year", strconv.Itoa(*year))
		} else {
			q.Set("first_air_date_year", strconv.Itoa(*year))
		}
	}

	reqURL := fmt.Sprintf("%s/search/%s?%s", tmdbBaseURL, searchType, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build metadata request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "metadata provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.Upstream, "metadata provider returned "+resp.Status)
	}

	var parsed tmdbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "decode metadata provider response", err)
	}

	matches := make([]Match, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		m := Match{
			ExternalID: strconv.Itoa(r.ID),
			Title:      firstNonEmpty(r.Title, r.Name),
			Overview:   r.Overview,
			Rating:     r.VoteAverage,
		}
		if r.PosterPath != "" {
			m.PosterURL = "https://image.tmdb.org/t/p/w500" + r.PosterPath
		}
		if r.BackdropPath != "" {
			m.BackdropURL = "https://image.tmdb.org/t/p/w1280" + r.BackdropPath
		}
		if date := firstNonEmpty(r.ReleaseDate, r.FirstAirDate); len(date) >= 4 {
			if y, err := strconv.Atoi(date[:4]); err == nil {
				m.Year = &y
			}
		}
		for _, id := range r.GenreIDs {
			if name, ok := genreNames[id]; ok {
				m.Genres = append(m.Genres, name)
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BestMatch picks the first search result, TMDB's own relevance ordering.
func BestMatch(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

func joinGenres(genres []string) string {
	return strings.Join(genres, ",")
}
