// YouTube Data API v3 [Searcher] implementation
//
// Search responses based on https://developers.google.com/youtube/v3/docs/search/list
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultYTTimeout = 10 * time.Second
)

// YouTubeThumbnail represents a single thumbnail size.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeSnippet carries the descriptive fields of a search result.
type YouTubeSnippet struct {
	PublishedAt  string                      `json:"publishedAt"`
	ChannelID    string                      `json:"channelId"`
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	ChannelTitle string                      `json:"channelTitle"`
	Thumbnails   map[string]YouTubeThumbnail `json:"thumbnails"`
}

type youtubeResourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

// YouTubeSearchItem represents one entry in a search.list response.
type YouTubeSearchItem struct {
	Kind    string            `json:"kind"`
	ID      youtubeResourceID `json:"id"`
	Snippet YouTubeSnippet    `json:"snippet"`
}

type youtubePageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

// YouTubeSearchResponse is the body of GET /search.
type YouTubeSearchResponse struct {
	Kind     string              `json:"kind"`
	PageInfo youtubePageInfo     `json:"pageInfo"`
	Items    []YouTubeSearchItem `json:"items"`
}

type youtubeErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// YouTubeService implements [Searcher] against the YouTube Data API using an API key.
//
// Requests are paced by a token bucket so repeated searches stay inside the daily quota.
type YouTubeService struct {
	apiKey  string
	api     *APIService
	limiter *rate.Limiter
}

// NewYouTubeService creates a search client. An empty baseURL uses the public API;
// requestsPerSecond ≤ 0 disables pacing.
func NewYouTubeService(apiKey, baseURL string, requestsPerSecond float64) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &YouTubeService{
		apiKey:  apiKey,
		api:     NewAPIService(baseURL, &http.Client{Timeout: defaultYTTimeout}),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SetTimeout replaces the per-request HTTP timeout.
func (y *YouTubeService) SetTimeout(d time.Duration) {
	if d > 0 {
		y.api.httpClient.Timeout = d
	}
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

// Search returns up to maxResults video results for query.
//
// Calls GET /search?part=snippet&type=video.
func (y *YouTubeService) Search(ctx context.Context, query string, maxResults int) ([]YouTubeSearchItem, error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key is not set", shared.ErrMissingCredentials)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrMissingArgument)
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
		"q":          {query},
		"key":        {y.apiKey},
	}

	resp, err := y.api.Get(ctx, "/search", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return nil, youtubeError(resp)
	}

	var body YouTubeSearchResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	items := body.Items[:0]
	for _, item := range body.Items {
		if item.ID.VideoID != "" {
			items = append(items, item)
		}
	}

	return items, nil
}

// SearchVideo returns the first video result for query.
func (y *YouTubeService) SearchVideo(ctx context.Context, query string) (*models.VideoMatch, error) {
	items, err := y.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrVideoNotFound, query)
	}

	match := models.NewVideoMatch(items[0].ID.VideoID)
	return &match, nil
}

// youtubeError maps a non-2xx response to a shared error.
func youtubeError(resp *APIResponse) error {
	var errResp youtubeErrorResponse
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if err := resp.Decode(&errResp); err == nil && errResp.Error.Message != "" {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, errResp.Error.Message)
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		for _, e := range errResp.Error.Errors {
			if e.Reason == "quotaExceeded" || e.Reason == "rateLimitExceeded" {
				return fmt.Errorf("%w: %s", shared.ErrQuotaExceeded, detail)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s", shared.ErrQuotaExceeded, detail)
		}
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, detail)
	case http.StatusBadRequest, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, detail)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, detail)
	default:
		return fmt.Errorf("%w: youtube %s", shared.ErrAPIRequest, detail)
	}
}
