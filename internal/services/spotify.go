// Spotify Web API implementation of [Player]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultSpotifyRedirect = "http://127.0.0.1:3000/callback"
	defaultSpotifyTimeout  = 10 * time.Second
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyItem is the playing item. Type is "track" or "episode".
type SpotifyItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	Timestamp            int64        `json:"timestamp"`
	ProgressMS           int          `json:"progress_ms"`
	IsPlaying            bool         `json:"is_playing"`
	CurrentlyPlayingType string       `json:"currently_playing_type"`
	Item                 *SpotifyItem `json:"item"`
}

// Snapshot converts the response to a [models.Snapshot]; nil when no track is loaded.
//
// The first listed artist is used. Local files have no id and are identified by title and artist.
func (c *SpotifyCurrentlyPlaying) Snapshot() *models.Snapshot {
	if c == nil || c.Item == nil {
		return nil
	}
	if c.Item.Type != "" && c.Item.Type != "track" {
		return nil
	}

	snap := &models.Snapshot{
		ID:       c.Item.ID,
		Title:    c.Item.Name,
		Progress: time.Duration(c.ProgressMS) * time.Millisecond,
	}
	if len(c.Item.Artists) > 0 {
		snap.Artist = c.Item.Artists[0].Name
	}
	if snap.Empty() {
		return nil
	}
	return snap
}

// SpotifyService implements [Player] and [OAuthService] for the Spotify Web API.
// Uses [oauth2] for authentication; the client refreshes expired tokens on its own.
type SpotifyService struct {
	config     *oauth2.Config
	source     oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration

	onTokenRefresh func(*oauth2.Token)
}

// refreshableTokenSource reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != r.last {
		r.last = token.AccessToken
		if r.callback != nil {
			r.callback(token)
		}
	}
	return token, nil
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultSpotifyRedirect
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-currently-playing",
			"user-read-playback-state",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:  config,
		baseURL: spotifyBaseURL,
		timeout: defaultSpotifyTimeout,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetTimeout sets the per-request HTTP timeout used after the next [SpotifyService.Authenticate].
func (s *SpotifyService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Authenticate performs OAuth2 authentication with Spotify.
//
// Expects one of "access_token" (optionally with "refresh_token"), "refresh_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken := credentials["access_token"]
	refreshToken := credentials["refresh_token"]

	if accessToken != "" || refreshToken != "" {
		token := &oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "Bearer"}
		if accessToken == "" {
			token.Expiry = time.Now().Add(-time.Minute)
		}
		s.UseToken(ctx, token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.UseToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token, refresh_token or auth_code", shared.ErrMissingCredentials)
}

// SetTokenRefreshCallback registers fn to receive each refreshed token so it can be persisted.
// Must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// UseToken authenticates the service with an existing token.
func (s *SpotifyService) UseToken(ctx context.Context, token *oauth2.Token) {
	// refreshes must outlive the caller's context
	ctx = context.WithoutCancel(ctx)
	s.source = oauth2.ReuseTokenSource(nil, &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	})
	s.httpClient = oauth2.NewClient(ctx, s.source)
	s.httpClient.Timeout = s.timeout
}

// Token returns the current, possibly refreshed, token so callers can persist it.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.source.Token()
}

// Authenticated reports whether a token has been supplied.
func (s *SpotifyService) Authenticated() bool {
	return s.source != nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the underlying OAuth2 configuration for callback handlers.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated GET against the Spotify API and returns the status code.
// result is left untouched on 204 No Content.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("%w: spotify status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		retry := resp.Header.Get("Retry-After")
		return resp.StatusCode, fmt.Errorf("%w: spotify rate limit (retry after %ss)", shared.ErrQuotaExceeded, retry)
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: spotify status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return resp.StatusCode, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentlyPlaying returns the raw currently-playing payload, or nil on 204 No Content.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*SpotifyCurrentlyPlaying, error) {
	var playing SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, "/me/player/currently-playing", &playing)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &playing, nil
}

// CurrentTrack implements [Player]. It returns nil when nothing is loaded or an episode is playing.
func (s *SpotifyService) CurrentTrack(ctx context.Context) (*models.Snapshot, error) {
	playing, err := s.CurrentlyPlaying(ctx)
	if err != nil {
		return nil, err
	}
	return playing.Snapshot(), nil
}

// ArtistNames joins every artist on the item, for display.
func (i *SpotifyItem) ArtistNames() string {
	names := make([]string, 0, len(i.Artists))
	for _, a := range i.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
