// package services defines the capabilities the poller consumes from HTTP APIs
//
// Spotify (currently playing), YouTube Data API (video search)
package services

import (
	"context"

	"github.com/desertthunder/musicvid/internal/models"
	"golang.org/x/oauth2"
)

// Player reports what the authenticated user is playing.
type Player interface {
	// CurrentTrack returns the current snapshot, or nil when nothing is playing.
	CurrentTrack(ctx context.Context) (*models.Snapshot, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Searcher finds a video for a free-text query.
type Searcher interface {
	// SearchVideo returns the best match for query or an error if nothing matches.
	SearchVideo(ctx context.Context, query string) (*models.VideoMatch, error)

	Name() string
}

// OAuthService is implemented by services that authenticate through an OAuth2 authorization code flow.
type OAuthService interface {
	Authenticate(ctx context.Context, credentials map[string]string) error
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	Name() string
}
