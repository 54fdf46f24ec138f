// Package services implements the HTTP clients the poller depends on.
//
// # Capabilities
//
// The poller consumes two narrow interfaces:
//   - [Player] : reports what the user is playing right now
//   - [Searcher] : finds a video for a free-text query
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// It reads GET /me/player/currently-playing and maps the payload onto [models.Snapshot].
// A 204 No Content, a null item, or a podcast episode all mean nothing is playing.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token;
// [SpotifyService.SetTokenRefreshCallback] lets the CLI persist each refreshed token.
//
// # YouTube Implementation
//
// [YouTubeService] calls the YouTube Data API v3 search.list endpoint with an API key.
// Searches are paced by a [rate.Limiter] and the first video result wins.
// Raw HTTP is handled by [APIService].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : Spotify rejected the access token
//   - [shared.ErrQuotaExceeded] : rate limit or daily quota reached
//   - [shared.ErrServiceUnavailable] : upstream 5xx
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrVideoNotFound] : a search returned no videos
package services
