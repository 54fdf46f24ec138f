package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/musicvid/internal/server"
	"github.com/desertthunder/musicvid/internal/services"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrInvalidArgument, r.configPath)
	}

	token, err := r.doOAuth(ctx, r.spotify, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}
	r.spotify.UseToken(ctx, token)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: musicvid watch\n")
	return nil
}

// spotifyStatus is the JSON shape of [Runner.SpotifyStatus].
type spotifyStatus struct {
	User     string `json:"user"`
	UserID   string `json:"user_id"`
	Playing  bool   `json:"playing"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Progress string `json:"progress,omitempty"` // m:ss into the track
}

// SpotifyStatus prints the authorized account and the current track.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return err
	}
	snap, err := r.spotify.CurrentTrack(ctx)
	if err != nil {
		return err
	}

	status := spotifyStatus{User: user.DisplayName, UserID: user.ID, Playing: !snap.Empty()}
	if status.Playing {
		status.Title, status.Artist = snap.Title, snap.Artist
		status.Progress = shared.FormatDuration(int(snap.Progress / time.Second))
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Account: %s (%s)\n", status.User, status.UserID)
	if !status.Playing {
		r.writePlain("Playing: nothing\n")
		return nil
	}
	r.writePlain("Playing: %s [%s]\n", snap.String(), status.Progress)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := server.New(r.config.Server.Host, r.config.Server.Port, router, r.logger)
	r.logger.Infof("starting OAuth server for %s at %v", prefix, httpServer.Addr())
	serverErrors := httpServer.Start()
	defer func() {
		if err := httpServer.Shutdown(); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := r.open(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err, ok := <-serverErrors:
		if ok {
			return nil, fmt.Errorf("server error: %w", err)
		}
		return nil, fmt.Errorf("%w: OAuth server stopped", shared.ErrAuthFailed)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
