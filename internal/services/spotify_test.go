package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/musicvid/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

// newTestSpotify returns an authenticated service pointed at handler.
func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.baseURL = server.URL

	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)
			if srv.config.RedirectURL != defaultSpotifyRedirect {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)

		authURL := srv.GetAuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "user-read-currently-playing"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q: %s", want, authURL)
			}
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("WithAccessToken", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)
			if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "abc"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !srv.Authenticated() {
				t.Error("expected service to be authenticated")
			}

			token, err := srv.Token()
			if err != nil || token.AccessToken != "abc" {
				t.Errorf("expected token abc, got %v %v", token, err)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
			if _, err := srv.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Interfaces", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)
		var _ Player = srv
		var _ OAuthService = srv
	})
}

func TestSpotifyCurrentTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("Playing Track", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player/currently-playing" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
				t.Errorf("unexpected authorization header %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"progress_ms": 83500,
				"is_playing": true,
				"currently_playing_type": "track",
				"item": {
					"id": "track-1",
					"name": "Song1",
					"type": "track",
					"artists": [{"name": "ArtistA"}, {"name": "Feature"}]
				}
			}`))
		})

		snap, err := srv.CurrentTrack(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap == nil {
			t.Fatal("expected a snapshot")
		}
		if snap.ID != "track-1" || snap.Title != "Song1" || snap.Artist != "ArtistA" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		if snap.Progress != 83500*time.Millisecond {
			t.Errorf("unexpected progress %v", snap.Progress)
		}
	})

	t.Run("No Content", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		snap, err := srv.CurrentTrack(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			t.Errorf("expected nil snapshot, got %+v", snap)
		}
	})

	t.Run("Episode Is Nothing Playing", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"currently_playing_type": "episode", "item": {"id": "ep", "name": "Pod", "type": "episode"}}`))
		})

		snap, err := srv.CurrentTrack(ctx)
		if err != nil || snap != nil {
			t.Errorf("expected nil snapshot and no error, got %+v %v", snap, err)
		}
	})

	t.Run("Null Item", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"is_playing": false, "item": null}`))
		})

		snap, err := srv.CurrentTrack(ctx)
		if err != nil || snap != nil {
			t.Errorf("expected nil snapshot and no error, got %+v %v", snap, err)
		}
	})

	t.Run("Error Statuses", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrTokenExpired},
			{http.StatusTooManyRequests, shared.ErrQuotaExceeded},
			{http.StatusBadGateway, shared.ErrServiceUnavailable},
			{http.StatusNotFound, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})

				_, err := srv.CurrentTrack(ctx)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})

		if _, err := srv.CurrentTrack(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)
		if _, err := srv.CurrentTrack(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSpotifyUserProfile(t *testing.T) {
	srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": "user1", "display_name": "Test User", "product": "premium"}`))
	})

	user, err := srv.UserProfile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.DisplayName != "Test User" || user.Product != "premium" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestSpotifyItemArtistNames(t *testing.T) {
	item := &SpotifyItem{Artists: []SpotifyArtist{{Name: "A"}, {Name: "B"}}}
	if got := item.ArtistNames(); got != "A, B" {
		t.Errorf("expected 'A, B', got %q", got)
	}
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback when token changes", func(t *testing.T) {
		var captured []string
		mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
		source := &refreshableTokenSource{
			source:   mock,
			callback: func(token *oauth2.Token) { captured = append(captured, token.AccessToken) },
		}

		source.Token()
		source.Token()
		mock.token = &oauth2.Token{AccessToken: "token2"}
		token2, _ := source.Token()

		if len(captured) != 2 || captured[0] != "token1" || captured[1] != "token2" {
			t.Errorf("expected callbacks for token1 and token2, got %v", captured)
		}
		if token2.AccessToken != "token2" {
			t.Errorf("expected new token, got %s", token2.AccessToken)
		}
	})

	t.Run("skips callback for the seeded token", func(t *testing.T) {
		calls := 0
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same"}},
			callback: func(*oauth2.Token) { calls++ },
			last:     "same",
		}

		source.Token()
		if calls != 0 {
			t.Errorf("expected no callback, got %d", calls)
		}
	})

	t.Run("handles nil callback", func(t *testing.T) {
		source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "t"}}}
		if token, err := source.Token(); err != nil || token.AccessToken != "t" {
			t.Errorf("expected token t, got %v %v", token, err)
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{err: errors.New("token source error")},
			callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
		}

		token, err := source.Token()
		if err == nil || !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if token != nil {
			t.Error("expected nil token on error")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
