package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/repositories"
	"github.com/desertthunder/musicvid/internal/shared"
	tu "github.com/desertthunder/musicvid/internal/testing"
)

type cliHarness struct {
	runner   *Runner
	output   *bytes.Buffer
	player   *tu.FakePlayer
	searcher *tu.FakeSearcher
	config   string
	dir      string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	dir := t.TempDir()
	h := &cliHarness{
		output: &bytes.Buffer{},
		player: &tu.FakePlayer{},
		searcher: &tu.FakeSearcher{Results: map[string]string{
			"Artist A Song A": "vidA",
		}},
		config: filepath.Join(dir, "missing.toml"),
		dir:    dir,
	}
	h.runner = NewRunner(RunnerOpts{
		Player:      h.player,
		Searcher:    h.searcher,
		DB:          setupTestDB(t),
		Logger:      shared.NewLogger(io.Discard),
		Output:      h.output,
		OpenBrowser: func(string) error { return nil },
	})
	return h
}

func (h *cliHarness) run(args ...string) error {
	argv := append([]string{"musicvid", "--config", h.config}, args...)
	return h.runner.app().Run(context.Background(), argv)
}

func (h *cliHarness) songs() *repositories.SongStore {
	return repositories.NewSongStore(repositories.NewSongRepository(h.runner.db))
}

func TestCommands(t *testing.T) {
	keyA := models.NewTrackKey("Song A", "Artist A")

	t.Run("search", func(t *testing.T) {
		t.Run("prints urls", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("search", "Artist A Song A"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := h.output.String()
			if !strings.Contains(out, "https://www.youtube.com/watch?v=vidA") {
				t.Errorf("expected watch url, got %q", out)
			}
			if !strings.Contains(out, "https://www.youtube.com/embed/vidA?autoplay=1") {
				t.Errorf("expected embed url, got %q", out)
			}
		})

		t.Run("json output", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("search", "--json", "Artist A Song A"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.output.String(), `"video_id": "vidA"`) {
				t.Errorf("expected pretty json, got %q", h.output.String())
			}
		})

		t.Run("missing query", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("search"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("no match", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("search", "nobody"); !errors.Is(err, shared.ErrVideoNotFound) {
				t.Errorf("expected ErrVideoNotFound, got %v", err)
			}
		})
	})

	t.Run("watch --once", func(t *testing.T) {
		t.Run("delivers the current track", func(t *testing.T) {
			h := newCLIHarness(t)
			h.player.Steps = []tu.PlayerStep{tu.Playing("Song A", "Artist A", 42*time.Second)}

			if err := h.run("watch", "--once", "--viewer", "desk"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			want := "https://www.youtube.com/embed/vidA?autoplay=1&enablejsapi=1&start=42\n"
			if h.output.String() != want {
				t.Errorf("expected %q, got %q", want, h.output.String())
			}

			if id, found, _ := h.songs().Lookup(context.Background(), keyA); !found || id != "vidA" {
				t.Errorf("expected stored mapping, got %q (found=%v)", id, found)
			}

			recent, err := repositories.NewDeliveryRepository(h.runner.db).Recent(context.Background(), "desk", 0)
			if err != nil {
				t.Fatalf("failed to read history: %v", err)
			}
			if len(recent) != 1 || recent[0].Source() != models.SourceSearch {
				t.Errorf("expected one searched delivery, got %v", recent)
			}
		})

		t.Run("nothing playing", func(t *testing.T) {
			h := newCLIHarness(t)
			h.player.Steps = []tu.PlayerStep{{}}

			if err := h.run("watch", "--once"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if h.output.String() != "Nothing playing\n" {
				t.Errorf("unexpected output %q", h.output.String())
			}
			if len(h.searcher.Queries()) != 0 {
				t.Error("expected no search")
			}
		})

		t.Run("not authenticated", func(t *testing.T) {
			h := newCLIHarness(t)
			h.player.Steps = []tu.PlayerStep{tu.Failing(shared.ErrNotAuthenticated)}

			if err := h.run("watch", "--once"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("browser delivery", func(t *testing.T) {
			h := newCLIHarness(t)
			h.player.Steps = []tu.PlayerStep{tu.Playing("Song A", "Artist A", 0)}

			var opened []string
			h.runner.open = func(url string) error {
				opened = append(opened, url)
				return nil
			}

			if err := h.run("watch", "--once", "--deliver", "browser"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(opened) != 1 || !strings.Contains(opened[0], "/embed/vidA") {
				t.Errorf("expected browser to open the embed url, got %v", opened)
			}
			if !strings.Contains(h.output.String(), "✓ Song A by Artist A") {
				t.Errorf("expected delivery event printed, got %q", h.output.String())
			}
		})

		t.Run("requires a player", func(t *testing.T) {
			h := newCLIHarness(t)
			h.runner.player = nil

			if err := h.run("watch", "--once"); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("unknown delivery mode", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("watch", "--once", "--deliver", "fax"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("cache", func(t *testing.T) {
		t.Run("list", func(t *testing.T) {
			h := newCLIHarness(t)
			ctx := context.Background()
			h.songs().Save(ctx, keyA, "vidA")
			h.songs().Save(ctx, models.NewTrackKey("Song B", "Artist B"), "vidB")

			if err := h.run("cache", "list", "--format", "csv", "--artist", "Artist B"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := h.output.String()
			if !strings.HasPrefix(out, "Sequence,Title,Artist,YouTube ID,URL\n") {
				t.Errorf("expected csv header, got %q", out)
			}
			if !strings.Contains(out, "vidB") || strings.Contains(out, "vidA") {
				t.Errorf("expected only Artist B, got %q", out)
			}
		})

		t.Run("list reports stored total", func(t *testing.T) {
			h := newCLIHarness(t)
			ctx := context.Background()
			h.songs().Save(ctx, keyA, "vidA")
			h.songs().Save(ctx, models.NewTrackKey("Song B", "Artist B"), "vidB")

			if err := h.run("cache", "list", "--limit", "1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := h.output.String()
			if !strings.Contains(out, "vidA") || strings.Contains(out, "vidB") {
				t.Errorf("expected only the first song, got %q", out)
			}
			if !strings.HasSuffix(out, "Stored: 2\n") {
				t.Errorf("expected stored total, got %q", out)
			}
		})

		t.Run("list rejects unknown format", func(t *testing.T) {
			h := newCLIHarness(t)

			if err := h.run("cache", "list", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("lookup", func(t *testing.T) {
			h := newCLIHarness(t)
			h.songs().Save(context.Background(), keyA, "vidA")

			if err := h.run("cache", "lookup", "--artist", "Artist A", "--title", "Song A"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.output.String(), "Video: vidA") {
				t.Errorf("expected stored video, got %q", h.output.String())
			}
		})

		t.Run("lookup miss", func(t *testing.T) {
			h := newCLIHarness(t)

			err := h.run("cache", "lookup", "-a", "Artist A", "-t", "Song A")
			if !errors.Is(err, shared.ErrSongNotFound) {
				t.Errorf("expected ErrSongNotFound, got %v", err)
			}
		})

		t.Run("forget", func(t *testing.T) {
			h := newCLIHarness(t)
			ctx := context.Background()
			h.songs().Save(ctx, keyA, "vidA")

			if err := h.run("cache", "forget", "-a", "Artist A", "-t", "Song A"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, found, _ := h.songs().Lookup(ctx, keyA); found {
				t.Error("expected mapping to be gone")
			}

			if err := h.run("cache", "forget", "-a", "Artist A", "-t", "Song A"); !errors.Is(err, shared.ErrSongNotFound) {
				t.Errorf("expected ErrSongNotFound on second forget, got %v", err)
			}
		})

		t.Run("warm", func(t *testing.T) {
			h := newCLIHarness(t)
			list := filepath.Join(h.dir, "tracks.txt")
			content := "# queue\nArtist A - Song A\nArtist B - Song B\n"
			if err := os.WriteFile(list, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write track list: %v", err)
			}

			if err := h.run("cache", "warm", "--file", list, "--rate", "100"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := h.output.String()
			if !strings.Contains(out, "Warmed 1/2 tracks (1 searched, 1 failed)") {
				t.Errorf("unexpected summary %q", out)
			}
			if !strings.Contains(out, "✓ Artist A - Song A → vidA (search)") {
				t.Errorf("expected resolved line, got %q", out)
			}
			if id, found, _ := h.songs().Lookup(context.Background(), keyA); !found || id != "vidA" {
				t.Errorf("expected warmed mapping, got %q (found=%v)", id, found)
			}
		})

		t.Run("warm rejects an empty list", func(t *testing.T) {
			h := newCLIHarness(t)
			list := filepath.Join(h.dir, "empty.txt")
			os.WriteFile(list, []byte("# nothing\n"), 0644)

			if err := h.run("cache", "warm", "--file", list); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("history", func(t *testing.T) {
		record := func(t *testing.T, h *cliHarness, viewer string, at time.Time) {
			t.Helper()
			d := models.NewDelivery(viewer, keyA, models.NewVideoMatch("vidA"), models.SourceStore)
			d.SetDeliveredAt(at)
			if err := repositories.NewDeliveryRepository(h.runner.db).Record(context.Background(), d); err != nil {
				t.Fatalf("failed to record delivery: %v", err)
			}
		}

		t.Run("lists deliveries", func(t *testing.T) {
			h := newCLIHarness(t)
			record(t, h, "desk", time.Now())
			record(t, h, "phone", time.Now())

			if err := h.run("history", "--viewer", "phone", "--format", "json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := h.output.String()
			if !strings.Contains(out, "phone") || strings.Contains(out, "desk") {
				t.Errorf("expected only phone deliveries, got %q", out)
			}
		})

		t.Run("prune", func(t *testing.T) {
			h := newCLIHarness(t)
			record(t, h, "desk", time.Now().Add(-48*time.Hour))
			record(t, h, "desk", time.Now())

			if err := h.run("history", "prune", "--older-than", "24h"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.output.String(), "Pruned 1 deliveries") {
				t.Errorf("unexpected output %q", h.output.String())
			}

			left, _ := repositories.NewDeliveryRepository(h.runner.db).Recent(context.Background(), "", 0)
			if len(left) != 1 {
				t.Errorf("expected 1 delivery left, got %d", len(left))
			}
		})
	})

	t.Run("setup status", func(t *testing.T) {
		h := newCLIHarness(t)

		if err := h.run("setup", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "✓") {
			t.Errorf("expected applied migrations, got %q", h.output.String())
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		h := newCLIHarness(t)
		if err := os.WriteFile(h.config, []byte("[poller]\ninterval = \"0s\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if err := h.run("search", "x"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
