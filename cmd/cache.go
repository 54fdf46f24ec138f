package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/musicvid/internal/formatter"
	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/repositories"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/desertthunder/musicvid/internal/tasks"
	"github.com/urfave/cli/v3"
)

func trackKey(cmd *cli.Command) (models.TrackKey, error) {
	key := models.NewTrackKey(cmd.String("title"), cmd.String("artist"))
	if key.Title == "" || key.Artist == "" {
		return key, fmt.Errorf("%w: --artist and --title", shared.ErrMissingArgument)
	}
	return key, nil
}

// CacheList prints the stored mappings in the requested format.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"artist": strings.TrimSpace(cmd.String("artist")),
		"title":  strings.TrimSpace(cmd.String("title")),
		"limit":  int(cmd.Int("limit")),
	}
	repo := repositories.NewSongRepository(db)
	songs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	r.logger.Debug("listing stored songs", "count", len(songs), "format", format)
	if err := formatter.WriteSongs(r.output, songs, format); err != nil {
		return err
	}
	if format != formatter.FormatText {
		return nil
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	return r.writePlainln("Stored: %d", total)
}

// CacheLookup prints the stored video for one track.
func (r *Runner) CacheLookup(ctx context.Context, cmd *cli.Command) error {
	key, err := trackKey(cmd)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	song, err := repositories.NewSongRepository(db).GetByKey(ctx, key)
	if err != nil {
		return err
	}

	match := song.Match()
	r.writePlain("%s\n", key)
	r.writePlain("  Video: %s\n", song.YouTubeID())
	r.writePlain("  Watch: %s\n", match.WatchURL)
	r.writePlain("  Stored: %s\n", song.CreatedAt().Format("2006-01-02 15:04:05"))
	return nil
}

// CacheForget drops one stored mapping so the next play searches again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	key, err := trackKey(cmd)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	if err := repositories.NewSongStore(repositories.NewSongRepository(db)).Forget(ctx, key); err != nil {
		return err
	}

	r.writePlain("✓ Forgot %s\n", key)
	return nil
}

// CacheWarm resolves every track in a list so later plays are served from the store.
func (r *Runner) CacheWarm(ctx context.Context, cmd *cli.Command) error {
	var in io.Reader = os.Stdin
	if path := cmd.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open track list: %w", err)
		}
		defer f.Close()
		in = f
	}

	keys, err := formatter.ReadTrackKeys(in)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no tracks to warm", shared.ErrInvalidInput)
	}

	resolver, err := r.newResolver()
	if err != nil {
		return err
	}

	events := make(chan tasks.Event, len(keys))
	summary, err := tasks.Warm(ctx, events, resolver, keys, tasks.WarmOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(events)
	for ev := range events {
		r.logger.Debug(ev.Message, "phase", ev.Phase)
	}
	if err != nil {
		return err
	}

	for _, res := range summary.Results {
		if res.Err != nil {
			r.writePlain("✗ %s: %v\n", res.Key, res.Err)
			continue
		}
		r.writePlain("✓ %s → %s (%s)\n", res.Key, res.Resolution.Match.VideoID, res.Resolution.Source)
	}

	r.writePlainln("Warmed %d/%d tracks (%d searched, %d failed)", summary.Resolved, summary.Total, summary.Searched, summary.Failed)
	return nil
}
