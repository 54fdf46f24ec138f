package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/urfave/cli/v3"
)

type searchResult struct {
	Query    string `json:"query"`
	VideoID  string `json:"video_id"`
	WatchURL string `json:"watch_url"`
	EmbedURL string `json:"embed_url"`
}

// Search runs one video search, bypassing both caches.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if r.searcher == nil {
		return fmt.Errorf("%w: video search not configured", shared.ErrServiceUnavailable)
	}

	r.logger.Debugf("searching %s for %q", r.searcher.Name(), query)

	match, err := r.searcher.SearchVideo(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	result := searchResult{
		Query:    query,
		VideoID:  match.VideoID,
		WatchURL: match.WatchURL,
		EmbedURL: match.EmbedURL(),
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("Video: %s\n", result.VideoID)
	r.writePlain("Watch: %s\n", result.WatchURL)
	r.writePlain("Embed: %s\n", result.EmbedURL)
	return nil
}
