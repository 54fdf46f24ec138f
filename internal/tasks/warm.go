package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/musicvid/internal/models"
	"golang.org/x/time/rate"
)

const (
	defaultWarmWorkers = 3
	maxWarmWorkers     = 10
	defaultWarmRate    = 2.0
)

// WarmOpts configures [Warm].
type WarmOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Resolutions started per second (default: 2)
}

// WarmResult is the outcome for a single track.
type WarmResult struct {
	Key        models.TrackKey
	Resolution *Resolution
	Err        error
}

// WarmSummary collects the outcome of a warm run.
type WarmSummary struct {
	Total    int
	Resolved int
	Searched int
	Failed   int
	Results  []WarmResult
}

// Warm resolves keys ahead of playback so later deliveries come from the caches.
//
// Each key is resolved once with the resolver's normal tier order. Failures are collected, not retried.
func Warm(ctx context.Context, prog chan<- Event, r *Resolver, keys []models.TrackKey, opts WarmOpts) (*WarmSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("warm: resolver not initialized")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWarmWorkers
	}
	if opts.NumWorkers > maxWarmWorkers {
		opts.NumWorkers = maxWarmWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultWarmRate
	}

	queued := make([]models.TrackKey, 0, len(keys))
	for _, key := range keys {
		if !key.IsZero() {
			queued = append(queued, key)
		}
	}

	summary := &WarmSummary{
		Total:   len(queued),
		Results: make([]WarmResult, 0, len(queued)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.TrackKey, len(queued))
	results := make(chan WarmResult, len(queued))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go warmWorker(ctx, &wg, r, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, key := range queued {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- key
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		summary.Results = append(summary.Results, res)
		snap := &models.Snapshot{Title: res.Key.Title, Artist: res.Key.Artist}
		if res.Err != nil {
			summary.Failed++
			sendEvent(prog, resolveFailedEvent(snap, 1, res.Err))
			continue
		}
		summary.Resolved++
		if res.Resolution.Source == models.SourceSearch {
			summary.Searched++
		}
		sendEvent(prog, resolvedEvent(snap, res.Resolution, 1))
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func warmWorker(ctx context.Context, wg *sync.WaitGroup, r *Resolver, jobs <-chan models.TrackKey, results chan<- WarmResult) {
	defer wg.Done()

	for key := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		snap := &models.Snapshot{Title: key.Title, Artist: key.Artist}
		res, err := r.Resolve(ctx, snap)
		results <- WarmResult{Key: key, Resolution: res, Err: err}
	}
}
