package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/services"
	"github.com/desertthunder/musicvid/internal/shared"
)

// Store is the durable side of the cache: a (title, artist) to video id mapping.
type Store interface {
	// Lookup returns the stored id and whether one exists.
	Lookup(ctx context.Context, key models.TrackKey) (string, bool, error)
	// Save stores a mapping. Saving an existing key is a no-op.
	Save(ctx context.Context, key models.TrackKey, videoID string) error
}

// Cache is the in-memory recency cache shared by resolvers.
type Cache interface {
	Get(key models.TrackKey) (string, bool)
	Put(key models.TrackKey, videoID string)
}

// atomicCache is implemented by caches that can check and insert under one lock.
type atomicCache interface {
	GetOrPut(key models.TrackKey, videoID string) (string, bool)
}

// Resolution is a resolved match and the tier that produced it.
type Resolution struct {
	Match  models.VideoMatch
	Source models.MatchSource
}

// ResolverOptions tune [Resolver].
type ResolverOptions struct {
	// RewarmStore writes a memory-cache hit back to the store when the store missed.
	RewarmStore bool
	// QuerySuffix is appended to every search query.
	QuerySuffix string
}

// Resolver finds the video for a snapshot: persistent store first, then memory cache, then search.
//
// Both caches are written only after a successful search. Failures are never cached.
type Resolver struct {
	store    Store
	cache    Cache
	searcher services.Searcher
	opts     ResolverOptions
	logger   *log.Logger
}

// NewResolver creates a resolver. store may be nil to run without persistence; a nil logger discards output.
func NewResolver(store Store, cache Cache, searcher services.Searcher, opts ResolverOptions, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		store:    store,
		cache:    cache,
		searcher: searcher,
		opts:     opts,
		logger:   logger,
	}
}

// Resolve returns the match for snap positioned at its playback progress.
func (r *Resolver) Resolve(ctx context.Context, snap *models.Snapshot) (*Resolution, error) {
	if snap.Empty() {
		return nil, shared.ErrNothingPlaying
	}

	key := snap.Key()

	if id, ok := r.lookupStore(ctx, key); ok {
		return r.resolved(snap, id, models.SourceStore), nil
	}

	if id, ok := r.cache.Get(key); ok {
		if r.opts.RewarmStore {
			r.save(ctx, key, id)
		}
		return r.resolved(snap, id, models.SourceMemory), nil
	}

	query := key.Query(r.opts.QuerySuffix)
	match, err := r.searcher.SearchVideo(ctx, query)
	if err != nil {
		searchFailuresTotal.Inc()
		return nil, &ResolveError{Kind: KindSearch, Key: key, Attempts: 1, Err: err}
	}

	id := match.VideoID
	if ac, ok := r.cache.(atomicCache); ok {
		id, _ = ac.GetOrPut(key, id)
	} else {
		r.cache.Put(key, id)
	}
	r.save(ctx, key, id)

	r.logger.Debug("resolved by search", "track", key, "query", query, "video", id)
	return r.resolved(snap, id, models.SourceSearch), nil
}

func (r *Resolver) resolved(snap *models.Snapshot, videoID string, source models.MatchSource) *Resolution {
	resolutionsTotal.WithLabelValues(string(source)).Inc()
	return &Resolution{
		Match:  models.NewVideoMatch(videoID).WithOffset(snap.Progress),
		Source: source,
	}
}

// lookupStore treats store errors as a miss.
func (r *Resolver) lookupStore(ctx context.Context, key models.TrackKey) (string, bool) {
	if r.store == nil {
		return "", false
	}
	id, ok, err := r.store.Lookup(ctx, key)
	if err != nil {
		storeErrorsTotal.WithLabelValues("lookup").Inc()
		r.logger.Warn("store lookup failed, treating as miss", "err", &StoreError{Op: "lookup", Key: key, Err: err})
		return "", false
	}
	return id, ok && id != ""
}

func (r *Resolver) save(ctx context.Context, key models.TrackKey, videoID string) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, key, videoID); err != nil {
		storeErrorsTotal.WithLabelValues("save").Inc()
		r.logger.Warn("store save failed", "err", &StoreError{Op: "save", Key: key, Err: err})
	}
}
