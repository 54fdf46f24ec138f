package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

// SongStore adapts [SongRepository] to the resolver's persistent store.
//
// Writes are deduplicated on (title, artist): the first stored video wins and later saves are no-ops.
type SongStore struct {
	repo *SongRepository
}

// NewSongStore creates a new SongStore with the given repository
func NewSongStore(repo *SongRepository) *SongStore {
	return &SongStore{repo: repo}
}

// Lookup returns the stored video id for key. A missing mapping is a miss, not an error.
func (s *SongStore) Lookup(ctx context.Context, key models.TrackKey) (string, bool, error) {
	song, err := s.repo.GetByKey(ctx, key)
	if errors.Is(err, shared.ErrSongNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return song.YouTubeID(), true, nil
}

// Save stores the mapping key → videoID.
// Returns nil if a mapping already exists; only actual failures are reported.
func (s *SongStore) Save(ctx context.Context, key models.TrackKey, videoID string) error {
	if _, found, err := s.Lookup(ctx, key); err == nil && found {
		return nil
	}

	if err := s.repo.Create(ctx, models.NewSong(0, key, videoID)); err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to store song: %w", err)
	}

	return nil
}

// Forget removes the mapping for key.
func (s *SongStore) Forget(ctx context.Context, key models.TrackKey) error {
	return s.repo.DeleteByKey(ctx, key)
}
