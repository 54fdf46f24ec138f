package models

import (
	"fmt"
	"strings"
	"time"
)

// Song is a persisted track to video mapping. Once stored, a mapping is permanent until forgotten.
type Song struct {
	id        string
	sequence  int
	title     string
	artist    string
	youtubeID string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSong creates a mapping for key resolved to youtubeID. The ID is assigned by the repository.
func NewSong(sequence int, key TrackKey, youtubeID string) *Song {
	now := time.Now()
	return &Song{
		sequence:  sequence,
		title:     key.Title,
		artist:    key.Artist,
		youtubeID: strings.TrimSpace(youtubeID),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Song) ID() string { return s.id }
func (s *Song) Sequence() int { return s.sequence }
func (s *Song) Title() string { return s.title }
func (s *Song) Artist() string { return s.artist }
func (s *Song) YouTubeID() string { return s.youtubeID }
func (s *Song) CreatedAt() time.Time { return s.createdAt }
func (s *Song) UpdatedAt() time.Time { return s.updatedAt }
func (s *Song) DeletedAt() *time.Time {
	return s.deletedAt
}

// Key returns the cache key the song is stored under.
func (s *Song) Key() TrackKey { return TrackKey{Title: s.title, Artist: s.artist} }

// Match returns the video the song maps to, starting at the beginning.
func (s *Song) Match() VideoMatch { return NewVideoMatch(s.youtubeID) }

func (s *Song) SetID(id string) { s.id = id }
func (s *Song) SetSequence(sequence int) { s.sequence = sequence }
func (s *Song) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *Song) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *Song) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Validate checks that the mapping has an identity and a video.
func (s *Song) Validate() error {
	if s.id == "" {
		return fmt.Errorf("song id is required")
	}
	if s.title == "" && s.artist == "" {
		return fmt.Errorf("song title or artist is required")
	}
	if s.youtubeID == "" {
		return fmt.Errorf("song youtube id is required")
	}
	return nil
}
