package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	youtubeWatchURL = "https://www.youtube.com/watch"
	youtubeEmbedURL = "https://www.youtube.com/embed/"
)

// Snapshot is a point-in-time read of what the user is playing.
//
// ID is the upstream track id and may be empty. Progress never takes part in identity.
// The zero Snapshot stands for "nothing playing" and is a distinct identity of its own.
type Snapshot struct {
	ID       string
	Title    string
	Artist   string
	Progress time.Duration
}

// Empty reports whether the snapshot carries no playable item.
func (s *Snapshot) Empty() bool {
	return s == nil || (strings.TrimSpace(s.ID) == "" && strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.Artist) == "")
}

// Key returns the cache key for the snapshot.
func (s *Snapshot) Key() TrackKey {
	if s == nil {
		return TrackKey{}
	}
	return NewTrackKey(s.Title, s.Artist)
}

// SameTrack reports whether s and other identify the same track.
//
// The upstream id decides when both snapshots carry one; otherwise the normalized
// (title, artist) pair does. Two empty snapshots are the same "nothing playing" track.
func (s *Snapshot) SameTrack(other *Snapshot) bool {
	if s.Empty() || other.Empty() {
		return s.Empty() && other.Empty()
	}
	if s.ID != "" && other.ID != "" {
		return s.ID == other.ID
	}
	return s.Key() == other.Key()
}

func (s *Snapshot) String() string {
	if s.Empty() {
		return "nothing playing"
	}
	return fmt.Sprintf("%s by %s", s.Title, s.Artist)
}

// TrackKey is the (title, artist) pair used to look tracks up in both caches.
//
// Fields are trimmed of surrounding whitespace; case is kept as received.
type TrackKey struct {
	Title  string
	Artist string
}

// NewTrackKey builds a normalized [TrackKey].
func NewTrackKey(title, artist string) TrackKey {
	return TrackKey{Title: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)}
}

// Query renders the search query "{artist} {title}", followed by suffix when one is given.
func (k TrackKey) Query(suffix string) string {
	q := strings.TrimSpace(k.Artist + " " + k.Title)
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		q += " " + suffix
	}
	return q
}

// IsZero reports whether the key has neither title nor artist.
func (k TrackKey) IsZero() bool {
	return k.Title == "" && k.Artist == ""
}

func (k TrackKey) String() string {
	return k.Artist + " - " + k.Title
}

// VideoMatch is a resolved YouTube video. Offset is the playback position the viewer should start at.
type VideoMatch struct {
	VideoID  string
	WatchURL string
	Offset   time.Duration
}

// NewVideoMatch builds a match for videoID with its canonical watch URL.
func NewVideoMatch(videoID string) VideoMatch {
	q := url.Values{"v": []string{videoID}}
	return VideoMatch{
		VideoID:  videoID,
		WatchURL: youtubeWatchURL + "?" + q.Encode(),
	}
}

// WithOffset returns a copy of m that starts playback at offset.
func (m VideoMatch) WithOffset(offset time.Duration) VideoMatch {
	if offset < 0 {
		offset = 0
	}
	m.Offset = offset
	return m
}

// EmbedURL returns the autoplaying embed link delivered to viewers.
//
// The start parameter is whole seconds and is omitted below one second.
func (m VideoMatch) EmbedURL() string {
	q := url.Values{}
	if secs := int64(m.Offset / time.Second); secs > 0 {
		q.Set("start", fmt.Sprintf("%d", secs))
	}
	q.Set("autoplay", "1")
	q.Set("enablejsapi", "1")
	return youtubeEmbedURL + url.PathEscape(m.VideoID) + "?" + q.Encode()
}
