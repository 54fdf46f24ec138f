package models

import (
	"fmt"
	"time"
)

// MatchSource names the cache tier a delivered match came from.
type MatchSource string

const (
	SourceStore  MatchSource = "store"
	SourceMemory MatchSource = "memory"
	SourceSearch MatchSource = "search"
)

// Delivery records one link pushed to a viewer.
//
// Deliveries are append-only, so UpdatedAt always equals the delivery time.
type Delivery struct {
	id          string
	viewerID    string
	title       string
	artist      string
	youtubeID   string
	source      MatchSource
	deliveredAt time.Time
}

// NewDelivery creates a delivery of match for key to viewerID.
func NewDelivery(viewerID string, key TrackKey, match VideoMatch, source MatchSource) *Delivery {
	return &Delivery{
		viewerID:    viewerID,
		title:       key.Title,
		artist:      key.Artist,
		youtubeID:   match.VideoID,
		source:      source,
		deliveredAt: time.Now(),
	}
}

func (d *Delivery) ID() string { return d.id }
func (d *Delivery) ViewerID() string { return d.viewerID }
func (d *Delivery) Title() string { return d.title }
func (d *Delivery) Artist() string { return d.artist }
func (d *Delivery) YouTubeID() string { return d.youtubeID }
func (d *Delivery) Source() MatchSource { return d.source }
func (d *Delivery) DeliveredAt() time.Time { return d.deliveredAt }
func (d *Delivery) CreatedAt() time.Time { return d.deliveredAt }
func (d *Delivery) UpdatedAt() time.Time { return d.deliveredAt }

func (d *Delivery) SetID(id string) { d.id = id }
func (d *Delivery) SetDeliveredAt(t time.Time) { d.deliveredAt = t }

// Validate checks the delivery references a viewer and a video.
func (d *Delivery) Validate() error {
	if d.id == "" {
		return fmt.Errorf("delivery id is required")
	}
	if d.viewerID == "" {
		return fmt.Errorf("delivery viewer id is required")
	}
	if d.youtubeID == "" {
		return fmt.Errorf("delivery youtube id is required")
	}
	switch d.source {
	case SourceStore, SourceMemory, SourceSearch:
	default:
		return fmt.Errorf("unknown delivery source %q", d.source)
	}
	return nil
}
