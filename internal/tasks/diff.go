package tasks

import "github.com/desertthunder/musicvid/internal/models"

// HasChanged reports whether curr is a different track from prev.
//
// A nil prev means nothing has been observed yet, so the first snapshot always counts as a change.
// Only identity matters: the upstream id when both snapshots carry one, otherwise title and artist.
// An empty snapshot (nothing playing) is an identity of its own.
func HasChanged(prev, curr *models.Snapshot) bool {
	if prev == nil {
		return true
	}
	return !prev.SameTrack(curr)
}
