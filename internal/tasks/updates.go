package tasks

import (
	"fmt"

	"github.com/desertthunder/musicvid/internal/models"
)

// Event reports something the poller did. Events are for observers only; dropping them never affects polling.
type Event struct {
	Phase      Phase            // What happened
	ViewerID   string           // Poller that emitted the event
	Snapshot   *models.Snapshot // Track involved, if any
	Resolution *Resolution      // Set on [PhaseResolved] and [PhaseDelivered]
	URL        string           // Delivered link
	Attempt    int              // Resolve attempt number, starting at 1
	Err        error            // Failure, if any
	Message    string           // Human-readable message for display
}

// Event phase enumeration
type Phase int

const (
	PhaseFetchFailed Phase = iota
	PhaseChanged
	PhaseNothingPlaying
	PhaseResolved
	PhaseResolveFailed
	PhaseResolveExhausted
	PhaseDelivered
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseFetchFailed:
		return "fetch_failed"
	case PhaseChanged:
		return "changed"
	case PhaseNothingPlaying:
		return "nothing_playing"
	case PhaseResolved:
		return "resolved"
	case PhaseResolveFailed:
		return "resolve_failed"
	case PhaseResolveExhausted:
		return "resolve_exhausted"
	case PhaseDelivered:
		return "delivered"
	case PhaseStopped:
		return "stopped"
	default:
		return ""
	}
}

// sendEvent sends an event through the channel without blocking.
func sendEvent(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

func fetchFailedEvent(err error) Event {
	return Event{
		Phase:   PhaseFetchFailed,
		Err:     err,
		Message: fmt.Sprintf("Could not read current track, backing off: %v", err),
	}
}

func changedEvent(snap *models.Snapshot) Event {
	return Event{
		Phase:    PhaseChanged,
		Snapshot: snap,
		Message:  fmt.Sprintf("Now playing: %s", snap),
	}
}

func nothingPlayingEvent(snap *models.Snapshot) Event {
	return Event{
		Phase:    PhaseNothingPlaying,
		Snapshot: snap,
		Message:  "Nothing playing",
	}
}

func resolvedEvent(snap *models.Snapshot, res *Resolution, attempt int) Event {
	return Event{
		Phase:      PhaseResolved,
		Snapshot:   snap,
		Resolution: res,
		Attempt:    attempt,
		Message:    fmt.Sprintf("Found %s (%s)", res.Match.WatchURL, res.Source),
	}
}

func resolveFailedEvent(snap *models.Snapshot, attempt int, err error) Event {
	return Event{
		Phase:    PhaseResolveFailed,
		Snapshot: snap,
		Attempt:  attempt,
		Err:      err,
		Message:  fmt.Sprintf("[attempt %d] no video for %s: %v", attempt, snap, err),
	}
}

func resolveExhaustedEvent(snap *models.Snapshot, err *ResolveError) Event {
	return Event{
		Phase:    PhaseResolveExhausted,
		Snapshot: snap,
		Attempt:  err.Attempts,
		Err:      err,
		Message:  fmt.Sprintf("✗ Gave up on %s after %d attempts", snap, err.Attempts),
	}
}

func deliveredEvent(snap *models.Snapshot, res *Resolution, url string) Event {
	return Event{
		Phase:      PhaseDelivered,
		Snapshot:   snap,
		Resolution: res,
		URL:        url,
		Message:    fmt.Sprintf("✓ %s → %s", snap, url),
	}
}

func stoppedEvent(err error) Event {
	return Event{
		Phase:   PhaseStopped,
		Err:     err,
		Message: fmt.Sprintf("Poller stopped: %v", err),
	}
}
