package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/musicvid/internal/models"
)

// ErrExhausted marks a retry loop that used its whole attempt budget.
var ErrExhausted = errors.New("retry attempts exhausted")

// FetchError is a failure reading the player. Fatal errors end [Poller.Run]; the rest trigger backoff.
type FetchError struct {
	Fatal bool
	Err   error
}

func (e *FetchError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fetch current track (fatal): %v", e.Err)
	}
	return fmt.Sprintf("fetch current track: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ResolveKind distinguishes why a resolution failed.
type ResolveKind int

const (
	// KindSearch is a single failed video search.
	KindSearch ResolveKind = iota + 1
	// KindExhausted means every allowed search attempt failed.
	KindExhausted
)

func (k ResolveKind) String() string {
	switch k {
	case KindSearch:
		return "search_failed"
	case KindExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// ResolveError is a failure to find a video for Key. It never poisons either cache.
type ResolveError struct {
	Kind     ResolveKind
	Key      models.TrackKey
	Attempts int
	Err      error
}

func (e *ResolveError) Error() string {
	if e.Kind == KindExhausted {
		return fmt.Sprintf("resolve %s: gave up after %d attempts: %v", e.Key, e.Attempts, e.Err)
	}
	return fmt.Sprintf("resolve %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// StoreError is a failed persistent store call. It is logged and never stops a delivery.
type StoreError struct {
	Op  string
	Key models.TrackKey
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DeliveryError means the viewer could not be reached. It ends [Poller.Run].
type DeliveryError struct {
	URL string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsFatal reports whether err should stop a poller.
func IsFatal(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return true
	}
	var fe *FetchError
	return errors.As(err, &fe) && fe.Fatal
}
