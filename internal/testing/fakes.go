package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

// ErrScriptDone is returned by [FakePlayer] once its script has run out.
var ErrScriptDone = errors.New("fake player script exhausted")

// PlayerStep is one scripted CurrentTrack result.
type PlayerStep struct {
	Snapshot *models.Snapshot
	Err      error
}

// Playing builds a step that reports title by artist at progress.
func Playing(title, artist string, progress time.Duration) PlayerStep {
	return PlayerStep{Snapshot: &models.Snapshot{Title: title, Artist: artist, Progress: progress}}
}

// Failing builds a step whose fetch fails with err.
func Failing(err error) PlayerStep {
	return PlayerStep{Err: err}
}

// FakePlayer replays Steps in order. When the script runs out it calls Done (if set) and returns [ErrScriptDone].
type FakePlayer struct {
	mu    sync.Mutex
	Steps []PlayerStep
	Done  func()
	calls int
}

func (p *FakePlayer) CurrentTrack(ctx context.Context) (*models.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.calls >= len(p.Steps) {
		p.calls++
		if p.Done != nil {
			p.Done()
		}
		return nil, ErrScriptDone
	}

	step := p.Steps[p.calls]
	p.calls++
	return step.Snapshot, step.Err
}

func (p *FakePlayer) Name() string { return "fake-player" }

// Calls returns how many times CurrentTrack ran.
func (p *FakePlayer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// FakeSearcher answers queries from Results. The first FailFirst calls fail with Err.
type FakeSearcher struct {
	mu        sync.Mutex
	Results   map[string]string
	FailFirst int
	Err       error
	queries   []string
}

func (s *FakeSearcher) SearchVideo(ctx context.Context, query string) (*models.VideoMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, query)

	if s.FailFirst > 0 {
		s.FailFirst--
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, fmt.Errorf("%w: scripted failure", shared.ErrServiceUnavailable)
	}

	id, ok := s.Results[query]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrVideoNotFound, query)
	}
	match := models.NewVideoMatch(id)
	return &match, nil
}

func (s *FakeSearcher) Name() string { return "fake-searcher" }

// Queries returns every query received, in order.
func (s *FakeSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Count returns how many times query was searched.
func (s *FakeSearcher) Count(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queries {
		if q == query {
			n++
		}
	}
	return n
}

// FakeStore is an in-memory persistent store. LookupErr and SaveErr force failures.
type FakeStore struct {
	mu        sync.Mutex
	Songs     map[models.TrackKey]string
	LookupErr error
	SaveErr   error
	saves     int
}

// NewFakeStore returns a store preloaded with songs.
func NewFakeStore(songs map[models.TrackKey]string) *FakeStore {
	if songs == nil {
		songs = map[models.TrackKey]string{}
	}
	return &FakeStore{Songs: songs}
}

func (s *FakeStore) Lookup(ctx context.Context, key models.TrackKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return "", false, s.LookupErr
	}
	id, ok := s.Songs[key]
	return id, ok, nil
}

func (s *FakeStore) Save(ctx context.Context, key models.TrackKey, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if s.Songs == nil {
		s.Songs = map[models.TrackKey]string{}
	}
	if _, ok := s.Songs[key]; !ok {
		s.Songs[key] = videoID
	}
	return nil
}

// Saves returns how many times Save was called.
func (s *FakeStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Get returns the stored id for key.
func (s *FakeStore) Get(key models.TrackKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.Songs[key]
	return id, ok
}

// FakeDeliverer records delivered URLs. Err is returned from every call once set.
type FakeDeliverer struct {
	mu        sync.Mutex
	Err       error
	OnDeliver func() // runs before each delivery
	urls      []string
}

func (d *FakeDeliverer) Deliver(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OnDeliver != nil {
		d.OnDeliver()
	}
	if d.Err != nil {
		return d.Err
	}
	d.urls = append(d.urls, url)
	return nil
}

// URLs returns the delivered URLs in order.
func (d *FakeDeliverer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// FakeRecorder keeps delivery history in memory.
type FakeRecorder struct {
	mu         sync.Mutex
	Err        error
	Deliveries []*models.Delivery
}

func (r *FakeRecorder) Record(ctx context.Context, d *models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Deliveries = append(r.Deliveries, d)
	return nil
}

// RecordingSleeper records requested sleeps and returns immediately unless ctx is done.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns the recorded durations in order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}
