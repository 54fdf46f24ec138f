package tasks

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/services"
	"github.com/desertthunder/musicvid/internal/shared"
)

const (
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultBackoffInterval = 5 * time.Second
	DefaultViewerID        = "local"
)

// State is where a poller is in its cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateChanged
	StateUnchanged
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateChanged:
		return "changed"
	case StateUnchanged:
		return "unchanged"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Recorder keeps a log of deliveries.
type Recorder interface {
	Record(ctx context.Context, d *models.Delivery) error
}

// PollerOptions configure a [Poller]. Zero values fall back to the package defaults.
type PollerOptions struct {
	ViewerID        string
	PollInterval    time.Duration
	BackoffInterval time.Duration
	Retry           RetryPolicy
	Sleep           Sleeper
	Recorder        Recorder
	Events          chan<- Event
	Logger          *log.Logger
}

// Poller watches a [services.Player] and delivers a video link each time the track changes.
//
// A poller owns its last snapshot; every viewer gets its own poller.
type Poller struct {
	player    services.Player
	resolver  *Resolver
	deliverer Deliverer
	opts      PollerOptions

	mu    sync.RWMutex
	state State
	last  *models.Snapshot
}

// NewPoller creates a poller that has not seen any track yet.
func NewPoller(player services.Player, resolver *Resolver, deliverer Deliverer, opts PollerOptions) *Poller {
	if opts.ViewerID == "" {
		opts.ViewerID = DefaultViewerID
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BackoffInterval <= 0 {
		opts.BackoffInterval = DefaultBackoffInterval
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepWithContext
	}
	if opts.Retry.Sleep == nil {
		opts.Retry.Sleep = opts.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Poller{
		player:    player,
		resolver:  resolver,
		deliverer: deliverer,
		opts:      opts,
	}
}

// ViewerID returns the id of the viewer this poller serves.
func (p *Poller) ViewerID() string { return p.opts.ViewerID }

// State returns the current cycle state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Last returns a copy of the last snapshot that triggered a change, or nil before the first one.
func (p *Poller) Last() *models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	snap := *p.last
	return &snap
}

// Run polls until ctx is done or a fatal error occurs.
//
// Fetch failures wait the backoff interval and retry. A track that cannot be resolved is
// reported and skipped. Missing authorization and delivery failures end the loop.
func (p *Poller) Run(ctx context.Context) error {
	activePollers.Inc()
	defer activePollers.Dec()

	logger := p.opts.Logger.With("viewer", p.opts.ViewerID)
	logger.Debug("poller started", "interval", p.opts.PollInterval, "backoff", p.opts.BackoffInterval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := p.PollOnce(ctx)
		if err != nil {
			// a viewer leaving mid-delivery is a disconnect, not a failure
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if IsFatal(err) {
				logger.Error("poller stopped", "err", err)
				p.emit(stoppedEvent(err))
				return err
			}
		}

		wait := p.opts.PollInterval
		if state == StateBackoff {
			wait = p.opts.BackoffInterval
		}
		if err := p.opts.Sleep(ctx, wait); err != nil {
			return err
		}
		p.setState(StateIdle)
	}
}

// PollOnce runs a single fetch, diff and deliver cycle and returns the state it ended in.
func (p *Poller) PollOnce(ctx context.Context) (State, error) {
	logger := p.opts.Logger.With("viewer", p.opts.ViewerID)
	p.setState(StateFetching)

	snap, err := p.player.CurrentTrack(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.setState(StateIdle)
			return StateIdle, ctxErr
		}
		fe := &FetchError{Fatal: errors.Is(err, shared.ErrNotAuthenticated), Err: err}
		fetchErrorsTotal.Inc()
		pollsTotal.WithLabelValues("error").Inc()
		p.setState(StateBackoff)
		if !fe.Fatal {
			logger.Warn("fetch failed, backing off", "player", p.player.Name(), "err", err, "wait", p.opts.BackoffInterval)
			p.emit(fetchFailedEvent(fe))
		}
		return StateBackoff, fe
	}
	if snap == nil {
		snap = &models.Snapshot{}
	}

	p.mu.Lock()
	changed := HasChanged(p.last, snap)
	if changed {
		p.last = snap
		p.state = StateChanged
	} else {
		p.state = StateUnchanged
	}
	p.mu.Unlock()

	if !changed {
		pollsTotal.WithLabelValues("unchanged").Inc()
		return StateUnchanged, nil
	}

	pollsTotal.WithLabelValues("changed").Inc()
	logger.Info("track changed", "track", snap.String())
	p.emit(changedEvent(snap))

	if snap.Empty() {
		p.emit(nothingPlayingEvent(snap))
		return StateChanged, nil
	}

	res, err := p.resolve(ctx, snap)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return StateChanged, ctxErr
		}
		var re *ResolveError
		if errors.As(err, &re) {
			p.emit(resolveExhaustedEvent(snap, re))
		}
		logger.Warn("skipping track", "track", snap.String(), "err", err)
		return StateChanged, err
	}

	url := res.Match.EmbedURL()
	if err := p.deliverer.Deliver(ctx, url); err != nil {
		deliveriesTotal.WithLabelValues("error").Inc()
		return StateChanged, &DeliveryError{URL: url, Err: err}
	}
	deliveriesTotal.WithLabelValues("ok").Inc()
	logger.Info("delivered", "track", snap.String(), "url", url, "source", res.Source)
	p.emit(deliveredEvent(snap, res, url))

	p.record(ctx, snap, res)
	return StateChanged, nil
}

// resolve applies the retry policy to the resolver.
func (p *Poller) resolve(ctx context.Context, snap *models.Snapshot) (*Resolution, error) {
	var res *Resolution
	attempts, err := p.opts.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		r, err := p.resolver.Resolve(ctx, snap)
		if err != nil {
			p.emit(resolveFailedEvent(snap, attempt, err))
			return err
		}
		p.emit(resolvedEvent(snap, r, attempt))
		res = r
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ResolveError{Kind: KindExhausted, Key: snap.Key(), Attempts: attempts, Err: err}
	}
	return res, nil
}

func (p *Poller) record(ctx context.Context, snap *models.Snapshot, res *Resolution) {
	if p.opts.Recorder == nil {
		return
	}
	d := models.NewDelivery(p.opts.ViewerID, snap.Key(), res.Match, res.Source)
	if err := p.opts.Recorder.Record(ctx, d); err != nil {
		p.opts.Logger.Warn("failed to record delivery", "viewer", p.opts.ViewerID, "err", err)
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) emit(ev Event) {
	ev.ViewerID = p.opts.ViewerID
	sendEvent(p.opts.Events, ev)
}
