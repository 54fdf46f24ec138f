package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/desertthunder/musicvid/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// deliverer builds the local delivery target named by mode.
func (r *Runner) deliverer(mode string) (tasks.Deliverer, error) {
	stdout := tasks.NewWriterDeliverer(r.output)
	browser := tasks.NewBrowserDeliverer(r.open)

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "stdout":
		return stdout, nil
	case "browser":
		return browser, nil
	case "both":
		return tasks.MultiDeliverer{stdout, browser}, nil
	default:
		return nil, fmt.Errorf("%w: unknown delivery mode %q (stdout, browser, both)", shared.ErrInvalidArgument, mode)
	}
}

// Watch polls the player and delivers a link for every track change until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlayer(); err != nil {
		return err
	}

	mode := strings.ToLower(strings.TrimSpace(cmd.String("deliver")))
	deliverer, err := r.deliverer(mode)
	if err != nil {
		return err
	}

	resolver, err := r.newResolver()
	if err != nil {
		return err
	}

	// piped stdout gets bare links only
	toStdout := mode == "" || mode == "stdout" || mode == "both"
	var events chan tasks.Event
	if !toStdout || isTerminal(r.output) {
		events = make(chan tasks.Event, 16)
	}

	opts, err := r.pollerOptions(cmd.String("viewer"), events)
	if err != nil {
		return err
	}
	poller := tasks.NewPoller(r.player, resolver, deliverer, opts)

	if cmd.Bool("once") {
		state, err := poller.PollOnce(ctx)
		r.drainEvents(events, toStdout)
		if err != nil {
			return err
		}
		r.logger.Debug("poll complete", "state", state)
		if events == nil && state == tasks.StateChanged && poller.Last().Empty() {
			r.writePlain("Nothing playing\n")
		}
		return nil
	}

	lock, err := shared.AcquireLock(shared.LockPath(r.config.Database.Path, "watch-"+opts.ViewerID))
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if events != nil {
		go r.printEvents(ctx, events, toStdout)
	}

	r.logger.Info("watching", "player", r.player.Name(), "deliver", mode, "interval", opts.PollInterval)
	return ignoreCanceled(poller.Run(ctx))
}

// printEvents writes user-facing poller events until ctx is done.
func (r *Runner) printEvents(ctx context.Context, events <-chan tasks.Event, delivered bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			r.printEvent(ev, delivered)
		}
	}
}

func (r *Runner) drainEvents(events chan tasks.Event, delivered bool) {
	for {
		select {
		case ev := <-events:
			r.printEvent(ev, delivered)
		default:
			return
		}
	}
}

// printEvent skips delivery events when the link itself was already written to the output.
func (r *Runner) printEvent(ev tasks.Event, delivered bool) {
	switch ev.Phase {
	case tasks.PhaseDelivered:
		if !delivered {
			r.writePlain("%s\n", ev.Message)
		}
	case tasks.PhaseChanged:
		if !ev.Snapshot.Empty() {
			r.writePlain("%s\n", ev.Message)
		}
	case tasks.PhaseNothingPlaying, tasks.PhaseResolveExhausted, tasks.PhaseFetchFailed:
		r.writePlain("%s\n", ev.Message)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
