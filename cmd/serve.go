package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/musicvid/internal/server"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/desertthunder/musicvid/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the viewer server. Every websocket connection gets its own poller; all of them share the caches.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlayer(); err != nil {
		return err
	}

	resolver, err := r.newResolver()
	if err != nil {
		return err
	}

	// fail before listening if the database is unusable
	if _, err := r.pollerOptions("", nil); err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	factory := func(viewerID string, d tasks.Deliverer) (*tasks.Poller, error) {
		opts, err := r.pollerOptions(viewerID, nil)
		if err != nil {
			return nil, err
		}
		return tasks.NewPoller(r.player, resolver, d, opts), nil
	}

	viewers := server.NewViewerHandler(factory, server.ViewerOptions{
		WriteTimeout:   r.config.Server.HTTPTimeout.Duration,
		AllowedOrigins: r.config.Server.AllowedOrigins,
	}, logger)
	defer viewers.CloseAll()

	host, port := r.config.Server.Host, r.config.Server.Port
	if h := cmd.String("host"); h != "" {
		host = h
	}
	if p := cmd.Int("port"); p > 0 {
		port = int(p)
	}

	lock, err := shared.AcquireLock(shared.LockPath(r.config.Database.Path, "serve"))
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(host, port, server.NewRouter(viewers, logger), logger)
	r.writePlain("→ Viewers can connect to ws://%s/ws\n", srv.Addr())
	return srv.Run(ctx)
}
