package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/musicvid/internal/formatter"
	"github.com/desertthunder/musicvid/internal/repositories"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the most recent deliveries, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	deliveries, err := repositories.NewDeliveryRepository(db).Recent(ctx, cmd.String("viewer"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return formatter.WriteDeliveries(r.output, deliveries, format)
}

// HistoryPrune deletes deliveries older than --older-than.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	older := cmd.Duration("older-than")
	if older <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewDeliveryRepository(db).Prune(ctx, time.Now().Add(-older))
	if err != nil {
		return err
	}

	r.writePlain("✓ Pruned %d deliveries older than %s\n", n, older)
	return nil
}
