package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

func newScheduleCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Queue posts for later",
	}

	cmd.AddCommand(
		newScheduleAddCmd(app),
		newScheduleRunCmd(app),
	)

	return cmd
}

func newScheduleAddCmd(app *app) *cobra.Command {
	var (
		at       string
		networks []string
	)

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Queue a post for a future time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("parse --at (want RFC3339, e.g. 2026-09-01T18:00:00Z): %w", err)
			}

			targets := make([]domain.Network, 0, len(networks))
			for _, raw := range networks {
				network, err := domain.ParseNetwork(raw)
				if err != nil {
					return err
				}
				targets = append(targets, network)
			}
			if len(targets) == 0 {
				targets = domain.Networks()
			}

			scheduler := application.NewScheduler(app.cache, nil, nil, ports.SystemClock{}, app.logger)
			post, err := scheduler.Schedule(cmd.Context(), args[0], targets, when)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s for %s\n", post.ID, post.ScheduledFor.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "when to post, RFC3339 (required)")
	cmd.Flags().StringSliceVar(&networks, "network", nil, "networks to post to (default: all)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newScheduleRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted, posting queued entries as they come due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			worker, stopWorker := app.newWorker()
			defer stopWorker()

			// Drain results so the worker never blocks on a full queue.
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case result := <-worker.Results():
						if r, ok := result.(application.ErrorResult); ok {
							app.logger.Error("scheduled post failed", "error", r.Message)
						}
					}
				}
			}()

			scheduler := application.NewScheduler(app.cache, app.repo, worker.Commands(), ports.SystemClock{}, app.logger)
			if err := scheduler.Start(); err != nil {
				return err
			}
			defer scheduler.Stop()

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "scheduler running; press ctrl-c to stop")
			<-ctx.Done()
			return nil
		},
	}
}
