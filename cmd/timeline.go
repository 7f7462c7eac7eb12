package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	timelinerender "github.com/bnema/perch/internal/adapters/render/timeline"
	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
)

func newTimelineCmd(app *app) *cobra.Command {
	var (
		cached bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show the merged timeline across all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if cached {
				posts, err := app.cache.RecentPosts(ctx, limit)
				if err != nil {
					return err
				}
				return renderPosts(app, cmd, posts, "")
			}

			accounts, err := app.accounts.List(ctx)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				_, _ = fmt.Fprintln(out, "No accounts configured. Run 'perch account add' first.")
				return nil
			}

			posts, status, err := fetchTimeline(app, cmd, accounts)
			if err != nil {
				return err
			}
			if len(posts) > limit {
				posts = posts[:limit]
			}

			if err := app.cache.SavePosts(ctx, posts); err != nil {
				app.logger.Warn("cache posts", "error", err)
			}

			return renderPosts(app, cmd, posts, status)
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "show cached posts without fetching")
	cmd.Flags().IntVar(&limit, "limit", 40, "maximum number of posts to show")
	return cmd
}

// fetchTimeline runs one refresh command through the worker and collects
// its results.
func fetchTimeline(app *app, cmd *cobra.Command, accounts []domain.Account) ([]domain.Post, string, error) {
	worker := application.NewWorker(app.resolver, app.logger)
	worker.Commands() <- application.RefreshTimeline{Accounts: accounts}
	worker.Commands() <- application.Shutdown{}
	worker.Run(cmd.Context())

	var (
		posts  []domain.Post
		status string
	)
	for {
		select {
		case result := <-worker.Results():
			switch r := result.(type) {
			case application.TimelineRefreshed:
				posts = r.Posts
			case application.StatusResult:
				status = r.Message
			case application.ErrorResult:
				return nil, "", fmt.Errorf("refresh timeline: %s", r.Message)
			}
		default:
			return posts, status, nil
		}
	}
}

func renderPosts(app *app, cmd *cobra.Command, posts []domain.Post, status string) error {
	rendered, err := app.timelineRenderer(posts, timelinerender.RenderOptions{Now: app.now()})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, rendered)
	if status != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+status)
	}
	return nil
}
