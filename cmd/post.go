package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
)

func newPostCmd(app *app) *cobra.Command {
	var (
		all      bool
		networks []string
	)

	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Publish a post",
		Long:  "Publish a post to the default account, to every account (--all), or to every account on the given networks (--network).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content := args[0]

			targets, err := targetAccounts(app, cmd, all, networks)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return fmt.Errorf("no matching accounts; run 'perch account add' first")
			}

			worker := application.NewWorker(app.resolver, app.logger)
			worker.Commands() <- application.SubmitPost{Content: content, Accounts: targets}
			worker.Commands() <- application.Shutdown{}
			worker.Run(ctx)

			out := cmd.OutOrStdout()
			for {
				select {
				case result := <-worker.Results():
					switch r := result.(type) {
					case application.Posted:
						for _, post := range r.Posts {
							_, _ = fmt.Fprintf(out, "posted to %s: %s\n", post.Network, post.URL)
						}
					case application.StatusResult:
						_, _ = fmt.Fprintln(out, r.Message)
					case application.ErrorResult:
						return fmt.Errorf("submit post: %s", r.Message)
					}
				default:
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "post to every configured account")
	cmd.Flags().StringSliceVar(&networks, "network", nil, "post to all accounts on these networks (mastodon, bluesky)")
	return cmd
}

func targetAccounts(app *app, cmd *cobra.Command, all bool, networks []string) ([]domain.Account, error) {
	ctx := cmd.Context()

	if all {
		return app.accounts.List(ctx)
	}

	if len(networks) > 0 {
		wanted := make(map[domain.Network]bool, len(networks))
		for _, raw := range networks {
			network, err := domain.ParseNetwork(raw)
			if err != nil {
				return nil, err
			}
			wanted[network] = true
		}

		accounts, err := app.accounts.List(ctx)
		if err != nil {
			return nil, err
		}
		var targets []domain.Account
		for _, account := range accounts {
			if wanted[account.Network] {
				targets = append(targets, account)
			}
		}
		return targets, nil
	}

	account, err := app.accounts.DefaultAccount(ctx)
	if err != nil {
		return nil, err
	}
	return []domain.Account{account}, nil
}
