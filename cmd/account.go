package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/perch/internal/adapters/bluesky"
	"github.com/bnema/perch/internal/adapters/mastodon"
	"github.com/bnema/perch/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountListCmd(app),
		newAccountSetDefaultCmd(app),
		newAccountRemoveCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
	}

	cmd.AddCommand(
		newAccountAddMastodonCmd(app),
		newAccountAddBlueskyCmd(app),
	)

	return cmd
}

func newAccountAddMastodonCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mastodon <instance-url>",
		Short: "Add a Mastodon account via OAuth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			instance := strings.TrimSuffix(args[0], "/")
			if !strings.HasPrefix(instance, "http") {
				instance = "https://" + instance
			}

			flow := mastodon.NewOAuthFlow(instance, app.httpClient)
			creds, err := flow.RegisterApp(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Open this URL in your browser and authorize perch:")
			_, _ = fmt.Fprintln(out, "  "+flow.AuthorizeURL(creds))
			_, _ = fmt.Fprint(out, "Paste the authorization code: ")

			code, err := readLine(cmd)
			if err != nil {
				return fmt.Errorf("read authorization code: %w", err)
			}

			token, err := flow.ExchangeCode(ctx, creds, code)
			if err != nil {
				return err
			}

			client := mastodon.NewClient(instance, token, app.httpClient)
			account, err := client.VerifyCredentials(ctx)
			if err != nil {
				return err
			}

			if err := app.accounts.Add(ctx, account, token); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Added %s (%s)\n", account.FullHandle(), account.ID)
			return nil
		},
	}
}

func newAccountAddBlueskyCmd(app *app) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "bluesky <handle>",
		Short: "Add a Bluesky account with an app password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			handle := strings.TrimPrefix(args[0], "@")

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprint(out, "App password (create one under Settings > App Passwords): ")
			password, err := readLine(cmd)
			if err != nil {
				return fmt.Errorf("read app password: %w", err)
			}

			client, err := bluesky.Login(ctx, server, handle, password, app.httpClient)
			if err != nil {
				return err
			}

			account, err := client.VerifyCredentials(ctx)
			if err != nil {
				return err
			}
			account.Server = server

			if err := app.accounts.Add(ctx, account, password); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Added %s (%s)\n", account.FullHandle(), account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "personal data server URL (defaults to bsky.social)")
	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.accounts.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				_, _ = fmt.Fprintln(out, "No accounts configured. Run 'perch account add' first.")
				return nil
			}

			for _, account := range accounts {
				marker := " "
				if account.Default {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %s\t%s\t%s\n", marker, account.ID, account.Network, account.FullHandle())
			}
			return nil
		},
	}
}

func newAccountSetDefaultCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <account-id>",
		Short: "Make an account the default for posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.accounts.SetDefault(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account-id>",
		Short: "Remove an account and its stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.accounts.Remove(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func readLine(cmd *cobra.Command) (string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
