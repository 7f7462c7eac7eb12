package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "perch",
		Short:         "perch: one timeline for Mastodon and Bluesky",
		Long:          "perch aggregates your Mastodon and Bluesky accounts into a single timeline you can read, post to, and interact with from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newTimelineCmd(app),
		newPostCmd(app),
		newScheduleCmd(app),
		newTuiCmd(app),
	)

	return rootCmd
}
