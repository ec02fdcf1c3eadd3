package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/webilytics/webinar-sync/internal/cli"
)

func main() {
	command := NewWebiSyncCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewWebiSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webisync [flags] [options]",
		Short: "webisync controls the webinar sync service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdSync())
	cmd.AddCommand(cli.NewCmdJobs())
	cmd.AddCommand(cli.NewCmdResync())
	cmd.AddCommand(cli.NewCmdWebinars())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
