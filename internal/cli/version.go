package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:          "version",
		Short:        "Print the client version.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("webisync version: %s\n", version)
			return nil
		},
	}
}
