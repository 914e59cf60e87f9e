package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-tools/internal/config"
)

// NewVersionCmd creates the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "vire-toolsync version %s\n", config.GetFullVersion())
			return err
		},
	}
}
