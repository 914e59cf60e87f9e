package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-tools/internal/tools"
)

// NewListCmd creates the "list" subcommand.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the local tool catalog as JSON",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	addConfigFlag(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	catalog := tools.Descriptors(tools.Catalog(cfg.ToolsBaseURL()))
	out := make([]tools.Descriptor, len(catalog))
	for i, d := range catalog {
		out[i] = d.Normalize()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
