package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-tools/internal/config"
)

// addConfigFlag registers the repeatable --config flag.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("config", "c", nil, "Configuration file path (repeatable)")
}

// loadConfig loads the files named by --config, or the auto-discovered one,
// and rejects configurations that fail validation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("config")
	if len(files) == 0 {
		files = config.Discover(config.DefaultConfigFile)
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, exitError(exitConfig, "failed to load configuration: %v", err)
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, exitError(exitConfig, "invalid configuration:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return cfg, nil
}
