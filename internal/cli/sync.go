package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-tools/internal/app"
	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
	"github.com/bobmcallan/vire-tools/internal/toolsync"
)

// NewSyncCmd creates the "sync" subcommand.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local tool catalog with the registry once",
		Long:  "Create or update every local tool in the registry. Exits 1 when any tool failed.",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}

	addConfigFlag(cmd)
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing to the registry")
	cmd.Flags().Int("concurrency", 0, "Tools reconciled at once (overrides config)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("quiet", false, "Suppress log output")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	format, _ := cmd.Flags().GetString("format")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if concurrency > 0 {
		cfg.Sync.Concurrency = concurrency
	}
	dryRun = dryRun || cfg.Sync.DryRun

	logger := common.NewSilentLogger()
	if !quiet {
		logger = app.NewLogger(cfg)
	}

	registry := client.NewRegistryClient(cfg.Registry.URL, cfg.Registry.Key, logger,
		client.WithTimeout(cfg.Registry.CallTimeout()),
		client.WithRateLimit(cfg.Registry.RequestsPerSecond),
	)
	reconciler := toolsync.NewReconciler(registry, logger, toolsync.Options{
		CallTimeout: cfg.Registry.CallTimeout(),
		Concurrency: cfg.Sync.Concurrency,
		DryRun:      dryRun,
	})

	summary := reconciler.Run(cmd.Context(), tools.Descriptors(tools.Catalog(cfg.ToolsBaseURL())))

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	default:
		printSummary(out, summary)
	}

	if summary.HasFailures() {
		return exitError(exitSyncFailures, "%d of %d tools failed to sync", summary.Failed, summary.Total)
	}
	return nil
}

func printSummary(w io.Writer, s toolsync.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSTATUS\tDETAIL")
	for _, o := range s.Outcomes {
		status := string(o.Status)
		if o.DryRun {
			status += " (dry run)"
		}
		detail := ""
		switch {
		case o.Failed():
			detail = fmt.Sprintf("%s: %s", o.Reason, o.Error)
		case len(o.Changed) > 0:
			detail = fmt.Sprintf("changed: %v", o.Changed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Tool, status, detail)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d tools: %d unchanged, %d created, %d updated, %d failed\n",
		s.Total, s.Unchanged, s.Created, s.Updated, s.Failed)
}
