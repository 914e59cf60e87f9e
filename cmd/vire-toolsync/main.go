package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-tools/internal/cli"
	"github.com/bobmcallan/vire-tools/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vire-toolsync",
	Short: "Synchronize hosted tools with the control server registry",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = config.GetFullVersion()
	rootCmd.SetVersionTemplate(fmt.Sprintf("vire-toolsync version %s\n", config.GetFullVersion()))

	rootCmd.AddCommand(cli.NewSyncCmd())
	rootCmd.AddCommand(cli.NewListCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())
}
