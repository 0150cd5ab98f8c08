// Package main provides smartartctl, the offline companion of the smartart
// service: model training, sensor forecasts, traffic simulation and schema
// migrations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/smartart/internal/config"
	"github.com/okian/smartart/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smartartctl",
		Short: "Offline tools for the smartart sensor bridge",
		Long: `smartartctl works against the same configuration and store as the
smartart service. Settings come from SMARTART_CONFIG and SMARTART_* variables;
flags override them per run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if err := logger.Init(); err != nil {
				return err
			}
			return logger.SetLevelString(level)
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("config", "", "Config file (overrides SMARTART_CONFIG)")

	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newMigrateCmd())
	return rootCmd
}

// loadConfig honors --config before the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(cmd.Context(), path)
	}
	return config.Load(cmd.Context())
}
