package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/forecast"
	"github.com/okian/smartart/pkg/logger"
)

const plotDirPermission = 0o750

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit and score a trend forecast on recent sensor history",
		RunE:  runForecast,
	}
	cmd.Flags().String("measurement", "", "Measurement to read (default: sensor_data)")
	cmd.Flags().StringSlice("field", nil, "Fields to forecast (default: temperature,humidity,light)")
	cmd.Flags().Duration("lookback", forecast.DefaultLookback, "History to read")
	cmd.Flags().Duration("step", forecast.DefaultStep, "Resampling step")
	cmd.Flags().Float64("train-fraction", forecast.DefaultTrainFraction, "Share of the series used for fitting")
	cmd.Flags().String("location", "", "Restrict records to one location tag")
	cmd.Flags().String("plot-dir", "", "Write one PNG per field into this directory")
	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	measurement, _ := cmd.Flags().GetString("measurement")
	fields, _ := cmd.Flags().GetStringSlice("field")
	lookback, _ := cmd.Flags().GetDuration("lookback")
	step, _ := cmd.Flags().GetDuration("step")
	fraction, _ := cmd.Flags().GetFloat64("train-fraction")
	location, _ := cmd.Flags().GetString("location")
	plotDir, _ := cmd.Flags().GetString("plot-dir")

	if plotDir != "" {
		if err := os.MkdirAll(plotDir, plotDirPermission); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	rep, err := forecast.Run(ctx, store, forecast.Options{
		Measurement:   measurement,
		Fields:        fields,
		Lookback:      lookback,
		Step:          step,
		TrainFraction: fraction,
		Location:      location,
		PlotDir:       plotDir,
		Logger:        logger.Get().Named("forecast"),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, rep)
}
