package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/training"
	"github.com/okian/smartart/pkg/logger"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the suggestion model from stored ratings",
		Long: `Correlate every visual rating with the nearest sensor record inside the
window, fit the suggestion model and save it where the service loads it from.`,
		RunE: runTrain,
	}
	cmd.Flags().Duration("window", 0, "Correlation window (default: correlation_window_ms)")
	cmd.Flags().String("model", "", "Model output path (default: model_path)")
	cmd.Flags().Float64("ridge", 0, "L2 penalty (default: scoring default)")
	cmd.Flags().String("location", "", "Restrict sensor records to one location tag")
	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	window, _ := cmd.Flags().GetDuration("window")
	modelPath, _ := cmd.Flags().GetString("model")
	ridge, _ := cmd.Flags().GetFloat64("ridge")
	location, _ := cmd.Flags().GetString("location")
	if window <= 0 {
		window = cfg.CorrelationWindow()
	}
	if modelPath == "" {
		modelPath = cfg.ModelPath
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	start := time.Now()
	rep, err := training.Run(ctx, store, training.Options{
		Window:    window,
		ModelPath: modelPath,
		Ridge:     ridge,
		Location:  location,
		Logger:    logger.Get().Named("train"),
	})
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "training finished", logger.Duration("took", time.Since(start)))
	return printJSON(cmd, rep)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
