package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/smartart/internal/adapters/mq/bus"
	"github.com/okian/smartart/internal/simulate"
	"github.com/okian/smartart/pkg/logger"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish synthetic readings, motion and ratings to a running service",
		RunE:  runSimulate,
	}
	cmd.Flags().String("url", simulate.DefaultBaseURL, "Base URL of the service")
	cmd.Flags().String("via", "http", "Publish readings over http or mqtt")
	cmd.Flags().Duration("interval", simulate.DefaultInterval, "Pause between readings")
	cmd.Flags().Int("count", 0, "Number of readings (0 runs until interrupted)")
	cmd.Flags().Float64("motion", 0.3, "Probability of a motion event after each reading")
	cmd.Flags().Int("rate-every", 3, "Rate the latest visual after every n readings (0 disables)")
	cmd.Flags().Int("users", simulate.DefaultUsers, "Number of synthetic raters")
	cmd.Flags().Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	baseURL, _ := cmd.Flags().GetString("url")
	via, _ := cmd.Flags().GetString("via")
	interval, _ := cmd.Flags().GetDuration("interval")
	count, _ := cmd.Flags().GetInt("count")
	motion, _ := cmd.Flags().GetFloat64("motion")
	rateEvery, _ := cmd.Flags().GetInt("rate-every")
	users, _ := cmd.Flags().GetInt("users")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	seed, _ := cmd.Flags().GetInt64("seed")

	simCfg := simulate.Config{
		BaseURL:           baseURL,
		Interval:          interval,
		Count:             count,
		MotionProbability: motion,
		RateEvery:         rateEvery,
		Users:             users,
		Timeout:           timeout,
		Seed:              seed,
		SensorTopic:       cfg.TopicSensor,
		MotionTopic:       cfg.TopicMotion,
	}
	client := simulate.NewHTTPClient(baseURL, timeout, cfg.TopicSensor, cfg.TopicMotion)
	if err := client.Health(ctx); err != nil {
		return err
	}

	var pub simulate.Publisher = client
	switch via {
	case "http":
	case "mqtt":
		mb, err := bus.NewMQTTBus(ctx, bus.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID + "-sim",
			QoS:      byte(cfg.MQTTQoS),
			Timeout:  timeout,
		}, logger.Get().Named("bus"))
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer func() { _ = mb.Close(ctx) }()
		pub = mb
	default:
		return fmt.Errorf("unknown --via %q: want http or mqtt", via)
	}

	stats, err := simulate.Run(ctx, simCfg, pub, client)
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}
