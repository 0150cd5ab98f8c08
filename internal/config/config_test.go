package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/smartart/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.BusDriver, convey.ShouldEqual, config.BusMemory)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.TopicSensor, convey.ShouldEqual, "smartart/sensor")
			convey.So(cfg.TopicMotion, convey.ShouldEqual, "smartart/motion")
			convey.So(cfg.Location, convey.ShouldEqual, "room1")
			convey.So(cfg.CorrelationWindow(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.SampleCount, convey.ShouldEqual, 100)
			convey.So(cfg.BlendAlpha, convey.ShouldEqual, 0.5)
			convey.So(cfg.DefaultLight, convey.ShouldEqual, 300)
			convey.So(cfg.DefaultTemperature, convey.ShouldEqual, 22)
			convey.So(cfg.DefaultHumidity, convey.ShouldEqual, 50)
			convey.So(cfg.StoreWriteTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.MQTTTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MQTTRedeliveryWindow, convey.ShouldEqual, 0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown bus", func(c *config.Config) { c.BusDriver = "kafka" }},
			{"same topics", func(c *config.Config) { c.TopicMotion = c.TopicSensor }},
			{"bad qos", func(c *config.Config) { c.MQTTQoS = 3 }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"negative window", func(c *config.Config) { c.CorrelationWindowMS = -1 }},
			{"zero window", func(c *config.Config) { c.CorrelationWindowMS = 0 }},
			{"zero mqtt timeout", func(c *config.Config) { c.MQTTTimeoutMS = 0 }},
			{"negative redelivery window", func(c *config.Config) { c.MQTTRedeliveryWindow = -1 }},
			{"zero samples", func(c *config.Config) { c.SampleCount = 0 }},
			{"alpha above one", func(c *config.Config) { c.BlendAlpha = 1.5 }},
			{"alpha below zero", func(c *config.Config) { c.BlendAlpha = -0.1 }},
			{"unknown store", func(c *config.Config) { c.StoreDriver = "csv" }},
			{"sqlite without path", func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.SQLitePath = "" }},
			{"badger without dir", func(c *config.Config) { c.StoreDriver = config.StoreBadger; c.BadgerDir = "" }},
			{"influx without bucket", func(c *config.Config) { c.StoreDriver = config.StoreInflux; c.InfluxBucket = "" }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New(context.Background())
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When alpha sits on a boundary", func() {
			cfg := config.New(context.Background())
			cfg.BlendAlpha = 1

			convey.Convey("Then it is accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
