package service

import (
	"context"
	"testing"
	"time"

	"github.com/okian/smartart/internal/adapters/mq/bus"
	"github.com/okian/smartart/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMQTTConfig(t *testing.T) {
	Convey("Given a config with MQTT credentials and limits", t, func() {
		cfg := config.New(context.Background())
		cfg.MQTTBroker = "tcp://broker:1883"
		cfg.MQTTClientID = "bridge-1"
		cfg.MQTTQoS = 2
		cfg.MQTTUsername = "bridge"
		cfg.MQTTPassword = "secret"
		cfg.MQTTTimeoutMS = 2500
		cfg.MQTTRedeliveryWindow = 512
		cfg.StoreWriteTimeoutMS = 100

		Convey("Then the bus settings come from the mqtt keys", func() {
			So(mqttConfig(cfg), ShouldResemble, bus.MQTTConfig{
				Broker:           "tcp://broker:1883",
				ClientID:         "bridge-1",
				QoS:              2,
				Timeout:          2500 * time.Millisecond,
				Username:         "bridge",
				Password:         "secret",
				RedeliveryWindow: 512,
			})
		})
	})
}
