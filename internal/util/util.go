package util

import (
	"lumen2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "lumen2mqtt",
		},
		Lights: []config.LightConfig{
			{
				Id:     "test_lamp",
				Name:   "Test lamp",
				Driver: config.DriverYeelight,
				Host:   "-.-.-.-",
				Port:   55443,
			},
		},
		Monitor: config.MonitorConfig{
			PollIntervalMillis: 5000,
		},
		Recorder: config.RecorderConfig{
			Enable:        true,
			Path:          ":memory:",
			RetentionDays: 30,
			PruneCron:     "0 0 4 * * *",
		},
		Adaptive: config.AdaptiveConfig{
			Enable:         false,
			Latitude:       52.52,
			Longitude:      13.4,
			IntervalMillis: 60000,
		},
		Port: 8080,
	}
}
