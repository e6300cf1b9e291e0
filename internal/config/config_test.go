package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Lights: []LightConfig{
			{Id: "desk", Driver: DriverYeelight, Host: "192.168.1.40"},
		},
		Monitor: MonitorConfig{PollIntervalMillis: 5000},
		Adaptive: AdaptiveConfig{
			Enable:         true,
			Latitude:       52.52,
			Longitude:      13.4,
			IntervalMillis: 60000,
			DayPattern: []AdaptiveStepConfig{
				{Time: "07:00", Kelvin: 4500, BrightnessPct: 80},
			},
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeCoordinates(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.Adaptive.Latitude = 95
	assert.ErrorContains(cfg.Validate(), "latitude")

	cfg = validConfig()
	cfg.Adaptive.Longitude = -181
	assert.ErrorContains(cfg.Validate(), "longitude")

	// coordinates are not checked when adaptive lighting is off
	cfg = validConfig()
	cfg.Adaptive.Latitude = 95
	cfg.Adaptive.Enable = false
	assert.NoError(cfg.Validate())
}

func TestValidateLifxHostOrSerial(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.Lights = []LightConfig{{Id: "strip", Driver: DriverLIFX, Host: "192.168.1.41"}}
	assert.NoError(cfg.Validate())

	cfg.Lights = []LightConfig{{Id: "strip", Driver: DriverLIFX, LifxSerial: "d073d50123ab"}}
	assert.NoError(cfg.Validate())

	cfg.Lights = []LightConfig{{Id: "strip", Driver: DriverLIFX}}
	assert.ErrorContains(cfg.Validate(), "lifx_serial")
}
