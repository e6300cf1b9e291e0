package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DriverHue      = "hue"
	DriverYeelight = "yeelight"
	DriverLIFX     = "lifx"
	DriverModbus   = "modbus"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig `mapstructure:"mqtt"`

	Lights   []LightConfig  `mapstructure:"lights"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Adaptive AdaptiveConfig `mapstructure:"adaptive"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

// LightConfig declares one light and the driver that talks to it. The
// driver-specific fields only apply to their driver.
type LightConfig struct {
	Id     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	Host   string `mapstructure:"host"`
	Port   uint   `mapstructure:"port"`

	// hue
	HueUser    string `mapstructure:"hue_user"`
	HueLightId int    `mapstructure:"hue_light_id"`

	// lifx serial (hex), used to find the bulb by discovery when no host
	// is configured
	LifxSerial string `mapstructure:"lifx_serial"`

	// modbus dimmer channel
	ModbusUnitId        uint `mapstructure:"modbus_unit_id"`
	ModbusPowerCoil     uint `mapstructure:"modbus_power_coil"`
	ModbusLevelRegister uint `mapstructure:"modbus_level_register"`
	ModbusLevelMax      uint `mapstructure:"modbus_level_max"`

	// white temperature range in Kelvin, 0 means driver default
	MinKelvin uint `mapstructure:"min_kelvin"`
	MaxKelvin uint `mapstructure:"max_kelvin"`

	// include this light in the adaptive lighting set
	Adaptive bool `mapstructure:"adaptive"`
}

type AdaptiveConfig struct {
	Enable         bool    `mapstructure:"enable"`
	Latitude       float64 `mapstructure:"latitude"`
	Longitude      float64 `mapstructure:"longitude"`
	IntervalMillis uint32  `mapstructure:"interval_millis"`

	SunriseMin string `mapstructure:"sunrise_min"`
	SunriseMax string `mapstructure:"sunrise_max"`
	SunsetMin  string `mapstructure:"sunset_min"`
	SunsetMax  string `mapstructure:"sunset_max"`

	Default    AdaptiveStepConfig   `mapstructure:"default"`
	DayPattern []AdaptiveStepConfig `mapstructure:"day_pattern"`
}

// AdaptiveStepConfig is one anchor of the day pattern. Time accepts "HH:MM",
// "sunrise", "sunset", or "sunrise+30m" style offsets.
type AdaptiveStepConfig struct {
	Time          string `mapstructure:"time"`
	Kelvin        int    `mapstructure:"kelvin"`
	BrightnessPct int    `mapstructure:"brightness_pct"`
}

type RecorderConfig struct {
	Enable        bool   `mapstructure:"enable"`
	Path          string `mapstructure:"path"`
	RetentionDays uint   `mapstructure:"retention_days"`
	PruneCron     string `mapstructure:"prune_cron"`
}

var idRegexp = regexp.MustCompile("^[a-z0-9_]+$")

// CheckMQTTTopic lowercases and validates a topic fragment.
func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	if !idRegexp.MatchString(lowerBaseTopic) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckLightId validates a configured light id. Ids end up in MQTT topics
// and sqlite rows, so the same charset as topics applies.
func CheckLightId(id string) (string, error) {
	lower := strings.ToLower(id)
	if !idRegexp.MatchString(lower) {
		return "", fmt.Errorf("invalid light id %q. can only contain letters, numbers and underscores", id)
	}
	return lower, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (cfg *Config) Validate() error {
	seen := map[string]bool{}
	for i := range cfg.Lights {
		lc := &cfg.Lights[i]
		id, err := CheckLightId(lc.Id)
		if err != nil {
			return err
		}
		lc.Id = id
		if seen[id] {
			return fmt.Errorf("duplicate light id %q", id)
		}
		seen[id] = true

		switch lc.Driver {
		case DriverHue:
			if lc.HueUser == "" {
				return fmt.Errorf("light %q: hue_user is required for the hue driver", id)
			}
			if lc.HueLightId <= 0 {
				return fmt.Errorf("light %q: hue_light_id is required for the hue driver", id)
			}
		case DriverYeelight:
			if lc.Host == "" {
				return fmt.Errorf("light %q: host is required for the yeelight driver", id)
			}
		case DriverLIFX:
			if lc.Host == "" && lc.LifxSerial == "" {
				return fmt.Errorf("light %q: host or lifx_serial is required for the lifx driver", id)
			}
		case DriverModbus:
			if lc.Host == "" {
				return fmt.Errorf("light %q: host is required for the modbus driver", id)
			}
			if lc.ModbusLevelMax == 0 {
				lc.ModbusLevelMax = 255
			}
		default:
			return fmt.Errorf("light %q: unknown driver %q", id, lc.Driver)
		}

		if lc.MinKelvin != 0 && lc.MaxKelvin != 0 && lc.MinKelvin >= lc.MaxKelvin {
			return fmt.Errorf("light %q: min_kelvin must be < max_kelvin", id)
		}
	}

	if cfg.Adaptive.Enable {
		if len(cfg.Adaptive.DayPattern) == 0 {
			return errors.New("adaptive.day_pattern must have at least one step")
		}
		if cfg.Adaptive.IntervalMillis < 10000 {
			return errors.New("config param adaptive.interval_millis should be >= 10000")
		}
		if cfg.Adaptive.Latitude < -90 || cfg.Adaptive.Latitude > 90 {
			return fmt.Errorf("config param adaptive.latitude %v out of range [-90, 90]", cfg.Adaptive.Latitude)
		}
		if cfg.Adaptive.Longitude < -180 || cfg.Adaptive.Longitude > 180 {
			return fmt.Errorf("config param adaptive.longitude %v out of range [-180, 180]", cfg.Adaptive.Longitude)
		}
	}
	if cfg.Monitor.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.Recorder.Enable && cfg.Recorder.Path == "" {
		return errors.New("config param recorder.path is required when the recorder is enabled")
	}
	return nil
}
