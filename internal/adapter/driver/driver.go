package driver

import (
	"fmt"

	"lumen2mqtt/internal/adapter/driver/hue"
	"lumen2mqtt/internal/adapter/driver/lifx"
	"lumen2mqtt/internal/adapter/driver/modbusdim"
	"lumen2mqtt/internal/adapter/driver/yeelight"
	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// ForConfig builds the driver declared by a light's config entry.
func ForConfig(cfg config.LightConfig, logger *zap.Logger) (port.LightDriver, error) {
	switch cfg.Driver {
	case config.DriverHue:
		return hue.NewDriver(cfg, logger), nil
	case config.DriverYeelight:
		return yeelight.NewDriver(cfg, logger), nil
	case config.DriverLIFX:
		return lifx.NewDriver(cfg, logger), nil
	case config.DriverModbus:
		return modbusdim.NewDriver(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown light driver %q", cfg.Driver)
	}
}
