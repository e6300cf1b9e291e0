package lifx

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/pkg/colorx"
	"lumen2mqtt/pkg/lifxlan"

	"go.uber.org/zap"
)

const (
	defaultMinKelvin = 1500
	defaultMaxKelvin = 9000

	discoverTimeout = 3 * time.Second
)

// Driver drives a LIFX bulb over the LAN protocol (UDP).
type Driver struct {
	cfg    config.LightConfig
	logger *zap.Logger
	client *lifxlan.Client

	label string
}

var _ port.LightDriver = (*Driver)(nil)

func NewDriver(cfg config.LightConfig, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:    cfg,
		logger: logger.With(zap.String("driver", config.DriverLIFX)),
	}
}

func (d *Driver) Open(_ context.Context) error {
	if d.client == nil {
		client, err := d.connect()
		if err != nil {
			return err
		}
		d.client = client
	}
	if err := d.client.Open(); err != nil {
		return err
	}
	state, err := d.client.GetState()
	if err != nil {
		return fmt.Errorf("lifx: get state: %w", err)
	}
	d.label = state.Label
	return nil
}

func (d *Driver) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// connect resolves the bulb: directly when a host is configured, otherwise
// by LAN discovery against the configured serial.
func (d *Driver) connect() (*lifxlan.Client, error) {
	if d.cfg.Host != "" {
		return lifxlan.NewClient(d.cfg.Host, d.cfg.Port, d.logger), nil
	}
	devices, err := lifxlan.Discover(discoverTimeout, d.logger)
	if err != nil {
		return nil, fmt.Errorf("lifx: discover: %w", err)
	}
	dev, found := matchDevice(devices, d.cfg.LifxSerial)
	if !found {
		return nil, fmt.Errorf("lifx: no bulb with serial %q answered discovery", d.cfg.LifxSerial)
	}
	d.logger.Info("lifx bulb discovered",
		zap.String("serial", dev.Serial()), zap.String("addr", dev.Addr.String()))
	return lifxlan.NewClientForDevice(dev, d.logger), nil
}

// matchDevice picks the discovered bulb with the given serial. An empty
// serial matches the first answer, which is only sane on a single-bulb LAN.
func matchDevice(devices []lifxlan.Device, serial string) (lifxlan.Device, bool) {
	for _, dev := range devices {
		if serial == "" || strings.EqualFold(dev.Serial(), serial) {
			return dev, true
		}
	}
	return lifxlan.Device{}, false
}

func (d *Driver) Info(_ context.Context) (*domain.LightInfo, error) {
	name := d.cfg.Name
	if name == "" {
		name = d.label
	}
	if name == "" {
		name = d.cfg.Id
	}
	minKelvin, maxKelvin := d.kelvinRange()
	return &domain.LightInfo{
		Id:           d.cfg.Id,
		Name:         name,
		Manufacturer: "LIFX",
		Model:        "LAN bulb",
		UniqueId:     fmt.Sprintf("lifx_%s", d.uniqueSuffix()),
		ColorModes: []domain.ColorMode{
			domain.ColorModeColorTemp,
			domain.ColorModeHS,
		},
		MinMired: colorx.KelvinToMired(float64(maxKelvin)),
		MaxMired: colorx.KelvinToMired(float64(minKelvin)),
	}, nil
}

func (d *Driver) State(_ context.Context) (*domain.LightState, error) {
	state, err := d.client.GetState()
	if err != nil {
		return nil, fmt.Errorf("lifx: get state: %w", err)
	}
	d.label = state.Label
	return stateFromHSBK(state), nil
}

func (d *Driver) TurnOn(ctx context.Context, cmd domain.LightCommand) error {
	transition := transitionOf(cmd.TransitionMs)

	current, err := d.client.GetState()
	if err != nil {
		return fmt.Errorf("lifx: get state: %w", err)
	}
	color := current.Color
	if b, ok := cmd.TargetBrightness(); ok {
		color.Brightness = scaleTo16(int(b), 255)
	}
	switch {
	case cmd.HasColor():
		hs, _ := cmd.TargetHS()
		color.Hue = uint16(math.Round(hs.H / 360 * 65535))
		color.Saturation = scaleTo16(int(math.Round(hs.S)), 100)
	case cmd.HasColorTemp():
		info, infoErr := d.Info(ctx)
		if infoErr != nil {
			return infoErr
		}
		if mired, ok := cmd.TargetMired(*info); ok {
			color.Saturation = 0
			color.Kelvin = uint16(colorx.MiredToKelvin(mired))
		}
	}
	if color != current.Color {
		if err := d.client.SetColor(color, transition); err != nil {
			return fmt.Errorf("lifx: set color: %w", err)
		}
	}
	if !current.On {
		if err := d.client.SetPower(true, transition); err != nil {
			return fmt.Errorf("lifx: set power: %w", err)
		}
	}
	return nil
}

func (d *Driver) TurnOff(_ context.Context, transitionMs uint32) error {
	if err := d.client.SetPower(false, time.Duration(transitionMs)*time.Millisecond); err != nil {
		return fmt.Errorf("lifx: set power: %w", err)
	}
	return nil
}

func (d *Driver) uniqueSuffix() string {
	if d.cfg.LifxSerial != "" {
		return strings.ToLower(d.cfg.LifxSerial)
	}
	if d.cfg.Host != "" {
		return d.cfg.Host
	}
	return d.cfg.Id
}

func (d *Driver) kelvinRange() (uint, uint) {
	minKelvin, maxKelvin := d.cfg.MinKelvin, d.cfg.MaxKelvin
	if minKelvin == 0 {
		minKelvin = defaultMinKelvin
	}
	if maxKelvin == 0 {
		maxKelvin = defaultMaxKelvin
	}
	return minKelvin, maxKelvin
}

func stateFromHSBK(s *lifxlan.State) *domain.LightState {
	state := &domain.LightState{
		On:         s.On,
		Brightness: uint8(scaleFrom16(s.Color.Brightness, 255)),
		Available:  true,
	}
	if s.Color.Saturation == 0 {
		state.ColorMode = domain.ColorModeColorTemp
		if s.Color.Kelvin > 0 {
			state.ColorTempMired = colorx.KelvinToMired(float64(s.Color.Kelvin))
		}
	} else {
		state.ColorMode = domain.ColorModeHS
		state.HS = colorx.HS{
			H: math.Round(float64(s.Color.Hue)/65535*360*10) / 10,
			S: math.Round(float64(s.Color.Saturation)/65535*100*10) / 10,
		}
	}
	return state
}

func scaleTo16(value, fromMax int) uint16 {
	if value <= 0 {
		return 0
	}
	if value >= fromMax {
		return 65535
	}
	return uint16(math.Round(float64(value) / float64(fromMax) * 65535))
}

func scaleFrom16(value uint16, toMax int) int {
	return int(math.Round(float64(value) / 65535 * float64(toMax)))
}

func transitionOf(transitionMs *uint32) time.Duration {
	if transitionMs == nil {
		return 0
	}
	return time.Duration(*transitionMs) * time.Millisecond
}
