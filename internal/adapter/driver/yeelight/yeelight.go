package yeelight

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/pkg/colorx"
	"lumen2mqtt/pkg/yeelight"

	"go.uber.org/zap"
)

const (
	defaultMinKelvin = 1700
	defaultMaxKelvin = 6500

	commandTimeout = 5 * time.Second
)

var stateProps = []string{"power", "bright", "color_mode", "ct", "rgb", "hue", "sat"}

// Driver drives a Yeelight bulb over its LAN control protocol. The bulb
// must have LAN control enabled in the vendor app.
type Driver struct {
	cfg    config.LightConfig
	logger *zap.Logger
	client *yeelight.Client
}

var _ port.LightDriver = (*Driver)(nil)

func NewDriver(cfg config.LightConfig, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:    cfg,
		logger: logger.With(zap.String("driver", config.DriverYeelight)),
		client: yeelight.NewClient(cfg.Host, cfg.Port, commandTimeout, logger),
	}
}

func (d *Driver) Open(_ context.Context) error {
	return d.client.Open()
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) Info(_ context.Context) (*domain.LightInfo, error) {
	name := d.cfg.Name
	if name == "" {
		name = d.cfg.Id
	}
	minKelvin, maxKelvin := d.kelvinRange()
	return &domain.LightInfo{
		Id:           d.cfg.Id,
		Name:         name,
		Manufacturer: "Yeelight",
		Model:        "LAN bulb",
		UniqueId:     fmt.Sprintf("yeelight_%s", d.cfg.Host),
		ColorModes: []domain.ColorMode{
			domain.ColorModeColorTemp,
			domain.ColorModeHS,
			domain.ColorModeRGB,
		},
		MinMired: colorx.KelvinToMired(float64(maxKelvin)),
		MaxMired: colorx.KelvinToMired(float64(minKelvin)),
	}, nil
}

func (d *Driver) State(_ context.Context) (*domain.LightState, error) {
	props, err := d.client.GetProps(stateProps...)
	if err != nil {
		return nil, fmt.Errorf("yeelight: get props: %w", err)
	}
	return stateFromProps(props), nil
}

func (d *Driver) TurnOn(ctx context.Context, cmd domain.LightCommand) error {
	transition := transitionOf(cmd.TransitionMs)
	if err := d.client.SetPower(true, transition); err != nil {
		return fmt.Errorf("yeelight: set power: %w", err)
	}
	switch {
	case cmd.RGB != nil:
		if err := d.client.SetRGB(cmd.RGB[0], cmd.RGB[1], cmd.RGB[2], transition); err != nil {
			return fmt.Errorf("yeelight: set rgb: %w", err)
		}
	case cmd.HasColor():
		hs, _ := cmd.TargetHS()
		if err := d.client.SetHSV(int(hs.H), int(hs.S), transition); err != nil {
			return fmt.Errorf("yeelight: set hsv: %w", err)
		}
	case cmd.HasColorTemp():
		info, err := d.Info(ctx)
		if err != nil {
			return err
		}
		if mired, ok := cmd.TargetMired(*info); ok {
			kelvin := int(colorx.MiredToKelvin(mired))
			if err := d.client.SetColorTemp(kelvin, transition); err != nil {
				return fmt.Errorf("yeelight: set color temp: %w", err)
			}
		}
	}
	if b, ok := cmd.TargetBrightness(); ok {
		percent := colorx.BrightnessToPercent(b)
		if percent < 1 {
			percent = 1
		}
		if err := d.client.SetBrightness(percent, transition); err != nil {
			return fmt.Errorf("yeelight: set brightness: %w", err)
		}
	}
	return nil
}

func (d *Driver) TurnOff(_ context.Context, transitionMs uint32) error {
	if err := d.client.SetPower(false, time.Duration(transitionMs)*time.Millisecond); err != nil {
		return fmt.Errorf("yeelight: set power: %w", err)
	}
	return nil
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

func stateFromProps(props map[string]string) *domain.LightState {
	state := &domain.LightState{
		On:        props["power"] == "on",
		Available: true,
	}
	if bright, err := strconv.Atoi(props["bright"]); err == nil {
		state.Brightness = colorx.PercentToBrightness(bright)
	}
	// color_mode: 1 rgb, 2 color temperature, 3 hsv
	switch props["color_mode"] {
	case "1":
		state.ColorMode = domain.ColorModeRGB
		if rgb, err := strconv.Atoi(props["rgb"]); err == nil {
			state.RGB = [3]uint8{uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb)}
		}
	case "2":
		state.ColorMode = domain.ColorModeColorTemp
		if kelvin, err := strconv.Atoi(props["ct"]); err == nil && kelvin > 0 {
			state.ColorTempMired = colorx.KelvinToMired(float64(kelvin))
		}
	case "3":
		state.ColorMode = domain.ColorModeHS
		hue, errH := strconv.Atoi(props["hue"])
		sat, errS := strconv.Atoi(props["sat"])
		if errH == nil && errS == nil {
			state.HS = colorx.HS{H: float64(hue), S: float64(sat)}
		}
	default:
		state.ColorMode = domain.ColorModeBrightness
	}
	return state
}

func transitionOf(transitionMs *uint32) time.Duration {
	if transitionMs == nil {
		return 0
	}
	return time.Duration(*transitionMs) * time.Millisecond
}
