package hue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/pkg/colorx"

	"github.com/amimof/huego"
	sse "github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

// Driver drives one light behind a Hue bridge. State changes are pushed by
// the bridge over its clip/v2 event stream, so the owning actor can poll
// rarely.
type Driver struct {
	cfg    config.LightConfig
	logger *zap.Logger

	bridge *huego.Bridge

	// light is the last fetched description. The Watch goroutine refreshes
	// it concurrently with the owning actor's calls, so access goes through
	// cachedLight/storeLight. The pointed-to struct is never mutated.
	mu    sync.Mutex
	light *huego.Light
}

var _ port.PushDriver = (*Driver)(nil)

func NewDriver(cfg config.LightConfig, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:    cfg,
		logger: logger.With(zap.String("driver", config.DriverHue)),
	}
}

func (d *Driver) Open(ctx context.Context) error {
	d.bridge = huego.New(d.cfg.Host, d.cfg.HueUser)
	light, err := d.bridge.GetLightContext(ctx, d.cfg.HueLightId)
	if err != nil {
		return fmt.Errorf("hue: get light %d: %w", d.cfg.HueLightId, err)
	}
	d.storeLight(light)
	return nil
}

func (d *Driver) Close() error {
	d.bridge = nil
	d.storeLight(nil)
	return nil
}

func (d *Driver) cachedLight() *huego.Light {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.light
}

func (d *Driver) storeLight(light *huego.Light) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.light = light
}

func (d *Driver) Info(_ context.Context) (*domain.LightInfo, error) {
	light := d.cachedLight()
	if light == nil {
		return nil, fmt.Errorf("hue: driver not open")
	}
	name := d.cfg.Name
	if name == "" {
		name = light.Name
	}
	info := &domain.LightInfo{
		Id:           d.cfg.Id,
		Name:         name,
		Manufacturer: light.ManufacturerName,
		Model:        light.ModelID,
		Version:      light.SwVersion,
		UniqueId:     light.UniqueID,
		ColorModes:   colorModesForType(light.Type),
		MinMired:     domain.DefaultMinMired,
		MaxMired:     domain.DefaultMaxMired,
	}
	if d.cfg.MaxKelvin != 0 {
		info.MinMired = colorx.KelvinToMired(float64(d.cfg.MaxKelvin))
	}
	if d.cfg.MinKelvin != 0 {
		info.MaxMired = colorx.KelvinToMired(float64(d.cfg.MinKelvin))
	}
	return info, nil
}

func (d *Driver) State(ctx context.Context) (*domain.LightState, error) {
	light, err := d.bridge.GetLightContext(ctx, d.cfg.HueLightId)
	if err != nil {
		return nil, fmt.Errorf("hue: get light %d: %w", d.cfg.HueLightId, err)
	}
	d.storeLight(light)
	return stateFromHue(light.State), nil
}

func (d *Driver) TurnOn(ctx context.Context, cmd domain.LightCommand) error {
	state := huego.State{On: true}
	if b, ok := cmd.TargetBrightness(); ok {
		state.Bri = haToHueBri(b)
	}
	info, err := d.Info(ctx)
	if err != nil {
		return err
	}
	switch {
	case cmd.HasColor():
		if xy, ok := cmd.TargetXY(&colorx.GamutC); ok {
			state.Xy = []float32{float32(xy.X), float32(xy.Y)}
		}
	case cmd.HasColorTemp():
		if mired, ok := cmd.TargetMired(*info); ok {
			state.Ct = uint16(mired)
		}
	}
	if cmd.TransitionMs != nil {
		state.TransitionTime = transitionTime(*cmd.TransitionMs)
	}
	return d.setState(ctx, state)
}

func (d *Driver) TurnOff(ctx context.Context, transitionMs uint32) error {
	state := huego.State{On: false}
	if transitionMs > 0 {
		state.TransitionTime = transitionTime(transitionMs)
	}
	return d.setState(ctx, state)
}

func (d *Driver) setState(ctx context.Context, state huego.State) error {
	if _, err := d.bridge.SetLightStateContext(ctx, d.cfg.HueLightId, state); err != nil {
		return fmt.Errorf("hue: set light %d state: %w", d.cfg.HueLightId, err)
	}
	return nil
}

// Watch subscribes to the bridge's clip/v2 event stream and reads back the
// full light state whenever an event references this light.
func (d *Driver) Watch(ctx context.Context, onState func(domain.LightState)) error {
	client := sse.NewClient(fmt.Sprintf("https://%s/eventstream/clip/v2", d.cfg.Host))
	client.Connection.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	client.Headers["hue-application-key"] = d.cfg.HueUser
	client.OnConnect(func(_ *sse.Client) {
		d.logger.Info("connected to hue event stream")
	})
	client.OnDisconnect(func(_ *sse.Client) {
		d.logger.Info("disconnected from hue event stream")
	})

	events := make(chan *sse.Event, 16)
	if err := client.SubscribeChan("", events); err != nil {
		return fmt.Errorf("hue: subscribe to event stream: %w", err)
	}

	idV1 := fmt.Sprintf("/lights/%d", d.cfg.HueLightId)
	go func() {
		defer client.Unsubscribe(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if !eventReferencesLight(event.Data, idV1) {
					continue
				}
				state, err := d.State(ctx)
				if err != nil {
					d.logger.Warn("could not read state after hue event", zap.Error(err))
					continue
				}
				onState(*state)
			}
		}
	}()
	return nil
}

type hueEvent struct {
	Type string `json:"type"`
	Data []struct {
		IdV1 string `json:"id_v1"`
	} `json:"data"`
}

func eventReferencesLight(payload []byte, idV1 string) bool {
	var events []hueEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		return false
	}
	for _, ev := range events {
		if ev.Type != "update" {
			continue
		}
		for _, item := range ev.Data {
			if item.IdV1 == idV1 {
				return true
			}
		}
	}
	return false
}

func stateFromHue(s *huego.State) *domain.LightState {
	if s == nil {
		return &domain.LightState{}
	}
	state := &domain.LightState{
		On:         s.On,
		Brightness: hueBriToHA(s.Bri),
		Available:  s.Reachable,
	}
	switch s.ColorMode {
	case "hs":
		state.ColorMode = domain.ColorModeHS
		state.HS = colorx.HS{
			H: float64(s.Hue) / 65535 * 360,
			S: float64(s.Sat) / 254 * 100,
		}
	case "xy":
		state.ColorMode = domain.ColorModeXY
		if len(s.Xy) == 2 {
			state.XY = colorx.XY{X: float64(s.Xy[0]), Y: float64(s.Xy[1])}
		}
	case "ct":
		state.ColorMode = domain.ColorModeColorTemp
		state.ColorTempMired = int(s.Ct)
	default:
		state.ColorMode = domain.ColorModeBrightness
	}
	return state
}

func colorModesForType(lightType string) []domain.ColorMode {
	switch {
	case strings.EqualFold(lightType, "Extended color light"):
		return []domain.ColorMode{domain.ColorModeColorTemp, domain.ColorModeXY, domain.ColorModeHS}
	case strings.EqualFold(lightType, "Color light"):
		return []domain.ColorMode{domain.ColorModeXY, domain.ColorModeHS}
	case strings.EqualFold(lightType, "Color temperature light"):
		return []domain.ColorMode{domain.ColorModeColorTemp}
	case strings.EqualFold(lightType, "Dimmable light"):
		return []domain.ColorMode{domain.ColorModeBrightness}
	default:
		return []domain.ColorMode{domain.ColorModeOnOff}
	}
}

// Hue brightness is 1..254, HA's is 0..255.
func hueBriToHA(bri uint8) uint8 {
	return colorx.ScaleToBrightness(int(bri), 254)
}

func haToHueBri(brightness uint8) uint8 {
	bri := colorx.ScaleBrightness(brightness, 254)
	if bri < 1 {
		bri = 1
	}
	return uint8(bri)
}

// Hue transition time is in 100 ms steps.
func transitionTime(transitionMs uint32) uint16 {
	return uint16(transitionMs / 100)
}
