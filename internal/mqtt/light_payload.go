package mqtt

import (
	"encoding/json"
	"fmt"
	"math"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/pkg/colorx"
)

// Light state and command payloads follow the Home Assistant MQTT light
// json schema. State is published as a full document; commands may carry
// any subset of attributes.

type ColorPayload struct {
	H *float64 `json:"h,omitempty"`
	S *float64 `json:"s,omitempty"`
	R *uint8   `json:"r,omitempty"`
	G *uint8   `json:"g,omitempty"`
	B *uint8   `json:"b,omitempty"`
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

type LightStatePayload struct {
	State      string        `json:"state"`
	Brightness *uint8        `json:"brightness,omitempty"`
	ColorMode  string        `json:"color_mode,omitempty"`
	ColorTemp  *int          `json:"color_temp,omitempty"`
	Color      *ColorPayload `json:"color,omitempty"`
}

type lightCommandPayload struct {
	State      *string       `json:"state"`
	Brightness *int          `json:"brightness"`
	Color      *ColorPayload `json:"color"`
	ColorTemp  *int          `json:"color_temp"`
	Transition *float64      `json:"transition"`
}

// LightCommandEnvelope is a decoded json schema command. On is nil when the
// payload carries only attribute changes.
type LightCommandEnvelope struct {
	On      *bool
	Command domain.LightCommand
}

// LightStateToPayload renders a light state as a json schema state document.
// Brightness is always included, lights that do not support it are declared
// without the brightness flag in discovery and HA ignores the attribute.
func LightStateToPayload(state domain.LightState) LightStatePayload {
	payload := LightStatePayload{
		State: MQTT_PAYLOAD_OFF,
	}
	if state.On {
		payload.State = MQTT_PAYLOAD_ON
	}
	b := state.Brightness
	payload.Brightness = &b
	if state.ColorMode != "" {
		payload.ColorMode = string(state.ColorMode)
	}
	switch state.ColorMode {
	case domain.ColorModeColorTemp:
		if state.ColorTempMired > 0 {
			ct := state.ColorTempMired
			payload.ColorTemp = &ct
		}
	case domain.ColorModeHS, domain.ColorModeRGB, domain.ColorModeXY:
		payload.Color = fullColor(state)
	}
	return payload
}

// fullColor renders the state's native color in every representation the
// json schema knows, deriving the other two from the native one.
func fullColor(state domain.LightState) *ColorPayload {
	var (
		r, g, b uint8
		hs      colorx.HS
		xy      colorx.XY
	)
	switch state.ColorMode {
	case domain.ColorModeHS:
		hs = state.HS
		r, g, b = colorx.HSToRGB(hs)
		xy = colorx.RGBToXY(r, g, b, nil)
	case domain.ColorModeRGB:
		r, g, b = state.RGB[0], state.RGB[1], state.RGB[2]
		hs = colorx.RGBToHS(r, g, b)
		xy = colorx.RGBToXY(r, g, b, nil)
	case domain.ColorModeXY:
		xy = state.XY
		r, g, b = colorx.XYToRGB(xy, nil)
		hs = colorx.RGBToHS(r, g, b)
	default:
		return nil
	}
	return &ColorPayload{H: &hs.H, S: &hs.S, R: &r, G: &g, B: &b, X: &xy.X, Y: &xy.Y}
}

// EncodeLightState marshals a light state for the state topic.
func EncodeLightState(state domain.LightState) (string, error) {
	payload := LightStateToPayload(state)
	bytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// DecodeLightCommand parses a json schema command payload into a domain
// command. Transition seconds are converted to milliseconds.
func DecodeLightCommand(payload []byte) (*LightCommandEnvelope, error) {
	var raw lightCommandPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid light command payload: %w", err)
	}
	env := &LightCommandEnvelope{}
	if raw.State != nil {
		switch *raw.State {
		case MQTT_PAYLOAD_ON:
			on := true
			env.On = &on
		case MQTT_PAYLOAD_OFF:
			on := false
			env.On = &on
		default:
			return nil, fmt.Errorf("invalid light command state %q", *raw.State)
		}
	}
	if raw.Brightness != nil {
		b := *raw.Brightness
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("brightness %d out of range", b)
		}
		v := uint8(b)
		env.Command.Brightness = &v
	}
	if raw.ColorTemp != nil {
		if *raw.ColorTemp <= 0 {
			return nil, fmt.Errorf("color_temp %d out of range", *raw.ColorTemp)
		}
		ct := *raw.ColorTemp
		env.Command.ColorTempMired = &ct
	}
	if raw.Transition != nil && *raw.Transition >= 0 {
		ms := uint32(math.Round(*raw.Transition * 1000))
		env.Command.TransitionMs = &ms
	}
	if raw.Color != nil {
		switch {
		case raw.Color.H != nil && raw.Color.S != nil:
			hs := colorx.HS{H: *raw.Color.H, S: *raw.Color.S}
			env.Command.HS = &hs
		case raw.Color.R != nil && raw.Color.G != nil && raw.Color.B != nil:
			rgb := [3]uint8{*raw.Color.R, *raw.Color.G, *raw.Color.B}
			env.Command.RGB = &rgb
		case raw.Color.X != nil && raw.Color.Y != nil:
			xy := colorx.XY{X: *raw.Color.X, Y: *raw.Color.Y}
			env.Command.XY = &xy
		default:
			return nil, fmt.Errorf("incomplete color payload")
		}
	}
	return env, nil
}
