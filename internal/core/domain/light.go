package domain

import (
	"lumen2mqtt/pkg/colorx"
)

// ColorMode mirrors the color mode taxonomy Home Assistant uses for light
// entities. A light advertises the modes it supports and reports the mode
// its current state is expressed in.
type ColorMode string

const (
	ColorModeOnOff      ColorMode = "onoff"
	ColorModeBrightness ColorMode = "brightness"
	ColorModeColorTemp  ColorMode = "color_temp"
	ColorModeHS         ColorMode = "hs"
	ColorModeRGB        ColorMode = "rgb"
	ColorModeXY         ColorMode = "xy"
)

// Default white range advertised when a driver does not report its own.
const (
	DefaultMinMired = 153 // ~6500 K
	DefaultMaxMired = 500 // 2000 K
)

// LightInfo is the static description of a light: identity plus
// capabilities. It feeds MQTT discovery and the HTTP API.
type LightInfo struct {
	Id           string
	Name         string
	Manufacturer string
	Model        string
	Version      string
	UniqueId     string

	ColorModes []ColorMode
	MinMired   int
	MaxMired   int
}

// SupportsColorMode reports whether the light advertises the given mode.
func (i LightInfo) SupportsColorMode(mode ColorMode) bool {
	for _, m := range i.ColorModes {
		if m == mode {
			return true
		}
	}
	return false
}

// SupportsBrightness reports whether any advertised mode carries brightness.
func (i LightInfo) SupportsBrightness() bool {
	for _, m := range i.ColorModes {
		if m != ColorModeOnOff {
			return true
		}
	}
	return false
}

// SupportsColor reports whether any advertised mode carries chromaticity.
func (i LightInfo) SupportsColor() bool {
	for _, m := range i.ColorModes {
		switch m {
		case ColorModeHS, ColorModeRGB, ColorModeXY:
			return true
		}
	}
	return false
}

// LightState is the per-light scalar state mirrored from the device.
type LightState struct {
	On         bool
	Brightness uint8
	ColorMode  ColorMode

	HS             colorx.HS
	RGB            [3]uint8
	XY             colorx.XY
	ColorTempMired int

	Available bool
}

// LightCommand carries the attributes of a turn_on call. Nil fields are
// left untouched on the device. A command with several color fields set is
// invalid; drivers use the one matching their native mode first.
type LightCommand struct {
	Brightness    *uint8
	BrightnessPct *int

	HS              *colorx.HS
	RGB             *[3]uint8
	XY              *colorx.XY
	ColorTempMired  *int
	ColorTempKelvin *int

	TransitionMs *uint32
}

// HasColor reports whether any chromaticity field is set.
func (c LightCommand) HasColor() bool {
	return c.HS != nil || c.RGB != nil || c.XY != nil
}

// Restrict drops command attributes the light cannot express, so a color
// command to a brightness-only light degrades to a brightness command and a
// brightness command to an onoff light degrades to plain power.
func (c LightCommand) Restrict(info LightInfo) LightCommand {
	if !info.SupportsColor() {
		c.HS = nil
		c.RGB = nil
		c.XY = nil
	}
	if !info.SupportsColorMode(ColorModeColorTemp) {
		c.ColorTempMired = nil
		c.ColorTempKelvin = nil
	}
	if !info.SupportsBrightness() {
		c.Brightness = nil
		c.BrightnessPct = nil
	}
	return c
}

// HasColorTemp reports whether a white temperature field is set.
func (c LightCommand) HasColorTemp() bool {
	return c.ColorTempMired != nil || c.ColorTempKelvin != nil
}

// TargetBrightness resolves the brightness fields to a 0-255 value.
func (c LightCommand) TargetBrightness() (uint8, bool) {
	if c.Brightness != nil {
		return *c.Brightness, true
	}
	if c.BrightnessPct != nil {
		return colorx.PercentToBrightness(*c.BrightnessPct), true
	}
	return 0, false
}

// TargetHS resolves any color field to hue/saturation.
func (c LightCommand) TargetHS() (colorx.HS, bool) {
	switch {
	case c.HS != nil:
		return *c.HS, true
	case c.RGB != nil:
		return colorx.RGBToHS(c.RGB[0], c.RGB[1], c.RGB[2]), true
	case c.XY != nil:
		return colorx.XYToHS(*c.XY, nil), true
	}
	return colorx.HS{}, false
}

// TargetRGB resolves any color field to sRGB.
func (c LightCommand) TargetRGB() ([3]uint8, bool) {
	switch {
	case c.RGB != nil:
		return *c.RGB, true
	case c.HS != nil:
		r, g, b := colorx.HSToRGB(*c.HS)
		return [3]uint8{r, g, b}, true
	case c.XY != nil:
		r, g, b := colorx.XYToRGB(*c.XY, nil)
		return [3]uint8{r, g, b}, true
	}
	return [3]uint8{}, false
}

// TargetXY resolves any color field to a CIE xy point, clamped to the given
// gamut when one is provided.
func (c LightCommand) TargetXY(gamut *colorx.Gamut) (colorx.XY, bool) {
	switch {
	case c.XY != nil:
		if gamut != nil && !gamut.Contains(*c.XY) {
			return gamut.Closest(*c.XY), true
		}
		return *c.XY, true
	case c.RGB != nil:
		return colorx.RGBToXY(c.RGB[0], c.RGB[1], c.RGB[2], gamut), true
	case c.HS != nil:
		return colorx.HSToXY(*c.HS, gamut), true
	}
	return colorx.XY{}, false
}

// TargetMired resolves the white temperature fields to mireds, clamped to
// the light's advertised range.
func (c LightCommand) TargetMired(info LightInfo) (int, bool) {
	var mired int
	switch {
	case c.ColorTempMired != nil:
		mired = *c.ColorTempMired
	case c.ColorTempKelvin != nil:
		mired = colorx.KelvinToMired(float64(*c.ColorTempKelvin))
	default:
		return 0, false
	}
	min, max := info.MinMired, info.MaxMired
	if min == 0 {
		min = DefaultMinMired
	}
	if max == 0 {
		max = DefaultMaxMired
	}
	if mired < min {
		mired = min
	}
	if mired > max {
		mired = max
	}
	return mired, true
}

// Light actor protocol. LightId is only read by the master actor when a
// request is routed by id; light actors ignore it.

type LightTurnOnRequest struct {
	ActorRequestMixIn
	LightId string
	Command LightCommand
}

type LightTurnOffRequest struct {
	ActorRequestMixIn
	LightId      string
	TransitionMs *uint32
}

type LightCommandResponse struct {
	ActorResponseMixIn
	State *LightState
}

type GetLightStateRequest struct {
	ActorRequestMixIn
	LightId string
}

type GetLightStateResponse struct {
	ActorResponseMixIn
	Info  *LightInfo
	State *LightState
}

type GetLightInfoRequest struct {
	ActorRequestMixIn
}

type GetLightInfoResponse struct {
	ActorResponseMixIn
	Info *LightInfo
}

// Master actor protocol.

type LightSnapshot struct {
	Info  LightInfo
	State LightState
}

type ListLightsRequest struct {
	ActorRequestMixIn
}

type ListLightsResponse struct {
	ActorResponseMixIn
	Lights []LightSnapshot
}

// MQTT actor protocol.

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishLightUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  any
}

type PublishLightUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Lights  []GenericLight
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}
