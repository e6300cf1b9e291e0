package mqtt

import (
	"testing"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/pkg/colorx"

	"github.com/stretchr/testify/assert"
)

func TestLightCommandTopicParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/light/desk_lamp/set"
	r := lightCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "desk_lamp", "light id extract")
}

func TestLightCommandTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/light/desk_lamp/state"
	r := lightCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestDecodeLightCommandOnWithBrightness(t *testing.T) {

	assert := assert.New(t)

	env, err := DecodeLightCommand([]byte(`{"state":"ON","brightness":128,"transition":1.5}`))
	assert.NoError(err)
	assert.NotNil(env.On)
	assert.True(*env.On)
	assert.NotNil(env.Command.Brightness)
	assert.Equal(uint8(128), *env.Command.Brightness)
	assert.NotNil(env.Command.TransitionMs)
	assert.Equal(uint32(1500), *env.Command.TransitionMs)
}

func TestDecodeLightCommandColorVariants(t *testing.T) {

	assert := assert.New(t)

	env, err := DecodeLightCommand([]byte(`{"state":"ON","color":{"h":240,"s":100}}`))
	assert.NoError(err)
	assert.NotNil(env.Command.HS)
	assert.Equal(colorx.HS{H: 240, S: 100}, *env.Command.HS)

	env, err = DecodeLightCommand([]byte(`{"color":{"r":255,"g":10,"b":0}}`))
	assert.NoError(err)
	assert.Nil(env.On)
	assert.NotNil(env.Command.RGB)
	assert.Equal([3]uint8{255, 10, 0}, *env.Command.RGB)

	env, err = DecodeLightCommand([]byte(`{"color":{"x":0.323,"y":0.329}}`))
	assert.NoError(err)
	assert.NotNil(env.Command.XY)
}

func TestDecodeLightCommandRejectsBadPayloads(t *testing.T) {

	assert := assert.New(t)

	_, err := DecodeLightCommand([]byte(`{"state":"BLINK"}`))
	assert.Error(err)

	_, err = DecodeLightCommand([]byte(`{"brightness":300}`))
	assert.Error(err)

	_, err = DecodeLightCommand([]byte(`{"color":{"h":240}}`))
	assert.Error(err)
}

func TestEncodeLightState(t *testing.T) {

	assert := assert.New(t)

	state := domain.LightState{
		On:             true,
		Brightness:     200,
		ColorMode:      domain.ColorModeColorTemp,
		ColorTempMired: 250,
		Available:      true,
	}

	payload, err := EncodeLightState(state)
	assert.NoError(err)
	assert.JSONEq(`{"state":"ON","brightness":200,"color_mode":"color_temp","color_temp":250}`, payload)

	state = domain.LightState{
		On:        false,
		ColorMode: domain.ColorModeHS,
		HS:        colorx.HS{H: 120, S: 50},
	}
	payload, err = EncodeLightState(state)
	assert.NoError(err)
	assert.Contains(payload, `"state":"OFF"`)
	assert.Contains(payload, `"color_mode":"hs"`)
	assert.Contains(payload, `"h":120`)
}

// The state document carries the color in every representation, whatever
// the native mode is.
func TestLightStatePayloadCarriesFullColor(t *testing.T) {

	assert := assert.New(t)

	native := domain.LightState{
		On:        true,
		ColorMode: domain.ColorModeHS,
		HS:        colorx.HS{H: 120, S: 50},
	}
	color := LightStateToPayload(native).Color
	assert.NotNil(color)
	assert.Equal(120.0, *color.H)
	assert.Equal(50.0, *color.S)
	assert.NotNil(color.R)
	assert.NotNil(color.G)
	assert.NotNil(color.B)
	assert.NotNil(color.X)
	assert.NotNil(color.Y)
	// green-ish: green channel dominates and xy lands in the green region
	assert.Greater(*color.G, *color.R)
	assert.Greater(*color.Y, *color.X)

	native = domain.LightState{
		On:        true,
		ColorMode: domain.ColorModeRGB,
		RGB:       [3]uint8{255, 0, 0},
	}
	color = LightStateToPayload(native).Color
	assert.NotNil(color)
	assert.Equal(uint8(255), *color.R)
	assert.InDelta(0, *color.H, 0.5)
	assert.InDelta(100, *color.S, 0.5)
	assert.Greater(*color.X, *color.Y)

	native = domain.LightState{
		On:        true,
		ColorMode: domain.ColorModeXY,
		XY:        colorx.XY{X: 0.675, Y: 0.322},
	}
	color = LightStateToPayload(native).Color
	assert.NotNil(color)
	assert.Equal(0.675, *color.X)
	assert.NotNil(color.R)
	assert.NotNil(color.H)
}
