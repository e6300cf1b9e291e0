package yeelight

import (
	"testing"
	"time"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/pkg/colorx"

	"github.com/stretchr/testify/assert"
)

func TestStateFromPropsColorTemp(t *testing.T) {

	assert := assert.New(t)

	state := stateFromProps(map[string]string{
		"power":      "on",
		"bright":     "100",
		"color_mode": "2",
		"ct":         "4000",
	})
	assert.True(state.On)
	assert.Equal(uint8(255), state.Brightness)
	assert.Equal(domain.ColorModeColorTemp, state.ColorMode)
	assert.Equal(250, state.ColorTempMired)
}

func TestStateFromPropsRGB(t *testing.T) {

	assert := assert.New(t)

	// 0xFF8800
	state := stateFromProps(map[string]string{
		"power":      "off",
		"bright":     "50",
		"color_mode": "1",
		"rgb":        "16746496",
	})
	assert.False(state.On)
	assert.Equal(domain.ColorModeRGB, state.ColorMode)
	assert.Equal([3]uint8{255, 136, 0}, state.RGB)
}

func TestStateFromPropsHSV(t *testing.T) {

	assert := assert.New(t)

	state := stateFromProps(map[string]string{
		"power":      "on",
		"bright":     "1",
		"color_mode": "3",
		"hue":        "240",
		"sat":        "80",
	})
	assert.Equal(domain.ColorModeHS, state.ColorMode)
	assert.Equal(colorx.HS{H: 240, S: 80}, state.HS)
}

func TestTransitionOf(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(time.Duration(0), transitionOf(nil))
	ms := uint32(1500)
	assert.Equal(1500*time.Millisecond, transitionOf(&ms))
}
