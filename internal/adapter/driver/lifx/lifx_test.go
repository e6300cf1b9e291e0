package lifx

import (
	"testing"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/pkg/lifxlan"

	"github.com/stretchr/testify/assert"
)

func TestStateFromHSBKWhite(t *testing.T) {

	assert := assert.New(t)

	state := stateFromHSBK(&lifxlan.State{
		On: true,
		Color: lifxlan.HSBK{
			Brightness: 65535,
			Kelvin:     4000,
		},
	})
	assert.True(state.On)
	assert.Equal(uint8(255), state.Brightness)
	assert.Equal(domain.ColorModeColorTemp, state.ColorMode)
	assert.Equal(250, state.ColorTempMired)
}

func TestStateFromHSBKColor(t *testing.T) {

	assert := assert.New(t)

	state := stateFromHSBK(&lifxlan.State{
		On: true,
		Color: lifxlan.HSBK{
			Hue:        43690, // 240 degrees
			Saturation: 65535,
			Brightness: 32768,
		},
	})
	assert.Equal(domain.ColorModeHS, state.ColorMode)
	assert.InDelta(240, state.HS.H, 0.1)
	assert.InDelta(100, state.HS.S, 0.1)
	assert.Equal(uint8(128), state.Brightness)
}

func TestScale16RoundTrip(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint16(65535), scaleTo16(255, 255))
	assert.Equal(uint16(0), scaleTo16(0, 255))
	assert.Equal(255, scaleFrom16(65535, 255))
	assert.Equal(128, scaleFrom16(scaleTo16(128, 255), 255))
}

func TestMatchDevice(t *testing.T) {

	assert := assert.New(t)

	devices := []lifxlan.Device{
		{Target: [8]byte{0xd0, 0x73, 0xd5, 0x00, 0x00, 0x01}},
		{Target: [8]byte{0xd0, 0x73, 0xd5, 0x00, 0x00, 0x02}},
	}

	dev, found := matchDevice(devices, "D073D5000002")
	assert.True(found)
	assert.Equal(devices[1].Target, dev.Target)

	// no serial configured: first answer wins
	dev, found = matchDevice(devices, "")
	assert.True(found)
	assert.Equal(devices[0].Target, dev.Target)

	_, found = matchDevice(devices, "d073d5ffffff")
	assert.False(found)

	_, found = matchDevice(nil, "")
	assert.False(found)
}
