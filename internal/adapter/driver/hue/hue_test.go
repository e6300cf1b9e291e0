package hue

import (
	"context"
	"sync"
	"testing"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestColorModesForType(t *testing.T) {

	assert := assert.New(t)

	assert.Contains(colorModesForType("Extended color light"), domain.ColorModeColorTemp)
	assert.Contains(colorModesForType("Extended color light"), domain.ColorModeXY)
	assert.Equal([]domain.ColorMode{domain.ColorModeColorTemp}, colorModesForType("Color temperature light"))
	assert.Equal([]domain.ColorMode{domain.ColorModeBrightness}, colorModesForType("Dimmable light"))
	assert.Equal([]domain.ColorMode{domain.ColorModeOnOff}, colorModesForType("On/Off plug-in unit"))
}

func TestBrightnessScale(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint8(255), hueBriToHA(254))
	assert.Equal(uint8(0), hueBriToHA(0))
	assert.Equal(uint8(254), haToHueBri(255))
	// never send 0 brightness, hue rejects it
	assert.Equal(uint8(1), haToHueBri(0))
}

func TestStateFromHue(t *testing.T) {

	assert := assert.New(t)

	state := stateFromHue(&huego.State{
		On:        true,
		Bri:       254,
		ColorMode: "ct",
		Ct:        366,
		Reachable: true,
	})
	assert.True(state.On)
	assert.Equal(uint8(255), state.Brightness)
	assert.Equal(domain.ColorModeColorTemp, state.ColorMode)
	assert.Equal(366, state.ColorTempMired)
	assert.True(state.Available)

	state = stateFromHue(&huego.State{
		On:        true,
		ColorMode: "xy",
		Xy:        []float32{0.675, 0.322},
	})
	assert.Equal(domain.ColorModeXY, state.ColorMode)
	assert.InDelta(0.675, state.XY.X, 0.001)
}

func TestEventReferencesLight(t *testing.T) {

	assert := assert.New(t)

	payload := []byte(`[{"type":"update","data":[{"id_v1":"/lights/3"}]}]`)
	assert.True(eventReferencesLight(payload, "/lights/3"))
	assert.False(eventReferencesLight(payload, "/lights/4"))
	assert.False(eventReferencesLight([]byte(`not json`), "/lights/3"))
}

func TestTransitionTime(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint16(15), transitionTime(1500))
	assert.Equal(uint16(0), transitionTime(50))
}

// The event stream goroutine refreshes the cached light while the owning
// actor reads it, so the cache has to hold up under concurrent access.
func TestLightCacheConcurrentAccess(t *testing.T) {
	d := NewDriver(config.LightConfig{Id: "hue1", HueLightId: 3}, zap.NewNop())
	d.storeLight(&huego.Light{Name: "desk", Type: "Dimmable light"})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d.storeLight(&huego.Light{Name: "desk", Type: "Dimmable light", SwVersion: "1.2"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				info, err := d.Info(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "desk", info.Name)
			}
		}()
	}
	wg.Wait()
}
