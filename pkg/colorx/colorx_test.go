package colorx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKelvinMiredRoundTrip(t *testing.T) {
	for _, mired := range []int{153, 200, 250, 300, 370, 454, 500} {
		kelvin := MiredToKelvin(mired)
		assert.InDelta(t, mired, KelvinToMired(kelvin), 1, "mired %d", mired)
	}
	assert.Equal(t, 500, KelvinToMired(2000))
	assert.Equal(t, 153, KelvinToMired(6535))
	assert.Equal(t, float64(2000), MiredToKelvin(500))
}

func TestRGBXYRoundTrip(t *testing.T) {
	cases := []struct{ r, g, b uint8 }{
		{255, 0, 0},
		{0, 255, 0},
		{0, 0, 255},
		{255, 255, 255},
		{128, 64, 200},
		{12, 200, 160},
	}
	for _, c := range cases {
		p, bri := RGBToXYBrightness(c.r, c.g, c.b, nil)
		r, g, b := XYBrightnessToRGB(p, bri, nil)
		r2, g2, b2 := XYBrightnessToRGB(RGBToXY(r, g, b, nil), bri, nil)
		// xy drops luminance information, so compare after one full cycle
		assert.InDelta(t, int(r), int(r2), 5)
		assert.InDelta(t, int(g), int(g2), 5)
		assert.InDelta(t, int(b), int(b2), 5)
	}
}

func TestRGBToXYKnownValues(t *testing.T) {
	p, bri := RGBToXYBrightness(255, 0, 0, nil)
	assert.InDelta(t, 0.679, p.X, 0.01)
	assert.InDelta(t, 0.321, p.Y, 0.01)
	assert.Greater(t, int(bri), 0)

	p, _ = RGBToXYBrightness(255, 255, 255, nil)
	// near the D65 white point
	assert.InDelta(t, 0.320, p.X, 0.01)
	assert.InDelta(t, 0.336, p.Y, 0.01)

	p, bri = RGBToXYBrightness(0, 0, 0, nil)
	assert.Equal(t, XY{}, p)
	assert.Equal(t, uint8(0), bri)
}

func TestHSRGBRoundTrip(t *testing.T) {
	cases := []HS{
		{H: 0, S: 100},
		{H: 120, S: 100},
		{H: 240, S: 100},
		{H: 36, S: 70},
		{H: 300, S: 20},
	}
	for _, hs := range cases {
		r, g, b := HSToRGB(hs)
		got := RGBToHS(r, g, b)
		assert.InDelta(t, hs.H, got.H, 1, "hue for %+v", hs)
		assert.InDelta(t, hs.S, got.S, 1, "sat for %+v", hs)
	}
}

func TestHSVKnownValues(t *testing.T) {
	h, s, v := RGBToHSV(255, 0, 0)
	assert.InDelta(t, 0, h, 0.01)
	assert.InDelta(t, 100, s, 0.01)
	assert.InDelta(t, 100, v, 0.01)

	h, s, v = RGBToHSV(0, 0, 128)
	assert.InDelta(t, 240, h, 0.01)
	assert.InDelta(t, 100, s, 0.01)
	assert.InDelta(t, 50.2, v, 0.1)

	r, g, b := HSVToRGB(240, 100, 50.2)
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(0), g)
	assert.InDelta(t, 128, int(b), 1)
}

func TestColorTemperatureToRGB(t *testing.T) {
	r, g, b := ColorTemperatureToRGB(6600)
	assert.Equal(t, uint8(255), r)
	assert.Greater(t, int(g), 200)
	assert.Equal(t, uint8(255), b)

	// warm white is red-heavy
	r, g, b = ColorTemperatureToRGB(2700)
	assert.Equal(t, uint8(255), r)
	assert.Greater(t, int(g), int(b))

	// clamped below 1000K
	r1, g1, b1 := ColorTemperatureToRGB(500)
	r2, g2, b2 := ColorTemperatureToRGB(1000)
	assert.Equal(t, []uint8{r2, g2, b2}, []uint8{r1, g1, b1})
}

func TestGamut(t *testing.T) {
	assert.True(t, GamutC.Valid())
	assert.True(t, GamutC.Contains(XY{0.323, 0.329}))
	assert.False(t, GamutC.Contains(XY{0.7, 0.7}))

	// out-of-gamut points end up inside (or on the edge of) the triangle
	p := GamutC.Closest(XY{0.7, 0.7})
	assert.InDelta(t, 0, dist(p, GamutC.Closest(p)), 1e-9)

	// conversion with a gamut clamps
	q, _ := RGBToXYBrightness(0, 255, 0, &GamutC)
	assert.True(t, GamutC.Contains(q) || dist(q, GamutC.Closest(q)) < 1e-9)

	bad := Gamut{Red: XY{1.5, 0}, Green: GamutC.Green, Blue: GamutC.Blue}
	assert.False(t, bad.Valid())
}

func TestRGBWRoundTrip(t *testing.T) {
	r, g, b, w := RGBToRGBW(255, 255, 255)
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(0), g)
	assert.Equal(t, uint8(0), b)
	assert.Equal(t, uint8(255), w)

	or, og, ob := RGBWToRGB(r, g, b, w)
	assert.Equal(t, uint8(255), or)
	assert.Equal(t, uint8(255), og)
	assert.Equal(t, uint8(255), ob)

	r, g, b, w = RGBToRGBW(128, 0, 0)
	assert.Equal(t, uint8(0), w)
	assert.Equal(t, uint8(128), r)
	_, _, _ = g, b, w
}

func TestRGBWWConversion(t *testing.T) {
	r, g, b, cw, ww := RGBToRGBWW(255, 255, 255, 2700, 6500)
	assert.Equal(t, cw, ww)
	assert.Greater(t, int(cw), 0)

	or, og, ob := RGBWWToRGB(r, g, b, cw, ww, 2700, 6500)
	assert.InDelta(t, 255, int(or), 5)
	assert.InDelta(t, 255, int(og), 5)
	assert.InDelta(t, 255, int(ob), 5)
}

func TestHexRoundTrip(t *testing.T) {
	s := RGBToHex(255, 99, 71)
	assert.Equal(t, "ff6347", s)

	r, g, b, err := HexToRGB("#ff6347")
	assert.NoError(t, err)
	assert.Equal(t, []uint8{255, 99, 71}, []uint8{r, g, b})

	_, _, _, err = HexToRGB("nope")
	assert.Error(t, err)
}

func TestBrightnessScaling(t *testing.T) {
	assert.Equal(t, 0, BrightnessToPercent(0))
	assert.Equal(t, 1, BrightnessToPercent(1))
	assert.Equal(t, 100, BrightnessToPercent(255))
	assert.Equal(t, uint8(255), PercentToBrightness(100))
	assert.Equal(t, uint8(0), PercentToBrightness(0))

	for _, bri := range []uint8{1, 50, 127, 200, 255} {
		pct := BrightnessToPercent(bri)
		assert.InDelta(t, int(bri), int(PercentToBrightness(pct)), 2)
	}

	assert.Equal(t, 0, ScaleBrightness(0, 100))
	assert.Equal(t, 1, ScaleBrightness(1, 100))
	assert.Equal(t, 100, ScaleBrightness(255, 100))
	assert.Equal(t, uint8(255), ScaleToBrightness(100, 100))

	for _, v := range []int{1, 25, 50, 99} {
		assert.InDelta(t, v, ScaleBrightness(ScaleToBrightness(v, 100), 100), 1)
	}
}

func TestColorTemperatureToHS(t *testing.T) {
	hs := ColorTemperatureToHS(2700)
	// warm white sits in the orange range
	assert.Greater(t, hs.H, 20.0)
	assert.Less(t, hs.H, 60.0)
	assert.Greater(t, hs.S, 0.0)
}
