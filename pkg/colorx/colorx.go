// Package colorx implements the colorimetric conversions needed to translate
// between the color representations used by smart lights: sRGB, CIE 1931 xy,
// hue/saturation, and correlated color temperature (Kelvin/mired).
//
// Formulas follow the published Philips Hue developer documentation for the
// RGB/xy conversions (Wide RGB D65) and Tanner Helland's approximation for
// color temperature to RGB.
package colorx

import (
	"fmt"
	"math"
)

// XY is a point in the CIE 1931 color space.
type XY struct {
	X float64
	Y float64
}

// HS is a hue/saturation pair, hue in degrees [0, 360), saturation in [0, 100].
type HS struct {
	H float64
	S float64
}

// Gamut describes the triangle of xy points a lamp can actually produce.
type Gamut struct {
	Red   XY
	Green XY
	Blue  XY
}

// GamutC is the gamut of modern Hue color lamps, used as a sane default for
// lights that do not report their own.
var GamutC = Gamut{
	Red:   XY{0.701, 0.299},
	Green: XY{0.172, 0.747},
	Blue:  XY{0.135, 0.039},
}

// gamma correction sRGB -> linear
func gammaExpand(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

// gamma correction linear -> sRGB
func gammaCompress(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RGBToXYBrightness converts an sRGB color to a CIE xy point plus a
// brightness value in [0, 255]. If a gamut is given and the resulting point
// falls outside of it, the point is moved to the closest one the lamp can
// reproduce.
func RGBToXYBrightness(r, g, b uint8, gamut *Gamut) (XY, uint8) {
	if r == 0 && g == 0 && b == 0 {
		return XY{}, 0
	}

	fr := gammaExpand(float64(r) / 255)
	fg := gammaExpand(float64(g) / 255)
	fb := gammaExpand(float64(b) / 255)

	// Wide RGB D65 conversion
	cx := fr*0.664511 + fg*0.154324 + fb*0.162028
	cy := fr*0.313881 + fg*0.668433 + fb*0.047685
	cz := fr*0.000088 + fg*0.072310 + fb*0.986039

	sum := cx + cy + cz
	p := XY{X: roundTo(cx/sum, 3), Y: roundTo(cy/sum, 3)}

	bri := uint8(math.Round(math.Min(cy, 1) * 255))

	if gamut != nil && !gamut.Contains(p) {
		p = gamut.Closest(p)
	}
	return p, bri
}

// RGBToXY is RGBToXYBrightness with the brightness discarded.
func RGBToXY(r, g, b uint8, gamut *Gamut) XY {
	p, _ := RGBToXYBrightness(r, g, b, gamut)
	return p
}

// XYBrightnessToRGB converts a CIE xy point and a brightness in [0, 255]
// back to sRGB.
func XYBrightnessToRGB(p XY, brightness uint8, gamut *Gamut) (uint8, uint8, uint8) {
	if gamut != nil && !gamut.Contains(p) {
		p = gamut.Closest(p)
	}
	yb := float64(brightness) / 255
	if yb == 0 {
		return 0, 0, 0
	}

	cy := yb
	cx := (cy / p.Y) * p.X
	cz := (cy / p.Y) * (1 - p.X - p.Y)

	r := cx*1.656492 - cy*0.354851 - cz*0.255038
	g := -cx*0.707196 + cy*1.655397 + cz*0.036152
	b := cx*0.051713 - cy*0.121364 + cz*1.011530

	r = gammaCompress(math.Max(0, r))
	g = gammaCompress(math.Max(0, g))
	b = gammaCompress(math.Max(0, b))

	// normalize if any component overshoots
	if max := math.Max(r, math.Max(g, b)); max > 1 {
		r /= max
		g /= max
		b /= max
	}

	return uint8(math.Round(r * 255)), uint8(math.Round(g * 255)), uint8(math.Round(b * 255))
}

// XYToRGB converts a CIE xy point to sRGB at full brightness.
func XYToRGB(p XY, gamut *Gamut) (uint8, uint8, uint8) {
	return XYBrightnessToRGB(p, 255, gamut)
}

// RGBToHSV converts sRGB to hue [0, 360), saturation [0, 100], value [0, 100].
func RGBToHSV(r, g, b uint8) (float64, float64, float64) {
	fr := float64(r) / 255
	fg := float64(g) / 255
	fb := float64(b) / 255

	max := math.Max(fr, math.Max(fg, fb))
	min := math.Min(fr, math.Min(fg, fb))
	delta := max - min

	v := max * 100
	if max == 0 {
		return 0, 0, 0
	}
	s := delta / max * 100
	if delta == 0 {
		return 0, 0, v
	}

	var h float64
	switch max {
	case fr:
		h = math.Mod((fg-fb)/delta, 6)
	case fg:
		h = (fb-fr)/delta + 2
	default:
		h = (fr-fg)/delta + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// HSVToRGB converts hue [0, 360), saturation [0, 100], value [0, 100] to sRGB.
func HSVToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	s = clamp(s, 0, 100) / 100
	v = clamp(v, 0, 100) / 100

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var fr, fg, fb float64
	switch {
	case h < 60:
		fr, fg, fb = c, x, 0
	case h < 120:
		fr, fg, fb = x, c, 0
	case h < 180:
		fr, fg, fb = 0, c, x
	case h < 240:
		fr, fg, fb = 0, x, c
	case h < 300:
		fr, fg, fb = x, 0, c
	default:
		fr, fg, fb = c, 0, x
	}

	return uint8(math.Round((fr + m) * 255)),
		uint8(math.Round((fg + m) * 255)),
		uint8(math.Round((fb + m) * 255))
}

// HSToRGB converts a hue/saturation pair to sRGB at full value.
func HSToRGB(hs HS) (uint8, uint8, uint8) {
	return HSVToRGB(hs.H, hs.S, 100)
}

// RGBToHS converts sRGB to a hue/saturation pair, dropping the value.
func RGBToHS(r, g, b uint8) HS {
	h, s, _ := RGBToHSV(r, g, b)
	return HS{H: h, S: s}
}

// HSToXY converts hue/saturation to a CIE xy point.
func HSToXY(hs HS, gamut *Gamut) XY {
	r, g, b := HSToRGB(hs)
	return RGBToXY(r, g, b, gamut)
}

// XYToHS converts a CIE xy point to hue/saturation.
func XYToHS(p XY, gamut *Gamut) HS {
	r, g, b := XYToRGB(p, gamut)
	return RGBToHS(r, g, b)
}

// ColorTemperatureToRGB approximates the sRGB color of a black body at the
// given temperature in Kelvin. Valid from 1000 K to 40000 K.
func ColorTemperatureToRGB(kelvin float64) (uint8, uint8, uint8) {
	t := clamp(kelvin, 1000, 40000) / 100

	var r, g, b float64
	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}
	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}

	return uint8(clamp(r, 0, 255)), uint8(clamp(g, 0, 255)), uint8(clamp(b, 0, 255))
}

// ColorTemperatureToHS converts a color temperature in Kelvin to the
// hue/saturation pair of the equivalent RGB color.
func ColorTemperatureToHS(kelvin float64) HS {
	return RGBToHS(ColorTemperatureToRGB(kelvin))
}

// KelvinToMired converts a color temperature in Kelvin to mireds.
func KelvinToMired(kelvin float64) int {
	return int(math.Round(1e6 / kelvin))
}

// MiredToKelvin converts a color temperature in mireds to Kelvin.
func MiredToKelvin(mired int) float64 {
	return math.Round(1e6 / float64(mired))
}

// RGBToRGBW splits an sRGB color into RGB plus a white channel.
func RGBToRGBW(r, g, b uint8) (uint8, uint8, uint8, uint8) {
	w := min3(r, g, b)
	return r - w, g - w, b - w, w
}

// RGBWToRGB folds a white channel back into an sRGB color, keeping the
// brightness of the brightest input channel.
func RGBWToRGB(r, g, b, w uint8) (uint8, uint8, uint8) {
	return matchMaxScale(
		[]float64{float64(r), float64(g), float64(b), float64(w)},
		[]float64{float64(r) + float64(w), float64(g) + float64(w), float64(b) + float64(w)},
	)
}

// RGBToRGBWW splits an sRGB color into RGB plus cold and warm white channels
// for a light whose whites span [minKelvin, maxKelvin].
func RGBToRGBWW(r, g, b uint8, minKelvin, maxKelvin float64) (uint8, uint8, uint8, uint8, uint8) {
	// white channels modeled at the mid point of the light's mired range
	maxMired := float64(KelvinToMired(minKelvin))
	minMired := float64(KelvinToMired(maxKelvin))
	midKelvin := MiredToKelvin(int(minMired + (maxMired-minMired)/2))
	wr, wg, wb := ColorTemperatureToRGB(midKelvin)

	whiteLevel := math.Min(
		safeDiv(float64(r), float64(wr)),
		math.Min(safeDiv(float64(g), float64(wg)), safeDiv(float64(b), float64(wb))),
	)

	or := uint8(math.Round(math.Max(0, float64(r)-float64(wr)*whiteLevel)))
	og := uint8(math.Round(math.Max(0, float64(g)-float64(wg)*whiteLevel)))
	ob := uint8(math.Round(math.Max(0, float64(b)-float64(wb)*whiteLevel)))
	w := uint8(math.Round(clamp(whiteLevel*255, 0, 255)))
	return or, og, ob, w, w
}

// RGBWWToRGB folds cold/warm white channels back into an sRGB color.
func RGBWWToRGB(r, g, b, cw, ww uint8, minKelvin, maxKelvin float64) (uint8, uint8, uint8) {
	maxMired := float64(KelvinToMired(minKelvin))
	minMired := float64(KelvinToMired(maxKelvin))

	ctRatio := 0.5
	if cw != 0 || ww != 0 {
		ctRatio = float64(ww) / (float64(cw) + float64(ww))
	}
	ctMired := minMired + ctRatio*(maxMired-minMired)
	wr, wg, wb := ColorTemperatureToRGB(MiredToKelvin(int(ctMired)))

	whiteLevel := float64(max3(cw, ww, 0)) / 255
	return matchMaxScale(
		[]float64{float64(r), float64(g), float64(b), float64(cw), float64(ww)},
		[]float64{
			float64(r) + float64(wr)*whiteLevel,
			float64(g) + float64(wg)*whiteLevel,
			float64(b) + float64(wb)*whiteLevel,
		},
	)
}

// RGBToHex formats an sRGB color as a 6 digit hex string without prefix.
func RGBToHex(r, g, b uint8) string {
	return fmt.Sprintf("%02x%02x%02x", r, g, b)
}

// HexToRGB parses a 6 digit hex color, with or without a leading '#'.
func HexToRGB(hex string) (uint8, uint8, uint8, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("colorx: invalid hex color %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, fmt.Errorf("colorx: invalid hex color %q", hex)
	}
	return r, g, b, nil
}

// BrightnessToPercent maps a brightness in [0, 255] to a percentage [0, 100].
// Any non-zero brightness maps to at least 1 percent.
func BrightnessToPercent(brightness uint8) int {
	if brightness == 0 {
		return 0
	}
	p := int(math.Round(float64(brightness) * 100 / 255))
	if p < 1 {
		p = 1
	}
	return p
}

// PercentToBrightness maps a percentage [0, 100] to a brightness in [0, 255].
func PercentToBrightness(percent int) uint8 {
	if percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return 255
	}
	return uint8(math.Round(float64(percent) * 255 / 100))
}

// ScaleBrightness rescales a brightness in [0, 255] to [1, toMax], the range
// used by devices that count levels from 1. Zero stays zero.
func ScaleBrightness(brightness uint8, toMax int) int {
	if brightness == 0 {
		return 0
	}
	v := int(math.Round(float64(brightness) * float64(toMax) / 255))
	if v < 1 {
		v = 1
	}
	return v
}

// ScaleToBrightness is the inverse of ScaleBrightness.
func ScaleToBrightness(value, fromMax int) uint8 {
	if value <= 0 {
		return 0
	}
	if value >= fromMax {
		return 255
	}
	return uint8(math.Round(float64(value) * 255 / float64(fromMax)))
}

// Contains reports whether p lies inside the gamut triangle.
func (g Gamut) Contains(p XY) bool {
	v1 := XY{g.Green.X - g.Red.X, g.Green.Y - g.Red.Y}
	v2 := XY{g.Blue.X - g.Red.X, g.Blue.Y - g.Red.Y}
	q := XY{p.X - g.Red.X, p.Y - g.Red.Y}

	den := cross(v1, v2)
	s := cross(q, v2) / den
	t := cross(v1, q) / den
	return s >= 0 && t >= 0 && s+t <= 1
}

// Closest returns the point inside the gamut triangle nearest to p.
func (g Gamut) Closest(p XY) XY {
	pab := closestOnSegment(g.Red, g.Green, p)
	pac := closestOnSegment(g.Blue, g.Red, p)
	pbc := closestOnSegment(g.Green, g.Blue, p)

	best := pab
	bestDist := dist(p, pab)
	if d := dist(p, pac); d < bestDist {
		best, bestDist = pac, d
	}
	if d := dist(p, pbc); d < bestDist {
		best = pbc
	}
	return best
}

// Valid reports whether the gamut is a proper counter-clockwise triangle
// within the CIE 1931 horseshoe.
func (g Gamut) Valid() bool {
	inRange := func(p XY) bool {
		return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
	}
	if !inRange(g.Red) || !inRange(g.Green) || !inRange(g.Blue) {
		return false
	}
	v1 := XY{g.Green.X - g.Red.X, g.Green.Y - g.Red.Y}
	v2 := XY{g.Blue.X - g.Red.X, g.Blue.Y - g.Red.Y}
	return cross(v1, v2) != 0
}

func closestOnSegment(a, b, p XY) XY {
	ap := XY{p.X - a.X, p.Y - a.Y}
	ab := XY{b.X - a.X, b.Y - a.Y}
	t := clamp((ap.X*ab.X+ap.Y*ab.Y)/(ab.X*ab.X+ab.Y*ab.Y), 0, 1)
	return XY{a.X + ab.X*t, a.Y + ab.Y*t}
}

func cross(a, b XY) float64 {
	return a.X*b.Y - a.Y*b.X
}

func dist(a, b XY) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func roundTo(v float64, digits int) float64 {
	m := math.Pow(10, float64(digits))
	return math.Round(v*m) / m
}

func matchMaxScale(in, out []float64) (uint8, uint8, uint8) {
	var inMax, outMax float64
	for _, v := range in {
		inMax = math.Max(inMax, v)
	}
	for _, v := range out {
		outMax = math.Max(outMax, v)
	}
	factor := 0.0
	if outMax > 0 {
		factor = inMax / outMax
	}
	return uint8(math.Round(out[0] * factor)),
		uint8(math.Round(out[1] * factor)),
		uint8(math.Round(out[2] * factor))
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func min3(a, b, c uint8) uint8 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c uint8) uint8 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
