// Package color implements the RGB/CCT-to-channel mapping and the
// log-perceptual dimming curve. It is a collaborator of the core (see
// spec.md §1): it knows nothing about the fieldbus, and produces only the
// five float64 channel values the core's DimmerProxy.Set expects.
package color

import "math"

// State mirrors the original source's RGBCCTState namedtuple: the fields
// a Home Assistant light entity reports, before projection onto physical
// channels.
type State struct {
	On          bool
	Brightness  float64 // 0..1
	Temperature float64 // 0 (warm) .. 1 (cool)
	White       float64 // 0..1, dedicated white channel level
	Hue         float64 // degrees, 0..360
	Saturation  float64 // 0..1
}

// Curve maps perceptual brightness to a linear channel level using a
// gamma-style log curve, generalizing the formula left commented out in
// the original source (10**(((-1+n)*255)/(253/3))): human brightness
// perception is roughly logarithmic, so a linear fade looks abrupt near
// zero without this correction.
type Curve struct {
	// Gamma controls curve steepness; 1.0 is linear, higher values bias
	// more of the 0..1 range toward low output.
	Gamma float64
}

// DefaultCurve matches typical LED dimmer perceptual tuning.
var DefaultCurve = Curve{Gamma: 2.2}

// Apply maps a perceptual level in [0,1] to a linear channel level in
// [0,1]. Values outside [0,1] are clamped first.
func (c Curve) Apply(level float64) float64 {
	if level <= 0 {
		return 0
	}
	if level >= 1 {
		return 1
	}
	gamma := c.Gamma
	if gamma <= 0 {
		gamma = 1
	}
	return math.Pow(level, gamma)
}

// ToChannels projects an RGBCCT state onto the five physical channels the
// reference dimmer expects: red, green, blue, cool-white, warm-white.
func (c Curve) ToChannels(s State) (r, g, b, cw, ww float64) {
	if !s.On {
		return 0, 0, 0, 0, 0
	}

	level := c.Apply(s.Brightness)

	hr, hg, hb := hsvToRGB(s.Hue, s.Saturation, 1.0)
	r, g, b = hr*level, hg*level, hb*level

	cwFrac := s.Temperature
	wwFrac := 1 - s.Temperature
	white := level * s.White
	cw = white * cwFrac
	ww = white * wwFrac

	return
}

// hsvToRGB converts hue (degrees, 0-360), saturation and value (0-1) into
// RGB (0-1), standard HSV->RGB.
func hsvToRGB(h, s, v float64) (r, g, b float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
