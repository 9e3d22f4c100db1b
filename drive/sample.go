package drive

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Hat is a raw directional pad reading, each axis -1, 0 or 1. Y is +1 for up.
type Hat struct {
	X, Y int8
}

// Sample is one tick's worth of operator intent as produced by an input source.
type Sample struct {
	X    float64 // stick left/right, -1 (left) to 1 (right)
	Y    float64 // stick up/down, -1 (forward) to 1 (backward)
	Stop bool    // emergency stop button held
	Quit bool
	Dpad Hat
}

func (s Sample) normalized() Sample {
	s.X = clampAxis(s.X)
	s.Y = clampAxis(s.Y)
	s.Dpad = Hat{sign(s.Dpad.X), sign(s.Dpad.Y)}
	return s
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return mgl64.Clamp(v, -1, 1)
}

func sign(v int8) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
