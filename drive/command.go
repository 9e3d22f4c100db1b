package drive

import (
	"errors"
	"fmt"
)

const (
	FRAME_LEN       = 5
	MAX_WHEEL_SPEED = 100
)

var (
	ErrFrameDir = errors.New("direction byte must be 0 or 1")
)

// Frame is the wire form of a Command:
// [speed_a, dir_a, speed_b, dir_b, duration], one byte each, no framing.
type Frame [FRAME_LEN]byte

// Command drives both wheels for Duration ticks. Dir true means forward.
type Command struct {
	SpeedA   uint8
	DirA     bool
	SpeedB   uint8
	DirB     bool
	Duration uint8
}

// Stop is the canonical stop command, sent on quit, emergency stop and a
// centred stick.
var Stop = Command{DirA: true, DirB: true, Duration: 1}

// Validate checks every field against its wire range.
func (c Command) Validate() error {
	if c.SpeedA > MAX_WHEEL_SPEED {
		return &InvariantError{Field: "speed_a", Value: int(c.SpeedA), Max: MAX_WHEEL_SPEED}
	}
	if c.SpeedB > MAX_WHEEL_SPEED {
		return &InvariantError{Field: "speed_b", Value: int(c.SpeedB), Max: MAX_WHEEL_SPEED}
	}
	return nil
}

// Encode packs the command into its wire frame. An out of range field panics
// with an *InvariantError.
func (c Command) Encode() Frame {
	if err := c.Validate(); err != nil {
		panic(err)
	}

	return Frame{
		c.SpeedA,
		boolByte(c.DirA),
		c.SpeedB,
		boolByte(c.DirB),
		c.Duration,
	}
}

func (c Command) String() string {
	return fmt.Sprintf("A %3d%% %s | B %3d%% %s | %d", c.SpeedA, dirName(c.DirA), c.SpeedB, dirName(c.DirB), c.Duration)
}

// Command reads a frame back into a command, used for printing frames.
func (f Frame) Command() (c Command, err error) {
	if f[1] > 1 || f[3] > 1 {
		return c, ErrFrameDir
	}

	c = Command{
		SpeedA:   f[0],
		DirA:     f[1] == 1,
		SpeedB:   f[2],
		DirB:     f[3] == 1,
		Duration: f[4],
	}
	return c, c.Validate()
}

func (f Frame) String() string {
	return fmt.Sprintf("% x", f[:])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func dirName(fwd bool) string {
	if fwd {
		return "FWD"
	}
	return "BWD"
}
