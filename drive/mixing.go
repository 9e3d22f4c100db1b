package drive

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Policy selects how stick input is mixed into wheel commands.
type Policy uint8

const (
	// PolicyTank adds and subtracts a turn mixer from a shared throttle, each
	// wheel getting its own direction.
	PolicyTank Policy = iota
	// PolicyDifferential drives both wheels the same way and slows the inside
	// wheel to steer.
	PolicyDifferential
)

var ErrBadPolicy = errors.New("unknown mixing policy")

var policyNames = map[Policy]string{
	PolicyTank:         "tank",
	PolicyDifferential: "differential",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tank", "":
		return PolicyTank, nil
	case "differential", "diff":
		return PolicyDifferential, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadPolicy, name)
}

// Tuning holds the mixing constants.
type Tuning struct {
	Deadzone      float64 // axis magnitudes below this count as centred
	MaxSpeed      int     // tank: throttle at full stick and 100%
	MaxMixer      int     // tank: turn strength at full stick and 100%
	TurnBoost     int     // tank: extra turn when rotating in place
	MinSpeed      int     // differential: slowest speed that still moves the car
	DurationTicks uint8
}

func DefaultTuning() Tuning {
	return Tuning{
		Deadzone:      0.10,
		MaxSpeed:      50,
		MaxMixer:      30,
		TurnBoost:     25,
		MinSpeed:      15,
		DurationTicks: 2,
	}
}

// Mixer turns samples into commands. It holds no state between calls.
type Mixer struct {
	Policy Policy
	Tuning Tuning
}

func NewMixer(policy Policy) Mixer {
	return Mixer{Policy: policy, Tuning: DefaultTuning()}
}

// Translate mixes a sample at the given speed level (percent) using the
// default tuning.
func Translate(s Sample, level int, policy Policy) Command {
	return NewMixer(policy).Translate(s, level)
}

// Translate mixes a sample at the given speed level (percent). No wheel speed
// ever exceeds the level.
func (m Mixer) Translate(s Sample, level int) Command {
	s = s.normalized()
	x := m.Tuning.deadzone(s.X)
	y := m.Tuning.deadzone(s.Y)
	if x == 0 && y == 0 {
		return Stop
	}

	level = clampInt(level, 0, MAX_WHEEL_SPEED)

	switch m.Policy {
	case PolicyDifferential:
		return m.differential(x, y, level)
	default:
		return m.tank(x, y, level)
	}
}

func (t Tuning) deadzone(v float64) float64 {
	if math.Abs(v) < t.Deadzone {
		return 0
	}
	return v
}

func (m Mixer) tank(x, y float64, level int) Command {
	t := m.Tuning
	scale := float64(level) / 100

	speed := int(-y * float64(t.MaxSpeed) * scale)
	mixer := int(x * float64(t.MaxMixer) * scale)

	// turning in place needs extra torque to get over static friction
	if y == 0 {
		switch {
		case mixer > 0:
			mixer += t.TurnBoost
		case mixer < 0:
			mixer -= t.TurnBoost
		}
	}

	speedA, dirA := wheel(speed+mixer, level)
	speedB, dirB := wheel(speed-mixer, level)

	return Command{
		SpeedA:   speedA,
		DirA:     dirA,
		SpeedB:   speedB,
		DirB:     dirB,
		Duration: t.DurationTicks,
	}
}

func (m Mixer) differential(x, y float64, level int) Command {
	t := m.Tuning

	base := clampInt(int(math.Floor(math.Abs(y)*float64(level))), t.MinSpeed, level)
	forward := y < 0

	reduction := int(math.Floor(float64(base) * math.Abs(x) * 0.5))
	inside := clampInt(base-reduction, t.MinSpeed, level)

	speedA, speedB := base, base
	switch {
	case x > 0:
		speedB = inside
	case x < 0:
		speedA = inside
	}

	return Command{
		SpeedA:   uint8(speedA),
		DirA:     forward,
		SpeedB:   uint8(speedB),
		DirB:     forward,
		Duration: t.DurationTicks,
	}
}

// wheel splits a signed wheel value into a speed capped at ceiling and a
// direction.
func wheel(v, ceiling int) (speed uint8, forward bool) {
	forward = v >= 0
	if v < 0 {
		v = -v
	}
	return uint8(clampInt(v, 0, ceiling)), forward
}

// clampInt bounds v to [lo, hi]. hi wins if the bounds cross.
func clampInt(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
