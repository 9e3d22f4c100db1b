package drive

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

var policies = []Policy{PolicyTank, PolicyDifferential}

func TestDeadzone(t *testing.T) {
	Convey("a stick inside the deadzone stops the car", t, func() {
		for _, p := range policies {
			for _, level := range []int{0, 15, 50, 75, 100} {
				for x := -0.09; x < 0.1; x += 0.03 {
					for y := -0.09; y < 0.1; y += 0.03 {
						So(Translate(Sample{X: x, Y: y}, level, p), ShouldResemble, Stop)
					}
				}
			}
		}
	})

	Convey("the canonical stop is both wheels forward at zero for one tick", t, func() {
		So(Stop.Encode(), ShouldResemble, Frame{0, 1, 0, 1, 1})
	})
}

func TestOutputRange(t *testing.T) {
	Convey("every mixed command stays within the wire range and the level", t, func() {
		for _, p := range policies {
			for _, level := range []int{15, 20, 50, 75, 100} {
				for x := -1.2; x <= 1.2; x += 0.1 {
					for y := -1.2; y <= 1.2; y += 0.1 {
						cmd := Translate(Sample{X: x, Y: y}, level, p)
						So(cmd.Validate(), ShouldBeNil)
						So(int(cmd.SpeedA), ShouldBeLessThanOrEqualTo, level)
						So(int(cmd.SpeedB), ShouldBeLessThanOrEqualTo, level)

						frame := cmd.Encode()
						So(frame[1], ShouldBeLessThanOrEqualTo, 1)
						So(frame[3], ShouldBeLessThanOrEqualTo, 1)
					}
				}
			}
		}
	})

	Convey("garbage axis values are clamped rather than surfaced", t, func() {
		for _, p := range policies {
			So(Translate(Sample{X: math.NaN(), Y: math.NaN()}, 100, p), ShouldResemble, Stop)
			So(Translate(Sample{X: 0, Y: math.Inf(-1)}, 100, p), ShouldResemble, Translate(Sample{Y: -1}, 100, p))
		}
	})
}

func TestTankMixing(t *testing.T) {
	Convey("full stick forward drives both wheels at MaxSpeed", t, func() {
		cmd := Translate(Sample{X: 0, Y: -1}, 100, PolicyTank)
		So(cmd, ShouldResemble, Command{SpeedA: 50, DirA: true, SpeedB: 50, DirB: true, Duration: 2})

		Convey("and scales with the speed level", func() {
			cmd := Translate(Sample{X: 0, Y: -1}, 50, PolicyTank)
			So(cmd.SpeedA, ShouldEqual, 25)
			So(cmd.SpeedB, ShouldEqual, 25)
		})

		Convey("fractions truncate toward zero", func() {
			cmd := Translate(Sample{X: 0, Y: -0.55}, 75, PolicyTank)
			So(cmd.SpeedA, ShouldEqual, 20)
		})
	})

	Convey("full stick back reverses both wheels", t, func() {
		cmd := Translate(Sample{X: 0, Y: 1}, 100, PolicyTank)
		So(cmd, ShouldResemble, Command{SpeedA: 50, DirA: false, SpeedB: 50, DirB: false, Duration: 2})
	})

	Convey("a pure turn gets the boost and spins the wheels against each other", t, func() {
		cmd := Translate(Sample{X: 1, Y: 0}, 100, PolicyTank)
		So(cmd, ShouldResemble, Command{SpeedA: 55, DirA: true, SpeedB: 55, DirB: false, Duration: 2})

		cmd = Translate(Sample{X: -1, Y: 0}, 100, PolicyTank)
		So(cmd, ShouldResemble, Command{SpeedA: 55, DirA: false, SpeedB: 55, DirB: true, Duration: 2})

		Convey("a stick still inside the deadzone on Y counts as a pure turn", func() {
			cmd := Translate(Sample{X: 1, Y: 0.05}, 100, PolicyTank)
			So(cmd.SpeedA, ShouldEqual, 55)
		})
	})

	Convey("turning while driving adds and subtracts the mixer", t, func() {
		cmd := Translate(Sample{X: 0.5, Y: -1}, 100, PolicyTank)
		So(cmd, ShouldResemble, Command{SpeedA: 65, DirA: true, SpeedB: 35, DirB: true, Duration: 2})
	})

	Convey("wheel speed never exceeds the level even with aggressive tuning", t, func() {
		m := Mixer{Policy: PolicyTank, Tuning: DefaultTuning()}
		m.Tuning.MaxSpeed = 100
		m.Tuning.MaxMixer = 100
		cmd := m.Translate(Sample{X: 1, Y: -1}, 75)
		So(cmd.SpeedA, ShouldEqual, 75)
		So(cmd.SpeedB, ShouldEqual, 0)
	})
}

func TestDifferentialMixing(t *testing.T) {
	Convey("full stick forward drives both wheels at the level", t, func() {
		cmd := Translate(Sample{X: 0, Y: -1}, 100, PolicyDifferential)
		So(cmd, ShouldResemble, Command{SpeedA: 100, DirA: true, SpeedB: 100, DirB: true, Duration: 2})
	})

	Convey("steering right slows the right wheel", t, func() {
		cmd := Translate(Sample{X: 0.5, Y: -1}, 100, PolicyDifferential)
		So(cmd.SpeedA, ShouldEqual, 100)
		So(cmd.SpeedB, ShouldEqual, 75)

		Convey("and steering left slows the left wheel", func() {
			cmd := Translate(Sample{X: -0.5, Y: -1}, 100, PolicyDifferential)
			So(cmd.SpeedA, ShouldEqual, 75)
			So(cmd.SpeedB, ShouldEqual, 100)
		})
	})

	Convey("both wheels share one direction", t, func() {
		cmd := Translate(Sample{X: 0.8, Y: 0.6}, 75, PolicyDifferential)
		So(cmd.DirA, ShouldBeFalse)
		So(cmd.DirB, ShouldBeFalse)
	})

	Convey("slow input is lifted to the stall floor", t, func() {
		cmd := Translate(Sample{X: 0, Y: -0.2}, 50, PolicyDifferential)
		So(cmd.SpeedA, ShouldEqual, 15)
		So(cmd.SpeedB, ShouldEqual, 15)

		Convey("including the slowed inside wheel", func() {
			cmd := Translate(Sample{X: 1, Y: -0.2}, 50, PolicyDifferential)
			So(cmd.SpeedB, ShouldEqual, 15)
		})
	})
}

func TestParsePolicy(t *testing.T) {
	Convey("policy names round trip", t, func() {
		for _, p := range policies {
			parsed, err := ParsePolicy(p.String())
			So(err, ShouldBeNil)
			So(parsed, ShouldEqual, p)
		}

		p, err := ParsePolicy(" Diff ")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, PolicyDifferential)
	})

	Convey("unknown names are rejected", t, func() {
		_, err := ParsePolicy("hovercraft")
		So(err, ShouldWrap, ErrBadPolicy)
	})
}
