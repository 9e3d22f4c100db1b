package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/silviot/Racer/drive"
	. "github.com/smartystreets/goconvey/convey"
)

const testYaml = `
version: 1.0.2
drive:
  policy: differential
  levels: [30, 60, 90]
  initial: 0
  tick_rate: 10
  min_speed: 20
input:
  kind: keyboard
  keyboard:
    hold: 150ms
link:
  kind: websocket
  websocket:
    url: ws://localhost:8080/frames
log:
  file: ""
`

func TestConfigParsing(t *testing.T) {
	var err error
	var config RacerConfig

	Convey("parsing is successful", t, func() {
		config, err = Parse([]byte(testYaml))
		So(err, ShouldBeNil)

		Convey("drive settings are read", func() {
			So(config.Drive.MixingPolicy(), ShouldEqual, drive.PolicyDifferential)
			So(config.Drive.Levels, ShouldResemble, []int{30, 60, 90})
			So(config.Drive.Initial, ShouldEqual, 0)
			So(config.Drive.Interval(), ShouldEqual, 100*time.Millisecond)
			So(config.Drive.Tuning().MinSpeed, ShouldEqual, 20)
		})

		Convey("unset fields keep their defaults", func() {
			So(config.Drive.Deadzone, ShouldEqual, 0.10)
			So(config.Drive.DurationTicks, ShouldEqual, 2)
			So(config.Link.Characteristic, ShouldEqual, DEFAULT_CHARACTERISTIC)
			So(config.Input.Joystick.Stop, ShouldEqual, "BTN_SOUTH")
		})

		Convey("durations and nested sections are decoded", func() {
			So(config.Input.Kind, ShouldEqual, "keyboard")
			So(config.Input.Keyboard.Hold, ShouldEqual, 150*time.Millisecond)
			So(config.Link.Websocket.URL, ShouldEqual, "ws://localhost:8080/frames")
			So(config.Log.File, ShouldEqual, "")
		})
	})

	Convey("defaults are valid and match the drive package", t, func() {
		config = Default()
		So(config.Validate(), ShouldBeNil)
		So(config.Drive.Tuning(), ShouldResemble, drive.DefaultTuning())
		So(config.Drive.Interval(), ShouldEqual, 50*time.Millisecond)
		So(config.Drive.Initial, ShouldEqual, -1)
	})
}

func TestConfigVersion(t *testing.T) {
	Convey("a config from another major version is refused", t, func() {
		_, err := Parse([]byte("version: 2.0.0\n"))
		So(errors.Cause(err), ShouldEqual, ErrVersion)
	})

	Convey("a version that is not semver is refused", t, func() {
		_, err := Parse([]byte("version: latest\n"))
		So(errors.Cause(err), ShouldEqual, ErrVersion)
	})

	Convey("an empty version is taken as current", t, func() {
		_, err := Parse([]byte("version: \"\"\n"))
		So(err, ShouldBeNil)
	})
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]func(c *RacerConfig){
		"unknown policy":        func(c *RacerConfig) { c.Drive.Policy = "hover" },
		"deadzone of one":       func(c *RacerConfig) { c.Drive.Deadzone = 1 },
		"empty ladder":          func(c *RacerConfig) { c.Drive.Levels = nil },
		"descending ladder":     func(c *RacerConfig) { c.Drive.Levels = []int{100, 50} },
		"level over 100":        func(c *RacerConfig) { c.Drive.Levels = []int{50, 120} },
		"level under min speed": func(c *RacerConfig) { c.Drive.Levels = []int{10, 50} },
		"initial out of range":  func(c *RacerConfig) { c.Drive.Initial = 3 },
		"zero tick rate":        func(c *RacerConfig) { c.Drive.TickRate = 0 },
		"tick rate too high":    func(c *RacerConfig) { c.Drive.TickRate = 2000000000 },
		"zero duration":         func(c *RacerConfig) { c.Drive.DurationTicks = 0 },
		"unknown input":         func(c *RacerConfig) { c.Input.Kind = "mouse" },
		"unknown link":          func(c *RacerConfig) { c.Link.Kind = "wifi" },
		"websocket without url": func(c *RacerConfig) { c.Link.Kind = "websocket" },
		"serial without baud": func(c *RacerConfig) {
			c.Link.Kind = "serial"
			c.Link.Serial.Baud = 0
		},
	}

	Convey("invalid configs are rejected", t, func() {
		for name, breakIt := range cases {
			Convey(name, func() {
				config := Default()
				breakIt(&config)
				So(errors.Cause(config.Validate()), ShouldEqual, ErrInvalid)
			})
		}
	})
}

func TestConfigTickBounds(t *testing.T) {
	Convey("a tick rate that rounds the interval to zero is refused", t, func() {
		_, err := Parse([]byte("drive:\n  tick_rate: 2000000000\n"))
		So(errors.Cause(err), ShouldEqual, ErrInvalid)
	})

	Convey("a zero duration is refused", t, func() {
		_, err := Parse([]byte("drive:\n  duration: 0\n"))
		So(errors.Cause(err), ShouldEqual, ErrInvalid)
	})

	Convey("the fastest allowed rate still ticks", t, func() {
		config, err := Parse([]byte("drive:\n  tick_rate: 1000\n"))
		So(err, ShouldBeNil)
		So(config.Drive.Interval(), ShouldEqual, time.Millisecond)
	})
}

func TestConfigLoad(t *testing.T) {
	Convey("given a temp dir", t, func() {
		dir, err := ioutil.TempDir("", "racer-config")
		So(err, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })

		Convey("a missing file yields the defaults", func() {
			config, err := Load(filepath.Join(dir, "absent.yaml"))
			So(err, ShouldBeNil)
			So(config, ShouldResemble, Default())
		})

		Convey("a written file is loaded", func() {
			filename := filepath.Join(dir, "racer.yaml")
			So(ioutil.WriteFile(filename, []byte(testYaml), 0644), ShouldBeNil)

			config, err := Load(filename)
			So(err, ShouldBeNil)
			So(config.Link.Kind, ShouldEqual, "websocket")
		})

		Convey("a broken file names the file", func() {
			filename := filepath.Join(dir, "broken.yaml")
			So(ioutil.WriteFile(filename, []byte("drive: [\n"), 0644), ShouldBeNil)

			_, err := Load(filename)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "broken.yaml")
		})
	})
}
