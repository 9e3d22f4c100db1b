package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/silviot/Racer/drive"
	"gopkg.in/yaml.v2"
)

const (
	CONFIG_VERSION = "~1.0"
	MAX_TICK_RATE  = 1000 // Hz
	CURRENT        = "1.0.0"

	DEFAULT_CHARACTERISTIC = "23408888-1f40-4cd8-9b89-ca8d45f8a5b0"
)

var (
	ErrVersion = errors.New("unsupported config version")
	ErrInvalid = errors.New("invalid config")
)

// RacerConfig is the on-disk configuration. Every field has a default so an
// absent file is a valid config.
type RacerConfig struct {
	Version string
	Drive   DriveConfig
	Input   InputConfig
	Link    LinkConfig
	Log     LogConfig
}

type DriveConfig struct {
	Policy   string
	Levels   []int `yaml:"levels,flow"`
	Initial  int   // index into levels, -1 for the top
	TickRate int   `yaml:"tick_rate"` // Hz

	Deadzone      float64
	MaxSpeed      int   `yaml:"max_speed"`
	MaxMixer      int   `yaml:"max_mixer"`
	TurnBoost     int   `yaml:"turn_boost"`
	MinSpeed      int   `yaml:"min_speed"`
	DurationTicks uint8 `yaml:"duration"`
}

type InputConfig struct {
	Kind     string // joystick or keyboard
	Joystick JoystickConfig
	Keyboard KeyboardConfig
}

// JoystickConfig names evdev codes by their kernel names, e.g. ABS_X or
// BTN_SOUTH.
type JoystickConfig struct {
	Path string // empty picks the first gamepad found
	X    string
	Y    string
	HatX string `yaml:"hat_x"`
	HatY string `yaml:"hat_y"`
	Stop string
	Quit string
}

type KeyboardConfig struct {
	Hold time.Duration
}

type LinkConfig struct {
	Kind           string // ble, serial, websocket or dryrun
	Characteristic string
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	Serial         SerialConfig
	Websocket      WebsocketConfig
}

type SerialConfig struct {
	Port string
	Baud int
}

type WebsocketConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	File       string
	MaxSize    int `yaml:"max_size"` // megabytes
	MaxBackups int `yaml:"max_backups"`
	MaxAge     int `yaml:"max_age"` // days
}

var (
	inputKinds = map[string]bool{"joystick": true, "keyboard": true}
	linkKinds  = map[string]bool{"ble": true, "serial": true, "websocket": true, "dryrun": true}
)

func Default() RacerConfig {
	t := drive.DefaultTuning()
	return RacerConfig{
		Version: CURRENT,
		Drive: DriveConfig{
			Policy:        drive.PolicyTank.String(),
			Levels:        append([]int(nil), drive.DefaultLevels...),
			Initial:       -1,
			TickRate:      drive.TICK_RATE,
			Deadzone:      t.Deadzone,
			MaxSpeed:      t.MaxSpeed,
			MaxMixer:      t.MaxMixer,
			TurnBoost:     t.TurnBoost,
			MinSpeed:      t.MinSpeed,
			DurationTicks: t.DurationTicks,
		},
		Input: InputConfig{
			Kind: "joystick",
			Joystick: JoystickConfig{
				X:    "ABS_X",
				Y:    "ABS_Y",
				HatX: "ABS_HAT0X",
				HatY: "ABS_HAT0Y",
				Stop: "BTN_SOUTH",
				Quit: "BTN_EAST",
			},
			Keyboard: KeyboardConfig{Hold: 300 * time.Millisecond},
		},
		Link: LinkConfig{
			Kind:           "ble",
			Characteristic: DEFAULT_CHARACTERISTIC,
			ScanTimeout:    10 * time.Second,
			Serial:         SerialConfig{Port: "/dev/ttyUSB0", Baud: 115200},
		},
		Log: LogConfig{
			File:       "racer.log",
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads filename over the defaults. A missing file is not an error.
func Load(filename string) (config RacerConfig, err error) {
	config = Default()

	yamlFile, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return config, errors.Wrapf(err, "unable to read %s", filename)
	}

	config, err = Parse(yamlFile)
	if err != nil {
		return config, errors.Wrapf(err, "unable to load %s", filename)
	}
	return
}

// Parse decodes YAML over the defaults, checks the version and validates.
func Parse(data []byte) (config RacerConfig, err error) {
	config = Default()
	if err = yaml.Unmarshal(data, &config); err != nil {
		return
	}

	if err = config.checkVersion(); err != nil {
		return
	}

	err = config.Validate()
	return
}

func (c RacerConfig) checkVersion() error {
	if c.Version == "" {
		return nil
	}

	version, err := semver.NewVersion(c.Version)
	if err != nil {
		return errors.Wrapf(ErrVersion, "%q is not a version", c.Version)
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(version) {
		return errors.Wrapf(ErrVersion, "got %s, require %s", c.Version, CONFIG_VERSION)
	}
	return nil
}

func (c RacerConfig) Validate() error {
	d := c.Drive

	if _, err := drive.ParsePolicy(d.Policy); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if d.Deadzone < 0 || d.Deadzone >= 1 {
		return invalid("deadzone %v outside [0,1)", d.Deadzone)
	}
	if len(d.Levels) == 0 {
		return invalid("no speed levels")
	}
	for i, level := range d.Levels {
		if level > drive.MAX_WHEEL_SPEED || level < d.MinSpeed {
			return invalid("speed level %d outside [%d,%d]", level, d.MinSpeed, drive.MAX_WHEEL_SPEED)
		}
		if i > 0 && level <= d.Levels[i-1] {
			return invalid("speed levels must be ascending")
		}
	}
	if d.Initial < -1 || d.Initial >= len(d.Levels) {
		return invalid("initial level %d outside the ladder", d.Initial)
	}
	if d.TickRate < 1 || d.TickRate > MAX_TICK_RATE {
		return invalid("tick rate %d outside [1,%d]", d.TickRate, MAX_TICK_RATE)
	}
	if d.DurationTicks < 1 {
		return invalid("duration must be at least one tick")
	}
	if d.MinSpeed < 0 || d.MaxSpeed < 0 || d.MaxMixer < 0 || d.TurnBoost < 0 {
		return invalid("negative tuning value")
	}

	if !inputKinds[c.Input.Kind] {
		return invalid("unknown input %q", c.Input.Kind)
	}
	if !linkKinds[c.Link.Kind] {
		return invalid("unknown link %q", c.Link.Kind)
	}
	if c.Link.Kind == "serial" && c.Link.Serial.Baud <= 0 {
		return invalid("serial baud must be positive")
	}
	if c.Link.Kind == "websocket" && c.Link.Websocket.URL == "" {
		return invalid("websocket link needs a url")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrap(ErrInvalid, fmt.Sprintf(format, args...))
}

// MixingPolicy returns the validated mixing policy.
func (d DriveConfig) MixingPolicy() drive.Policy {
	p, _ := drive.ParsePolicy(d.Policy)
	return p
}

func (d DriveConfig) Tuning() drive.Tuning {
	return drive.Tuning{
		Deadzone:      d.Deadzone,
		MaxSpeed:      d.MaxSpeed,
		MaxMixer:      d.MaxMixer,
		TurnBoost:     d.TurnBoost,
		MinSpeed:      d.MinSpeed,
		DurationTicks: d.DurationTicks,
	}
}

func (d DriveConfig) Interval() time.Duration {
	return time.Second / time.Duration(d.TickRate)
}
