package input

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/holoplot/go-evdev"
	"github.com/pkg/errors"
	"github.com/silviot/Racer/config"
	"github.com/silviot/Racer/drive"
)

var absCodes = map[string]evdev.EvCode{
	"ABS_X":     evdev.ABS_X,
	"ABS_Y":     evdev.ABS_Y,
	"ABS_Z":     evdev.ABS_Z,
	"ABS_RX":    evdev.ABS_RX,
	"ABS_RY":    evdev.ABS_RY,
	"ABS_RZ":    evdev.ABS_RZ,
	"ABS_HAT0X": evdev.ABS_HAT0X,
	"ABS_HAT0Y": evdev.ABS_HAT0Y,
}

var keyCodes = map[string]evdev.EvCode{
	"BTN_SOUTH":  evdev.BTN_SOUTH,
	"BTN_EAST":   evdev.BTN_EAST,
	"BTN_NORTH":  evdev.BTN_NORTH,
	"BTN_WEST":   evdev.BTN_WEST,
	"BTN_TL":     evdev.BTN_TL,
	"BTN_TR":     evdev.BTN_TR,
	"BTN_SELECT": evdev.BTN_SELECT,
	"BTN_START":  evdev.BTN_START,
	"BTN_MODE":   evdev.BTN_MODE,
}

// Mapping holds the resolved evdev codes for each control.
type Mapping struct {
	X, Y       evdev.EvCode
	HatX, HatY evdev.EvCode
	Stop, Quit evdev.EvCode
}

func NewMapping(c config.JoystickConfig) (m Mapping, err error) {
	abs := func(name string) evdev.EvCode {
		code, ok := absCodes[name]
		if !ok && err == nil {
			err = errors.Wrapf(ErrUnknownCode, "axis %q", name)
		}
		return code
	}
	key := func(name string) evdev.EvCode {
		code, ok := keyCodes[name]
		if !ok && err == nil {
			err = errors.Wrapf(ErrUnknownCode, "button %q", name)
		}
		return code
	}

	m = Mapping{
		X:    abs(c.X),
		Y:    abs(c.Y),
		HatX: abs(c.HatX),
		HatY: abs(c.HatY),
		Stop: key(c.Stop),
		Quit: key(c.Quit),
	}
	return
}

type eventSource interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// Joystick reads a gamepad through evdev. A reader goroutine folds events into
// the current state and Poll hands out snapshots of it.
type Joystick struct {
	dev     eventSource
	mapping Mapping
	ranges  map[evdev.EvCode]evdev.AbsInfo

	lock   sync.Mutex
	sample drive.Sample
	err    error
	closed bool
}

// OpenJoystick opens the configured device, or the first gamepad when no path
// is set.
func OpenJoystick(c config.JoystickConfig) (*Joystick, error) {
	mapping, err := NewMapping(c)
	if err != nil {
		return nil, err
	}

	path := c.Path
	if path == "" {
		if path, err = FindJoystick(mapping); err != nil {
			return nil, err
		}
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}

	ranges, err := dev.AbsInfos()
	if err != nil {
		dev.Close()
		return nil, errors.Wrapf(err, "unable to read axis ranges of %s", path)
	}

	j := newJoystick(dev, mapping, ranges)
	go j.listen()
	return j, nil
}

// FindJoystick returns the path of the first device reporting both stick axes
// and the dpad.
func FindJoystick(m Mapping) (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", errors.Wrap(err, "unable to list input devices")
	}

	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		ranges, err := dev.AbsInfos()
		dev.Close()
		if err != nil {
			continue
		}
		if hasAxes(ranges, m.X, m.Y, m.HatY) {
			return p.Path, nil
		}
	}
	return "", ErrNoInputDevice
}

func hasAxes(ranges map[evdev.EvCode]evdev.AbsInfo, codes ...evdev.EvCode) bool {
	for _, code := range codes {
		if _, ok := ranges[code]; !ok {
			return false
		}
	}
	return true
}

func newJoystick(dev eventSource, m Mapping, ranges map[evdev.EvCode]evdev.AbsInfo) *Joystick {
	j := &Joystick{
		dev:     dev,
		mapping: m,
		ranges:  ranges,
	}
	// start from the resting position the device reports
	for code, info := range ranges {
		j.apply(&evdev.InputEvent{Type: evdev.EV_ABS, Code: code, Value: info.Value})
	}
	return j
}

func (j *Joystick) listen() {
	for {
		ev, err := j.dev.ReadOne()

		j.lock.Lock()
		if err != nil {
			if !j.closed {
				j.err = errors.Wrap(err, "joystick read failed")
			}
			j.lock.Unlock()
			return
		}
		j.apply(ev)
		j.lock.Unlock()
	}
}

// apply folds one event into the sample. The caller holds the lock, or owns
// the joystick exclusively.
func (j *Joystick) apply(ev *evdev.InputEvent) {
	m := j.mapping
	s := &j.sample

	switch ev.Type {
	case evdev.EV_ABS:
		switch ev.Code {
		case m.X:
			s.X = j.normalize(ev.Code, ev.Value)
		case m.Y:
			s.Y = j.normalize(ev.Code, ev.Value)
		case m.HatX:
			s.Dpad.X = hat(ev.Value)
		case m.HatY:
			// evdev reports up as negative
			s.Dpad.Y = -hat(ev.Value)
		}
	case evdev.EV_KEY:
		switch ev.Code {
		case m.Stop:
			s.Stop = ev.Value != 0
		case m.Quit:
			if ev.Value != 0 {
				s.Quit = true
			}
		}
	}
}

// normalize maps a raw axis reading onto [-1, 1] using the range the device
// reports for it.
func (j *Joystick) normalize(code evdev.EvCode, value int32) float64 {
	info, ok := j.ranges[code]
	if !ok || info.Maximum <= info.Minimum {
		return 0
	}
	span := float64(info.Maximum) - float64(info.Minimum)
	v := (float64(value)-float64(info.Minimum))/span*2 - 1
	return mgl64.Clamp(v, -1, 1)
}

func hat(v int32) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Poll returns the latest state. Once the device fails every poll returns the
// error.
func (j *Joystick) Poll() (drive.Sample, error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.err != nil {
		return drive.Sample{}, j.err
	}
	return j.sample, nil
}

func (j *Joystick) Close() error {
	j.lock.Lock()
	closed := j.closed
	j.closed = true
	j.lock.Unlock()

	if closed {
		return nil
	}
	return j.dev.Close()
}
