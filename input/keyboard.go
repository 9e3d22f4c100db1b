package input

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/silviot/Racer/drive"
	"golang.org/x/term"
)

const DEFAULT_HOLD = 300 * time.Millisecond

type key uint8

const (
	keyNone key = iota
	keyForward
	keyBack
	keyLeft
	keyRight
	keyStop
	keyLevelUp
	keyLevelDown
	keyQuit
)

const (
	ctrlC = 0x03
	esc   = 0x1b
)

var keyMap = map[byte]key{
	'w': keyForward, 'W': keyForward,
	's': keyBack, 'S': keyBack,
	'a': keyLeft, 'A': keyLeft,
	'd': keyRight, 'D': keyRight,
	' ': keyStop, 'x': keyStop, 'X': keyStop,
	'+': keyLevelUp, '=': keyLevelUp,
	'-': keyLevelDown,
	'q': keyQuit, 'Q': keyQuit, ctrlC: keyQuit,
}

// arrow keys arrive as ESC [ A..D
var arrowMap = map[byte]key{
	'A': keyForward,
	'B': keyBack,
	'C': keyRight,
	'D': keyLeft,
}

// decoder splits a raw terminal byte stream into keys.
type decoder struct {
	state int // bytes of an escape sequence seen so far
}

func (d *decoder) feed(b byte) key {
	switch d.state {
	case 1:
		if b == '[' || b == 'O' {
			d.state = 2
			return keyNone
		}
		d.state = 0
	case 2:
		d.state = 0
		return arrowMap[b]
	}

	if b == esc {
		d.state = 1
		return keyNone
	}
	return keyMap[b]
}

// Keyboard emulates a gamepad from key presses. Terminals only report presses,
// so a key counts as held for Hold after its last press or auto-repeat.
type Keyboard struct {
	Hold time.Duration

	now     func() time.Time
	lock    sync.Mutex
	dec     decoder
	seen    map[key]time.Time
	dpad    []int8
	neutral bool
	quit    bool
	err     error
	restore func() error
}

func newKeyboard(hold time.Duration, now func() time.Time) *Keyboard {
	if hold <= 0 {
		hold = DEFAULT_HOLD
	}
	return &Keyboard{
		Hold: hold,
		now:  now,
		seen: make(map[key]time.Time),
	}
}

// NewKeyboard reads keys from r until it fails.
func NewKeyboard(r io.Reader, hold time.Duration) *Keyboard {
	k := newKeyboard(hold, time.Now)
	go k.listen(r)
	return k
}

// CheckTerminal reports ErrNoInputDevice unless stdin is a terminal.
func CheckTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.Wrap(ErrNoInputDevice, "stdin is not a terminal")
	}
	return nil
}

// OpenTerminal switches stdin to raw mode and reads keys from it. Close
// restores the terminal.
func OpenTerminal(hold time.Duration) (*Keyboard, error) {
	if err := CheckTerminal(); err != nil {
		return nil, err
	}

	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "unable to enter raw mode")
	}

	k := NewKeyboard(os.Stdin, hold)
	k.restore = func() error {
		return term.Restore(fd, state)
	}
	return k, nil
}

func (k *Keyboard) listen(r io.Reader) {
	buf := make([]byte, 32)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			k.feed(buf[:n])
		}
		if err != nil {
			k.lock.Lock()
			k.err = errors.Wrap(err, "keyboard read failed")
			k.lock.Unlock()
			return
		}
	}
}

func (k *Keyboard) feed(p []byte) {
	k.lock.Lock()
	defer k.lock.Unlock()

	t := k.now()
	for _, b := range p {
		switch pressed := k.dec.feed(b); pressed {
		case keyNone:
		case keyQuit:
			k.quit = true
		case keyLevelUp:
			k.dpad = append(k.dpad, 1)
		case keyLevelDown:
			k.dpad = append(k.dpad, -1)
		default:
			k.seen[pressed] = t
		}
	}
}

func (k *Keyboard) held(which key, t time.Time) bool {
	last, ok := k.seen[which]
	return ok && t.Sub(last) < k.Hold
}

// Poll builds a sample from the keys held right now. Each queued level key is
// shown for one poll and followed by a released dpad, so every press counts.
func (k *Keyboard) Poll() (s drive.Sample, err error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	if k.quit {
		return drive.Sample{Quit: true}, nil
	}
	if k.err != nil {
		return s, k.err
	}

	t := k.now()
	if k.held(keyForward, t) {
		s.Y--
	}
	if k.held(keyBack, t) {
		s.Y++
	}
	if k.held(keyLeft, t) {
		s.X--
	}
	if k.held(keyRight, t) {
		s.X++
	}
	s.Stop = k.held(keyStop, t)

	if k.neutral {
		k.neutral = false
	} else if len(k.dpad) > 0 {
		s.Dpad.Y = k.dpad[0]
		k.dpad = k.dpad[1:]
		k.neutral = true
	}
	return
}

func (k *Keyboard) Close() error {
	if k.restore == nil {
		return nil
	}
	restore := k.restore
	k.restore = nil
	return restore()
}
