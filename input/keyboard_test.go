package input

import (
	"io"
	"testing"
	"time"

	"github.com/silviot/Racer/drive"
	. "github.com/smartystreets/goconvey/convey"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func poll(k *Keyboard) drive.Sample {
	s, err := k.Poll()
	So(err, ShouldBeNil)
	return s
}

func TestKeyboardDecoding(t *testing.T) {
	Convey("letters and arrows decode to the same keys", t, func() {
		var d decoder
		So(d.feed('w'), ShouldEqual, keyForward)
		So(d.feed(ctrlC), ShouldEqual, keyQuit)

		for _, b := range []byte{esc, '['} {
			So(d.feed(b), ShouldEqual, keyNone)
		}
		So(d.feed('D'), ShouldEqual, keyLeft)

		Convey("a bare escape does not eat the next key", func() {
			So(d.feed(esc), ShouldEqual, keyNone)
			So(d.feed('q'), ShouldEqual, keyQuit)
		})
	})
}

func TestKeyboardPoll(t *testing.T) {
	Convey("given a keyboard", t, func() {
		clock := &testClock{t: time.Unix(1000, 0)}
		k := newKeyboard(300*time.Millisecond, clock.now)

		So(poll(k), ShouldResemble, drive.Sample{})

		Convey("a key stays held for the hold window", func() {
			k.feed([]byte("w"))
			So(poll(k).Y, ShouldEqual, -1)

			clock.advance(250 * time.Millisecond)
			So(poll(k).Y, ShouldEqual, -1)

			clock.advance(100 * time.Millisecond)
			So(poll(k).Y, ShouldEqual, 0)
		})

		Convey("auto repeat refreshes the window", func() {
			k.feed([]byte("d"))
			clock.advance(250 * time.Millisecond)
			k.feed([]byte("d"))
			clock.advance(250 * time.Millisecond)
			So(poll(k).X, ShouldEqual, 1)
		})

		Convey("keys combine", func() {
			k.feed([]byte{'w', esc, '[', 'C'})
			s := poll(k)
			So(s.X, ShouldEqual, 1)
			So(s.Y, ShouldEqual, -1)

			k.feed([]byte("s"))
			So(poll(k).Y, ShouldEqual, 0)
		})

		Convey("space holds the emergency stop", func() {
			k.feed([]byte(" "))
			So(poll(k).Stop, ShouldBeTrue)
			clock.advance(time.Second)
			So(poll(k).Stop, ShouldBeFalse)
		})

		Convey("each level key is a separate dpad press", func() {
			k.feed([]byte("--+"))
			var hats []int8
			for i := 0; i < 6; i++ {
				hats = append(hats, poll(k).Dpad.Y)
			}
			So(hats, ShouldResemble, []int8{-1, 0, -1, 0, 1, 0})
		})

		Convey("quit wins over everything", func() {
			k.feed([]byte("wq"))
			So(poll(k), ShouldResemble, drive.Sample{Quit: true})
		})
	})

	Convey("a closed input is an error", t, func() {
		k := newKeyboard(0, time.Now)
		So(k.Hold, ShouldEqual, DEFAULT_HOLD)

		r, w := io.Pipe()
		w.Close()
		k.listen(r)

		_, err := k.Poll()
		So(err, ShouldNotBeNil)
		So(k.Close(), ShouldBeNil)
	})

	Convey("the terminal is restored once", t, func() {
		k := newKeyboard(0, time.Now)
		restored := 0
		k.restore = func() error { restored++; return nil }

		So(k.Close(), ShouldBeNil)
		So(k.Close(), ShouldBeNil)
		So(restored, ShouldEqual, 1)
	})
}
