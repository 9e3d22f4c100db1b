package drive

import (
	"context"
	"log"
	"time"
)

const (
	TICK_RATE    = 20 // Hz
	STOP_TIMEOUT = 500 * time.Millisecond
)

// Input supplies one sample per tick.
type Input interface {
	Poll() (Sample, error)
}

// Transport delivers an encoded frame to the vehicle. Any error is fatal to
// the session.
type Transport interface {
	WriteFrame(ctx context.Context, frame Frame) error
}

// Loop is the fixed-rate control loop. It owns the speed levels and the
// emergency stop latch; nothing else may touch them while Run is active.
type Loop struct {
	Input     Input
	Transport Transport
	Mixer     Mixer
	Levels    *SpeedLevels
	Clock     Clock
	Log       *log.Logger

	Interval    time.Duration
	StopTimeout time.Duration // bound on the final stop command

	estop EmergencyStop
	ticks uint64
}

func NewLoop(in Input, tx Transport, mixer Mixer, levels *SpeedLevels) *Loop {
	return &Loop{
		Input:       in,
		Transport:   tx,
		Mixer:       mixer,
		Levels:      levels,
		Clock:       SystemClock{},
		Log:         log.Default(),
		Interval:    time.Second / TICK_RATE,
		StopTimeout: STOP_TIMEOUT,
	}
}

// Run ticks until quit, a fatal input or transport error, or ctx is done.
// A requested quit returns nil; every other exit returns a *SessionError
// after one best-effort stop command.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.Clock.NewTicker(l.Interval)
	defer ticker.Stop()

	l.Log.Printf("control loop started: policy %s, level %d%%, %s per tick", l.Mixer.Policy, l.Levels.Level(), l.Interval)

	for {
		done, err := l.Step(ctx)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			l.Log.Println("control loop cancelled, stopping vehicle")
			return l.abort(ctx.Err())
		case <-ticker.C():
		}
	}
}

// Step runs a single tick: poll, arbitrate, mix, encode, send.
func (l *Loop) Step(ctx context.Context) (done bool, err error) {
	l.ticks++

	sample, err := l.Input.Poll()
	if err != nil {
		l.Log.Printf("input failed: %v", err)
		return true, l.abort(err)
	}

	if sample.Quit {
		l.Log.Println("quit requested, stopping vehicle")
		if err := l.finalStop(); err != nil {
			return true, &SessionError{StopErr: err}
		}
		return true, nil
	}

	engaged, changed := l.estop.Update(sample.Stop)
	if changed {
		if engaged {
			l.Log.Println("emergency stop engaged")
		} else {
			l.Log.Println("emergency stop released")
		}
	}

	cmd := Stop
	if !engaged {
		if l.Levels.Observe(sample.Dpad) {
			l.Log.Printf("speed level %d%%", l.Levels.Level())
		}
		cmd = l.Mixer.Translate(sample, l.Levels.Level())
	}

	if err := l.send(ctx, cmd); err != nil {
		l.Log.Printf("transport failed on tick %d: %v", l.ticks, err)
		return true, l.abort(err)
	}
	return false, nil
}

// Ticks is the number of ticks run so far.
func (l *Loop) Ticks() uint64 {
	return l.ticks
}

func (l *Loop) EmergencyStopped() bool {
	return l.estop.Engaged()
}

func (l *Loop) send(ctx context.Context, cmd Command) error {
	return l.Transport.WriteFrame(ctx, cmd.Encode())
}

// finalStop runs on its own context so it is still attempted after the
// session context has been cancelled.
func (l *Loop) finalStop() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.StopTimeout)
	defer cancel()

	return l.send(ctx, Stop)
}

func (l *Loop) abort(cause error) error {
	stopErr := l.finalStop()
	if stopErr != nil {
		l.Log.Printf("final stop failed: %v", stopErr)
	}
	return &SessionError{Cause: cause, StopErr: stopErr}
}
