package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/silviot/Racer/config"
	"github.com/silviot/Racer/drive"
	"github.com/silviot/Racer/input"
	"github.com/silviot/Racer/link"
	"github.com/silviot/Racer/store"
)

type vehicleLink interface {
	drive.Transport
	Close() error
}

type inputDevice interface {
	drive.Input
	Close() error
}

type knownPeripherals interface {
	Last() (store.Peripheral, error)
	Remember(addr, name string) (store.Peripheral, error)
}

// resolver decides which vehicle to connect to: an explicit address, the
// last one used, or a fresh scan and pick.
type resolver struct {
	db   knownPeripherals
	scan func(ctx context.Context) ([]link.Peripheral, error)
	pick func([]link.Peripheral) (link.Peripheral, error)
}

func (r resolver) resolve(ctx context.Context, opts Options) (addr string, err error) {
	if opts.Addr != "" {
		return opts.Addr, nil
	}

	if !opts.Scan {
		p, err := r.db.Last()
		if err == nil {
			fmt.Printf("Using saved vehicle %s (%s)\n", p.Address, p.Name)
			return p.Address, nil
		}
		if err != store.ErrEmpty {
			return "", err
		}
	}

	fmt.Println("Scanning for vehicles...")
	found, err := r.scan(ctx)
	if err != nil {
		return "", err
	}

	p, err := r.pick(found)
	if err != nil {
		return "", err
	}
	return p.Address, nil
}

func openStore(opts Options) (*store.Store, error) {
	db, err := store.Open(ENV.DB)
	if err != nil {
		return nil, err
	}

	if opts.Forget {
		if err := db.Forget(""); err != nil {
			db.Close()
			return nil, err
		}
		fmt.Println("Forgot saved vehicles")
	}
	return db, nil
}

func openLink(ctx context.Context, cfg config.RacerConfig, opts Options, db *store.Store) (vehicleLink, error) {
	c := cfg.Link

	switch c.Kind {
	case "dryrun":
		return link.NewDryRun(log.Default()), nil
	case "serial":
		return link.OpenSerial(c.Serial.Port, c.Serial.Baud)
	case "websocket":
		return link.DialWebsocket(ctx, c.Websocket.URL)
	}

	r := resolver{
		db: db,
		scan: func(ctx context.Context) ([]link.Peripheral, error) {
			return link.Scan(ctx, c.ScanTimeout)
		},
		pick: pickPeripheral,
	}
	addr, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Connecting to %s...\n", addr)
	ble, err := link.DialBLE(ctx, addr, c.Characteristic, c.ScanTimeout)
	if err != nil {
		return nil, err
	}
	if _, err := db.Remember(ble.Addr, ble.Name); err != nil {
		log.Printf("unable to save %s: %v", ble.Addr, err)
	}
	fmt.Printf("Connected to %s\n", ble.Addr)
	return ble, nil
}

// checkInput makes sure the input device is there before any vehicle work.
// The joystick is opened right away; the keyboard only claims the terminal
// in openInput, once prompts are done with it.
func checkInput(cfg config.RacerConfig) (inputDevice, error) {
	if cfg.Input.Kind == "keyboard" {
		return nil, input.CheckTerminal()
	}
	j, err := input.OpenJoystick(cfg.Input.Joystick)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// openInput finishes what checkInput started and prints the controls.
func openInput(cfg config.RacerConfig, in inputDevice) (inputDevice, error) {
	if in != nil {
		fmt.Print(joystickBanner)
		return in, nil
	}

	k, err := input.OpenTerminal(cfg.Input.Keyboard.Hold)
	if err != nil {
		return nil, err
	}
	// the terminal is raw now
	fmt.Print(strings.ReplaceAll(keyboardBanner, "\n", "\r\n"))
	return k, nil
}

const keyboardBanner = `Keyboard controls:
  w / up      forward
  s / down    backward
  a / left    turn left
  d / right   turn right
  space / x   emergency stop (hold)
  + / -       speed level up / down
  q / Ctrl-C  quit
`

const joystickBanner = `Joystick controls:
  left stick  drive
  dpad        speed level up / down
  cross       emergency stop (hold)
  circle      quit
`

func newLoop(cfg config.RacerConfig, in drive.Input, tx drive.Transport) *drive.Loop {
	d := cfg.Drive
	mixer := drive.Mixer{Policy: d.MixingPolicy(), Tuning: d.Tuning()}

	loop := drive.NewLoop(in, tx, mixer, drive.NewSpeedLevels(d.Levels, d.Initial))
	loop.Interval = d.Interval()
	return loop
}

// runDrive connects the vehicle and the input and runs the control loop until
// the operator quits.
func runDrive(ctx context.Context, cfg config.RacerConfig, opts Options) error {
	joystick, err := checkInput(cfg)
	if err != nil {
		return err
	}
	if joystick != nil {
		defer joystick.Close()
	}

	db, err := openStore(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := openLink(ctx, cfg, opts, db)
	if err != nil {
		return err
	}
	defer tx.Close()

	in, err := openInput(cfg, joystick)
	if err != nil {
		return err
	}
	defer in.Close()

	loop := newLoop(cfg, in, tx)
	err = loop.Run(ctx)
	in.Close()

	fmt.Print(stopReport(loop))
	return sessionResult(err)
}

func stopReport(loop *drive.Loop) string {
	if loop.EmergencyStopped() {
		return fmt.Sprintf("\r\nStopped after %d ticks, emergency stop held\r\n", loop.Ticks())
	}
	return fmt.Sprintf("\r\nStopped after %d ticks\r\n", loop.Ticks())
}

// sessionResult treats an interrupted session whose final stop went out as a
// normal exit.
func sessionResult(err error) error {
	var serr *drive.SessionError
	if errors.As(err, &serr) && serr.StopErr == nil && errors.Is(serr.Cause, context.Canceled) {
		return nil
	}
	return err
}

// simulatorRouter mounts the simulated vehicle at /ws/frames.
func simulatorRouter(sim *link.Simulator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/ws", func(r chi.Router) {
		r.Get("/frames", sim.ServeHTTP)
	})
	return r
}

func serveSimulator(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: simulatorRouter(&link.Simulator{Log: log.Default()}),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	fmt.Printf("Simulated vehicle listening on ws://%s/ws/frames\n", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
