package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"
	"github.com/silviot/Racer/config"
	"github.com/silviot/Racer/drive"
	"github.com/silviot/Racer/link"
)

// pickPeripheral lists the scan results and asks for one by index until the
// answer is valid.
func pickPeripheral(found []link.Peripheral) (link.Peripheral, error) {
	shell := ishell.New()
	defer shell.Close()

	shell.Println("Vehicles found:")
	for i, p := range found {
		shell.Printf("%d: %s\n", i, p)
	}

	for {
		shell.Print("Select a vehicle: ")
		line, err := shell.ReadLineErr()
		if err != nil {
			return link.Peripheral{}, errors.Wrap(link.ErrNoPeripheral, "no vehicle selected")
		}
		if i, ok := parseChoice(line, len(found)); ok {
			return found[i], nil
		}
		shell.Println("Invalid choice, try again.")
	}
}

func parseChoice(line string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// devShell drives the vehicle one command at a time.
type devShell struct {
	tx     drive.Transport
	mixer  drive.Mixer
	levels *drive.SpeedLevels
}

func newDevShell(cfg config.RacerConfig, tx drive.Transport) *devShell {
	d := cfg.Drive
	return &devShell{
		tx:     tx,
		mixer:  drive.Mixer{Policy: d.MixingPolicy(), Tuning: d.Tuning()},
		levels: drive.NewSpeedLevels(d.Levels, d.Initial),
	}
}

func (d *devShell) send(cmd drive.Command) (frame drive.Frame, err error) {
	if err = cmd.Validate(); err != nil {
		return
	}
	frame = cmd.Encode()
	err = d.tx.WriteFrame(context.Background(), frame)
	return
}

// parseSend reads "<speed a> <dir a> <speed b> <dir b> <duration>" with
// directions given as 1/0 or fwd/bwd.
func parseSend(args []string) (cmd drive.Command, err error) {
	if len(args) != 5 {
		return cmd, errors.New("usage: send <speed a> <dir a> <speed b> <dir b> <duration>")
	}

	var nums [3]int
	for i, arg := range []string{args[0], args[2], args[4]} {
		if nums[i], err = strconv.Atoi(arg); err != nil {
			return cmd, errors.Wrapf(err, "bad number %q", arg)
		}
		if nums[i] < 0 || nums[i] > 255 {
			return cmd, errors.Errorf("%d does not fit in a byte", nums[i])
		}
	}

	dirA, err := parseDir(args[1])
	if err != nil {
		return
	}
	dirB, err := parseDir(args[3])
	if err != nil {
		return
	}

	cmd = drive.Command{
		SpeedA:   uint8(nums[0]),
		DirA:     dirA,
		SpeedB:   uint8(nums[1]),
		DirB:     dirB,
		Duration: uint8(nums[2]),
	}
	return cmd, cmd.Validate()
}

func parseDir(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "f", "fwd", "forward":
		return true, nil
	case "0", "b", "bwd", "back", "backward":
		return false, nil
	}
	return false, errors.Errorf("bad direction %q", s)
}

// parseStick reads "<x> <y> [level]" for drive and frame.
func (d *devShell) parseStick(args []string) (s drive.Sample, level int, err error) {
	if len(args) < 2 || len(args) > 3 {
		return s, 0, errors.New("usage: <x> <y> [level]")
	}
	if s.X, err = strconv.ParseFloat(args[0], 64); err != nil {
		return
	}
	if s.Y, err = strconv.ParseFloat(args[1], 64); err != nil {
		return
	}

	level = d.levels.Level()
	if len(args) == 3 {
		level, err = strconv.Atoi(args[2])
	}
	return
}

func (d *devShell) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "send",
			Help: "send <speed a> <dir a> <speed b> <dir b> <duration>",
			Func: func(c *ishell.Context) {
				cmd, err := parseSend(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				frame, err := d.send(cmd)
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Sent [%s] %s\n", frame, cmd)
			},
		},
		{
			Name: "stop",
			Help: "stop the vehicle",
			Func: func(c *ishell.Context) {
				if _, err := d.send(drive.Stop); err != nil {
					c.Err(err)
					return
				}
				c.Println("Stopped")
			},
		},
		{
			Name: "drive",
			Help: "drive <x> <y> [level], stick values in [-1, 1]",
			Func: func(c *ishell.Context) {
				s, level, err := d.parseStick(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				cmd := d.mixer.Translate(s, level)
				frame, err := d.send(cmd)
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Sent [%s] %s\n", frame, cmd)
			},
		},
		{
			Name: "frame",
			Help: "frame <x> <y> [level], show the frame without sending it",
			Func: func(c *ishell.Context) {
				s, level, err := d.parseStick(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				cmd := d.mixer.Translate(s, level)
				c.Printf("[%s] %s\n", cmd.Encode(), cmd)
			},
		},
		{
			Name:      "policy",
			Help:      "policy [tank|differential]",
			Completer: func([]string) []string { return []string{"tank", "differential"} },
			Func: func(c *ishell.Context) {
				if len(c.Args) > 0 {
					p, err := drive.ParsePolicy(c.Args[0])
					if err != nil {
						c.Err(err)
						return
					}
					d.mixer.Policy = p
				}
				c.Println("Policy:", d.mixer.Policy)
			},
		},
		{
			Name:      "level",
			Help:      "level [up|down]",
			Completer: func([]string) []string { return []string{"up", "down"} },
			Func: func(c *ishell.Context) {
				if len(c.Args) > 0 {
					switch c.Args[0] {
					case "up":
						d.levels.Up()
					case "down":
						d.levels.Down()
					default:
						c.Err(errors.Errorf("bad level step %q", c.Args[0]))
						return
					}
				}
				c.Printf("Speed level %d%%\n", d.levels.Level())
			},
		},
	}
}

// runShell opens the link and a development shell on top of it. The vehicle
// is stopped when the shell exits.
func runShell(ctx context.Context, cfg config.RacerConfig, opts Options) error {
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

	dev := newDevShell(cfg, tx)
	shell := ishell.New()
	shell.Println("Racer development shell")
	for _, cmd := range dev.commands() {
		shell.AddCmd(cmd)
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "devices",
		Help: "scan and remember a vehicle for the next session",
		Func: func(c *ishell.Context) {
			found, err := link.Scan(ctx, cfg.Link.ScanTimeout)
			if err != nil {
				c.Err(err)
				return
			}

			options := make([]string, len(found))
			for i, p := range found {
				options[i] = fmt.Sprintf("%s (%d dBm)", p, p.RSSI)
			}
			choice := c.MultiChoice(options, "Remember which vehicle?")
			if choice < 0 {
				return
			}

			if _, err := db.Remember(found[choice].Address, found[choice].Name); err != nil {
				c.Err(err)
				return
			}
			c.Println("Saved", found[choice])
		},
	})

	go func() {
		<-ctx.Done()
		shell.Stop()
	}()
	shell.Run()
	shell.Close()

	_, err = dev.send(drive.Stop)
	return err
}
