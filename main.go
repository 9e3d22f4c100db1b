package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v6"
	"github.com/silviot/Racer/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type EnvConfig struct {
	CONFIG string `env:"RACER_CONFIG" envDefault:"racer.yaml"`
	DB     string `env:"RACER_DB" envDefault:"racer.db"`
	DEBUG  bool   `env:"RACER_DEBUG" envDefault:"0"`
	LOG    string `env:"RACER_LOG"`
}

type Options struct {
	Policy string
	Input  string
	Link   string
	Addr   string
	Scan   bool
	Forget bool
	Shell  bool
	Sim    string
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	if err := env.Parse(ENV); err != nil {
		panic(err)
	}
}

func main() {
	configFile := flag.String("config", ENV.CONFIG, "Path to the yaml config")
	policy := flag.String("policy", "", "Mixing policy: tank or differential")
	inputKind := flag.String("input", "", "Input device: joystick or keyboard")
	linkKind := flag.String("link", "", "Vehicle link: ble, serial, websocket or dryrun")
	addr := flag.String("addr", "", "Vehicle address, skipping the saved one")
	scan := flag.Bool("scan", false, "Scan and pick a vehicle even if one is saved")
	forget := flag.Bool("forget", false, "Forget saved vehicles")
	shell := flag.Bool("shell", false, "Open the development shell instead of driving")
	dryRun := flag.Bool("dry-run", false, "Log frames instead of sending them")
	sim := flag.String("sim", "", "Serve a simulated vehicle on ip:port and exit when stopped")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fail(err)
	}

	opts := Options{
		Policy: *policy,
		Input:  *inputKind,
		Link:   *linkKind,
		Addr:   *addr,
		Scan:   *scan,
		Forget: *forget,
		Shell:  *shell,
		Sim:    *sim,
	}
	if *dryRun {
		opts.Link = "dryrun"
	}
	if cfg, err = opts.apply(cfg); err != nil {
		fail(err)
	}

	closeLog := setupLog(cfg.Log)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Sim != "":
		err = serveSimulator(ctx, opts.Sim)
	case opts.Shell:
		err = runShell(ctx, cfg, opts)
	default:
		err = runDrive(ctx, cfg, opts)
	}
	if err != nil {
		stop()
		closeLog()
		fail(err)
	}
}

// apply lets flags override the file.
func (o Options) apply(cfg config.RacerConfig) (config.RacerConfig, error) {
	if o.Policy != "" {
		cfg.Drive.Policy = o.Policy
	}
	if o.Input != "" {
		cfg.Input.Kind = o.Input
	}
	if o.Link != "" {
		cfg.Link.Kind = o.Link
	}
	return cfg, cfg.Validate()
}

// setupLog routes the log to a rotated file. Debug mode mirrors it to stderr.
func setupLog(c config.LogConfig) func() {
	filename := c.File
	if ENV.LOG != "" {
		filename = ENV.LOG
	}
	if filename == "" {
		return func() {}
	}

	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		LocalTime:  true,
	}

	var out io.Writer = file
	if ENV.DEBUG {
		out = io.MultiWriter(os.Stderr, file)
	}
	log.SetOutput(out)

	return func() {
		log.SetOutput(os.Stderr)
		file.Close()
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "racer:", err)
	os.Exit(1)
}
