package link

import (
	"context"
	"log"

	"github.com/silviot/Racer/drive"
)

// DryRun logs frames instead of sending them, for driving without a vehicle.
type DryRun struct {
	Log    *log.Logger
	Frames int
}

func NewDryRun(logger *log.Logger) *DryRun {
	if logger == nil {
		logger = log.Default()
	}
	return &DryRun{Log: logger}
}

func (d *DryRun) WriteFrame(ctx context.Context, frame drive.Frame) error {
	d.Frames++
	cmd, err := frame.Command()
	if err != nil {
		d.Log.Printf("dry run: [%s] %v", frame, err)
		return nil
	}
	d.Log.Printf("dry run: [%s] %s", frame, cmd)
	return nil
}

func (d *DryRun) Close() error {
	return nil
}
