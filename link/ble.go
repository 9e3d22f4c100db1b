package link

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/silviot/Racer/drive"
	"tinygo.org/x/bluetooth"
)

const DEFAULT_SCAN_TIMEOUT = 10 * time.Second

var (
	adapter    = bluetooth.DefaultAdapter
	enableOnce sync.Once
	enableErr  error
)

func enable() error {
	enableOnce.Do(func() {
		enableErr = adapter.Enable()
	})
	return errors.Wrap(enableErr, "unable to enable bluetooth adapter")
}

type characteristic interface {
	WriteWithoutResponse(p []byte) (n int, err error)
}

// BLE writes frames to the command characteristic of a connected peripheral.
type BLE struct {
	Addr string
	Name string

	char       characteristic
	disconnect func() error
}

// DialBLE scans for addr, connects and looks up the command characteristic.
func DialBLE(ctx context.Context, addr, charUUID string, scanTimeout time.Duration) (*BLE, error) {
	uuid, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, errors.Wrapf(err, "bad characteristic %q", charUUID)
	}
	if err := enable(); err != nil {
		return nil, err
	}

	found, err := find(ctx, addr, scanTimeout)
	if err != nil {
		return nil, err
	}

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, &Error{Link: "ble", Op: "connect", Addr: addr, Err: err}
	}

	b := &BLE{
		Addr:       addr,
		Name:       found.LocalName(),
		disconnect: device.Disconnect,
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		b.Close()
		return nil, &Error{Link: "ble", Op: "discover", Addr: addr, Err: err}
	}
	for _, service := range services {
		chars, err := service.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, c := range chars {
			if c.UUID() == uuid {
				char := c
				b.char = &char
				return b, nil
			}
		}
	}

	b.Close()
	return nil, &Error{Link: "ble", Op: "discover", Addr: addr, Err: ErrNoCharacteristic}
}

// find scans until addr advertises or the timeout passes.
func find(ctx context.Context, addr string, timeout time.Duration) (found bluetooth.ScanResult, err error) {
	ok := false
	err = scan(ctx, timeout, func(result bluetooth.ScanResult) bool {
		if !sameAddress(result.Address.String(), addr) {
			return true
		}
		found, ok = result, true
		return false
	})
	if err == nil && !ok {
		err = errors.Wrapf(ErrNoPeripheral, "%s not seen within %s", addr, timeout)
	}
	return
}

// sameAddress compares MAC addresses, which adapters report in either case.
func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// scan feeds results to fn until it returns false, the timeout passes or ctx
// is done.
func scan(ctx context.Context, timeout time.Duration, fn func(bluetooth.ScanResult) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := enable(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DEFAULT_SCAN_TIMEOUT
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var once sync.Once
	stop := func() {
		once.Do(func() { adapter.StopScan() })
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	err := adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !fn(result) {
			stop()
		}
	})
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}
	return nil
}

func (b *BLE) WriteFrame(ctx context.Context, frame drive.Frame) error {
	if err := ctx.Err(); err != nil {
		return &Error{Link: "ble", Op: "write", Addr: b.Addr, Err: err}
	}
	if b.char == nil {
		return &Error{Link: "ble", Op: "write", Addr: b.Addr, Err: ErrClosed}
	}

	n, err := b.char.WriteWithoutResponse(frame[:])
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &Error{Link: "ble", Op: "write", Addr: b.Addr, Err: err}
	}
	return nil
}

func (b *BLE) Close() error {
	b.char = nil
	if b.disconnect == nil {
		return nil
	}
	disconnect := b.disconnect
	b.disconnect = nil
	return disconnect()
}
