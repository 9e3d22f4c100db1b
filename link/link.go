// Package link carries encoded frames to the vehicle.
package link

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoPeripheral     = errors.New("no peripheral found")
	ErrNoCharacteristic = errors.New("command characteristic not found")
	ErrClosed           = errors.New("link closed")
)

// Error is a failed link operation. Every failure ends the session, so there
// is no retry hint.
type Error struct {
	Link string // ble, serial, websocket
	Op   string
	Addr string
	Err  error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s %s %s: %v", err.Link, err.Op, err.Addr, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

func (err *Error) Cause() error {
	return err.Err
}
