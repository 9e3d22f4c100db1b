// Package input turns operator devices into drive samples.
package input

import "errors"

var (
	ErrNoInputDevice = errors.New("no usable input device")
	ErrUnknownCode   = errors.New("unknown input code")
)
