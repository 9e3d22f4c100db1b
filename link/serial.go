package link

import (
	"context"
	"io"

	"github.com/silviot/Racer/drive"
	"github.com/tarm/serial"
)

// Serial writes raw frames to a UART bridge wired to the vehicle controller.
type Serial struct {
	Port string
	port io.WriteCloser
}

func OpenSerial(name string, baud int) (*Serial, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, &Error{Link: "serial", Op: "open", Addr: name, Err: err}
	}
	return &Serial{Port: name, port: port}, nil
}

func (s *Serial) WriteFrame(ctx context.Context, frame drive.Frame) error {
	if err := ctx.Err(); err != nil {
		return &Error{Link: "serial", Op: "write", Addr: s.Port, Err: err}
	}

	n, err := s.port.Write(frame[:])
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &Error{Link: "serial", Op: "write", Addr: s.Port, Err: err}
	}
	return nil
}

func (s *Serial) Close() error {
	return s.port.Close()
}
