package link

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/silviot/Racer/drive"
)

const WRITE_TIMEOUT = time.Second

// Websocket sends each frame as one binary message to a relay or simulator.
type Websocket struct {
	URL  string
	conn *websocket.Conn
}

func DialWebsocket(ctx context.Context, url string) (*Websocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &Error{Link: "websocket", Op: "dial", Addr: url, Err: err}
	}
	return &Websocket{URL: url, conn: conn}, nil
}

func (w *Websocket) WriteFrame(ctx context.Context, frame drive.Frame) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(WRITE_TIMEOUT)
	}
	w.conn.SetWriteDeadline(deadline)

	if err := w.conn.WriteMessage(websocket.BinaryMessage, frame[:]); err != nil {
		return &Error{Link: "websocket", Op: "write", Addr: w.URL, Err: err}
	}
	return nil
}

func (w *Websocket) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WRITE_TIMEOUT))
	return w.conn.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Simulator stands in for the vehicle on the websocket link. It decodes and
// logs every frame, and hands commands to OnCommand when set.
type Simulator struct {
	Log       *log.Logger
	OnCommand func(drive.Command)
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.Log
	if logger == nil {
		logger = log.Default()
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Print("upgrade:", err)
		return
	}
	defer c.Close()

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Println("read:", err)
			}
			return
		}
		if mt != websocket.BinaryMessage || len(message) != drive.FRAME_LEN {
			logger.Printf("dropping %d byte message", len(message))
			continue
		}

		var frame drive.Frame
		copy(frame[:], message)
		cmd, err := frame.Command()
		if err != nil {
			logger.Printf("bad frame [%s]: %v", frame, err)
			continue
		}

		logger.Printf("vehicle: %s", cmd)
		if s.OnCommand != nil {
			s.OnCommand(cmd)
		}
	}
}
