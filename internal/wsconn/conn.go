// Package wsconn adapts a gorilla/websocket connection to the viewer
// transport: text frames in and out, write deadlines, and keepalive pings.
package wsconn

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/logfollow/internal/model"
)

const (
	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = model.DefaultWriteTimeout

	// DefaultPingInterval is how often a keepalive ping is sent.
	DefaultPingInterval = model.DefaultPingInterval

	// DefaultReadLimit is the largest inbound frame accepted from a viewer.
	DefaultReadLimit = 64 * 1024
)

// Config holds tunable parameters for a Conn.
type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
	Clock        clockwork.Clock
}

// Conn is a viewer transport over a WebSocket connection.
type Conn struct {
	conn         *websocket.Conn
	clock        clockwork.Clock
	writeTimeout time.Duration
	pingInterval time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// New wraps conn and starts its keepalive loop.
func New(conn *websocket.Conn, conf ...Config) *Conn {
	c := &Conn{
		conn:         conn,
		clock:        clockwork.NewRealClock(),
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		done:         make(chan struct{}),
	}
	readLimit := int64(DefaultReadLimit)
	if len(conf) > 0 {
		if conf[0].WriteTimeout > 0 {
			c.writeTimeout = conf[0].WriteTimeout
		}
		if conf[0].PingInterval > 0 {
			c.pingInterval = conf[0].PingInterval
		}
		if conf[0].ReadLimit > 0 {
			readLimit = conf[0].ReadLimit
		}
		if conf[0].Clock != nil {
			c.clock = conf[0].Clock
		}
	}

	conn.SetReadLimit(readLimit)
	pongWait := 2 * c.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.pingLoop()
	return c
}

// ReadMessage returns the next data frame. A close frame with a normal or
// going-away status is reported as io.EOF.
func (c *Conn) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WriteMessage sends data as one text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection. It is safe to call
// more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) pingLoop() {
	ticker := c.clock.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
