package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
)

const (
	// writeWait is the deadline for a single websocket write
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames; a full stroke path fits
	// comfortably under this
	maxMessageSize = 512 * 1024
)

// wsConn adapts a websocket connection to the hub's Conn interface.
// Send enqueues into a bounded buffer drained by the write pump and
// never blocks the hub: a full buffer or a closed connection reports a
// dropped delivery and the client recovers via resync.
type wsConn struct {
	ws        *websocket.Conn
	sendCh    chan *protocol.Message
	done      chan struct{}
	closeOnce sync.Once
	logger    logging.Logger
}

func newWSConn(ws *websocket.Conn, bufferSize int, logger logging.Logger) *wsConn {
	return &wsConn{
		ws:     ws,
		sendCh: make(chan *protocol.Message, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send enqueues a message for delivery. It reports false when the
// message was dropped.
func (c *wsConn) Send(msg *protocol.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.sendCh <- msg:
		return true
	default:
		return false
	}
}

// Close tears down the connection. Safe to call from both pumps.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump drains the send buffer onto the wire and keeps the
// connection alive with periodic pings. One writer goroutine per
// connection; the websocket does not allow concurrent writes.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("Write failed, closing connection", logging.Error(err))
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump reads envelopes off the wire and hands them to handle until
// the connection dies. A malformed envelope is answered with a
// rejection so the sender can tell its frame went nowhere, then
// skipped; it is not fatal to the connection.
func (c *wsConn) readPump(handle func(*protocol.Message)) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Unexpected connection close", logging.Error(err))
			}
			return
		}

		msg, err := protocol.DecodeEnvelope(data)
		if err != nil {
			c.logger.Debug("Rejecting malformed envelope", logging.Error(err))
			c.Send(protocol.MustMessage(protocol.TypeRejected, protocol.Rejected{
				Reason: "malformed envelope: " + err.Error(),
			}))
			continue
		}
		handle(msg)
	}
}
