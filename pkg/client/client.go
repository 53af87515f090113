// Package client implements the board client: a websocket connection to
// the sync server, the optimistic mirror of the sequenced log, and the
// reconnect loop that rebuilds the mirror from a resync whenever the
// connection or the mirror's consistency is lost.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/mirror"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
)

// Config holds the client tunables
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws
	URL string
	// Name is the display name sent after connecting; empty keeps the
	// server-assigned guest name
	Name string
	// MaxOperations mirrors the server's log cap so pointers stay
	// comparable
	MaxOperations int
	// CheckpointInterval is the commit spacing of surface checkpoints
	CheckpointInterval int
}

// Events holds optional callbacks fired from the read loop. All
// callbacks are invoked sequentially; a slow callback delays message
// processing.
type Events struct {
	// OnStateChanged fires after any change to the visible history
	OnStateChanged func()
	// OnPreview fires for relayed in-flight stroke traffic from peers
	OnPreview func(msg *protocol.Message)
	// OnRosterChanged fires when a participant joins, leaves, or updates
	OnRosterChanged func()
	// OnRejected fires when the server rejects one of our messages
	OnRejected func(reason string)
}

// Client is a connected board participant
type Client struct {
	cfg    Config
	events Events
	mirror *mirror.Mirror
	logger logging.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu           sync.Mutex
	self         board.Participant
	participants map[string]board.Participant
	connected    bool

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a client. Run must be called to connect.
func New(cfg Config, events Events, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cache := mirror.NewCheckpointCache(cfg.CheckpointInterval)
	return &Client{
		cfg:          cfg,
		events:       events,
		mirror:       mirror.New(cfg.MaxOperations, cache, logger),
		logger:       logger.With(logging.Component("client")),
		participants: make(map[string]board.Participant),
		done:         make(chan struct{}),
	}
}

// Mirror returns the client's replica of the sequenced log
func (c *Client) Mirror() *mirror.Mirror {
	return c.mirror
}

// Self returns the server-assigned local participant identity
func (c *Client) Self() board.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// Participants returns the last-known roster
func (c *Client) Participants() []board.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]board.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		out = append(out, p)
	}
	return out
}

// Connected reports whether the websocket is currently up
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run connects and processes messages until the context is cancelled or
// Close is called. Dropped connections are redialed with exponential
// backoff; every successful dial is followed by a server-sent resync
// that rebuilds the mirror.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		if err := c.connect(ctx); err != nil {
			return fmt.Errorf("connecting to %s: %w", c.cfg.URL, err)
		}

		c.readLoop()

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
			c.logger.Warn("Connection lost, reconnecting")
		}
	}
}

// Close tears the client down. Run returns after the current read
// unblocks.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wsMu.Lock()
		if c.ws != nil {
			c.ws.Close()
		}
		c.wsMu.Unlock()
	})
}

// connect dials the server with exponential backoff until it succeeds
// or the context is cancelled
func (c *Client) connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		select {
		case <-c.done:
			return backoff.Permanent(fmt.Errorf("client closed"))
		default:
		}

		ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Debug("Dial failed, backing off", logging.Error(err))
			return err
		}

		c.wsMu.Lock()
		c.ws = ws
		c.wsMu.Unlock()

		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()

		c.logger.Info("Connected", logging.String("url", c.cfg.URL))

		if c.cfg.Name != "" {
			if err := c.send(protocol.TypeIdentify, protocol.Identify{Name: c.cfg.Name}); err != nil {
				c.logger.Warn("Failed to send identify", logging.Error(err))
			}
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

// readLoop processes messages until the connection drops
func (c *Client) readLoop() {
	for {
		c.wsMu.Lock()
		ws := c.ws
		c.wsMu.Unlock()
		if ws == nil {
			return
		}

		var msg protocol.Message
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		c.handle(&msg)
	}
}

// send encodes and writes one envelope. Writes are serialized; the
// websocket forbids concurrent writers.
func (c *Client) send(msgType protocol.MessageType, data any) error {
	msg, err := protocol.NewMessage(msgType, data)
	if err != nil {
		return err
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return fmt.Errorf("not connected")
	}
	return c.ws.WriteJSON(msg)
}

// StartStroke begins an in-flight stroke and returns its client
// operation id for the follow-up stream and end calls
func (c *Client) StartStroke(point board.Point, color string, width float64, tool string) (string, error) {
	clientOpID := uuid.NewString()
	err := c.send(protocol.TypeCommitStart, protocol.CommitStart{
		Point:      point,
		Color:      color,
		Width:      width,
		Tool:       tool,
		ClientOpID: clientOpID,
	})
	return clientOpID, err
}

// StreamPoints sends a batch of points for an in-flight stroke
func (c *Client) StreamPoints(clientOpID string, points []board.Point) error {
	return c.send(protocol.TypeCommitStream, protocol.CommitStream{
		ClientOpID: clientOpID,
		Points:     points,
	})
}

// EndStroke finalizes a stroke: the full path is staged optimistically
// in the mirror and submitted for commit. The pending entry is replaced
// by the authoritative operation when the commit broadcast arrives.
func (c *Client) EndStroke(clientOpID string, path []board.Point, color string, width float64, tool string) error {
	kind := board.KindDraw
	if tool == "eraser" {
		kind = board.KindErase
	}

	c.mirror.StagePending(&board.Operation{
		AuthorID:   c.Self().ID,
		CreatedAt:  time.Now(),
		Kind:       kind,
		Stroke:     &board.Stroke{Points: path, Color: color, Width: width, Tool: tool},
		ClientOpID: clientOpID,
	})
	c.stateChanged()

	return c.send(protocol.TypeCommitEnd, protocol.CommitEnd{
		ClientOpID: clientOpID,
		Path:       path,
		Color:      color,
		Width:      width,
		Tool:       tool,
	})
}

// Clear requests a board clear
func (c *Client) Clear() error {
	return c.send(protocol.TypeClear, protocol.Clear{})
}

// Undo requests a shared undo
func (c *Client) Undo() error {
	return c.send(protocol.TypeUndo, nil)
}

// Redo requests a shared redo
func (c *Client) Redo() error {
	return c.send(protocol.TypeRedo, nil)
}

// MoveCursor reports the local cursor position
func (c *Client) MoveCursor(point board.Point) error {
	return c.send(protocol.TypeCursor, protocol.Cursor{Point: point})
}

// Identify sets the local display name
func (c *Client) Identify(name string) error {
	return c.send(protocol.TypeIdentify, protocol.Identify{Name: name})
}

// RequestResync asks the server for the full authoritative state
func (c *Client) RequestResync() error {
	return c.send(protocol.TypeResync, nil)
}

func (c *Client) stateChanged() {
	if c.events.OnStateChanged != nil {
		c.events.OnStateChanged()
	}
}

func (c *Client) rosterChanged() {
	if c.events.OnRosterChanged != nil {
		c.events.OnRosterChanged()
	}
}

// resyncOnDivergence falls back to a full rebuild whenever incremental
// application failed
func (c *Client) resyncOnDivergence() {
	if !c.mirror.Diverged() {
		return
	}
	c.logger.Warn("Mirror diverged, requesting resync")
	if err := c.RequestResync(); err != nil {
		c.logger.Error("Resync request failed", logging.Error(err))
	}
}
