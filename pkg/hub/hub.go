// Package hub implements the server side of the sketch sync engine: the
// connection registry, the in-flight stroke tables, and the broadcaster
// that fans committed operations and control messages out to every
// participant.
//
// The hub owns the sequenced log. Every mutating message is applied as an
// atomic validate → mutate → broadcast step under a single mutex, so
// concurrent connection handlers always observe a consistent
// {operations, pointer} pair. Broadcast delivery itself is asynchronous
// per connection (buffered send queues drained by the transport) and can
// neither delay nor fail a mutation.
package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/oplog"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
)

// Conn is the transport-side handle for a connected participant. Send
// must not block: implementations enqueue into a bounded buffer and
// report false when the message had to be dropped (full buffer or closed
// connection). Reliability for dropped deliveries is delegated to the
// client's reconnect-and-resync flow, not to the hub.
type Conn interface {
	Send(msg *protocol.Message) bool
	Close() error
}

// inflightStroke is the per-connection record of a stroke that has
// started streaming but is not yet committed. It exists only to
// validate and relay streaming move events; an incomplete stroke never
// enters the sequenced log.
type inflightStroke struct {
	color   string
	width   float64
	tool    string
	points  int
	started time.Time
}

// session is one connected participant plus its ephemeral state
type session struct {
	participant board.Participant
	conn        Conn
	inflight    map[string]*inflightStroke
}

// Config holds the hub tunables
type Config struct {
	CoordinateBound float64
}

// Hub is the single owner of the sequenced log and the participant registry
type Hub struct {
	cfg      Config
	log      *oplog.Log
	sessions map[string]*session
	colors   *colorPool
	guestSeq int
	logger   logging.Logger
	metrics  *metrics.Registry
	mu       sync.Mutex
}

// New creates a hub owning the given log
func New(log *oplog.Log, cfg Config, logger logging.Logger, reg *metrics.Registry) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Hub{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*session),
		colors:   newColorPool(),
		logger:   logger.With(logging.Component("hub")),
		metrics:  reg,
	}
}

// Connect registers a new participant, sends it the authoritative state,
// and announces it to everyone else. It returns the assigned participant
// identity.
func (h *Hub) Connect(conn Conn) board.Participant {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.guestSeq++
	p := board.Participant{
		ID:          uuid.NewString(),
		Color:       h.colors.acquire(),
		Name:        fmt.Sprintf("Guest %d", h.guestSeq),
		ConnectedAt: time.Now(),
	}

	h.sessions[p.ID] = &session{
		participant: p,
		conn:        conn,
		inflight:    make(map[string]*inflightStroke),
	}
	h.metrics.ConnectedParticipants.Set(float64(len(h.sessions)))

	h.logger.Info("Participant connected",
		logging.ParticipantID(p.ID),
		logging.String("color", p.Color))

	h.sendResyncLocked(p.ID)
	h.broadcastLocked(protocol.MustMessage(protocol.TypeParticipantJoined,
		protocol.ParticipantJoined{Participant: p}), p.ID)

	return p
}

// Disconnect removes a participant, returns its color to the pool, and
// discards any in-flight strokes. Orphaned in-flight strokes are never
// committed.
func (h *Hub) Disconnect(participantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[participantID]
	if !ok {
		return
	}

	if n := len(sess.inflight); n > 0 {
		h.logger.Debug("Discarding in-flight strokes on disconnect",
			logging.ParticipantID(participantID),
			logging.Count(n))
		h.metrics.InFlightStrokes.Sub(float64(n))
	}

	delete(h.sessions, participantID)
	h.colors.release(sess.participant.Color)
	h.metrics.ConnectedParticipants.Set(float64(len(h.sessions)))

	h.logger.Info("Participant disconnected", logging.ParticipantID(participantID))

	h.broadcastLocked(protocol.MustMessage(protocol.TypeParticipantLeft,
		protocol.ParticipantLeft{Participant: sess.participant}), participantID)
}

// Participants returns the currently connected participants
func (h *Hub) Participants() []board.Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.participantsLocked()
}

func (h *Hub) participantsLocked() []board.Participant {
	out := make([]board.Participant, 0, len(h.sessions))
	for _, sess := range h.sessions {
		out = append(out, sess.participant)
	}
	return out
}

// Stats is a point-in-time summary of hub state
type Stats struct {
	Participants int    `json:"participants"`
	LogLength    int    `json:"logLength"`
	Pointer      int    `json:"pointer"`
	NextSeq      uint64 `json:"nextSeq"`
}

// Stats returns a consistent summary of the registry and the log
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		Participants: len(h.sessions),
		LogLength:    h.log.Len(),
		Pointer:      h.log.Pointer(),
		NextSeq:      h.log.NextSeq(),
	}
}

// Handle dispatches one inbound wire message from a participant. A
// malformed message is rejected back to the sender only; it never
// mutates the log and never closes the connection.
func (h *Hub) Handle(participantID string, msg *protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[participantID]
	if !ok {
		return
	}

	h.metrics.RecordMessage(string(msg.Type))

	switch msg.Type {
	case protocol.TypeCommitStart:
		h.handleCommitStart(sess, msg)
	case protocol.TypeCommitStream:
		h.handleCommitStream(sess, msg)
	case protocol.TypeCommitEnd:
		h.handleCommitEnd(sess, msg)
	case protocol.TypeClear:
		h.handleClear(sess)
	case protocol.TypeCursor:
		h.handleCursor(sess, msg)
	case protocol.TypeUndo:
		h.handleUndo()
	case protocol.TypeRedo:
		h.handleRedo()
	case protocol.TypeResync:
		h.sendResyncLocked(participantID)
	case protocol.TypeIdentify:
		h.handleIdentify(sess, msg)
	default:
		h.rejectLocked(sess, msg.Type, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// rejectLocked reports a validation failure to the offending sender only.
// Other participants are unaffected and the log is untouched.
func (h *Hub) rejectLocked(sess *session, msgType protocol.MessageType, reason string) {
	h.metrics.RecordRejection(string(msgType))
	h.logger.Debug("Message rejected",
		logging.ParticipantID(sess.participant.ID),
		logging.MessageType(string(msgType)),
		logging.String("reason", reason))

	sess.conn.Send(protocol.MustMessage(protocol.TypeRejected, protocol.Rejected{Reason: reason}))
}

// broadcastLocked fans a message out to every open connection except the
// excluded one. Delivery is at-most-once per connection and best-effort:
// a full or closed connection is skipped silently.
func (h *Hub) broadcastLocked(msg *protocol.Message, exclude string) {
	receivers := 0
	for id, sess := range h.sessions {
		if id == exclude {
			continue
		}
		if sess.conn.Send(msg) {
			receivers++
		} else {
			h.metrics.BroadcastDropsTotal.Inc()
		}
	}
	h.metrics.RecordBroadcast(string(msg.Type), receivers)
}

// sendResyncLocked sends the full authoritative visible state to one
// participant. The snapshot and pointer are taken together, so the pair
// is always consistent.
func (h *Hub) sendResyncLocked(participantID string) {
	sess, ok := h.sessions[participantID]
	if !ok {
		return
	}

	timer := logging.StartTimer(h.logger, "Resync served",
		logging.ParticipantID(participantID))

	ops, pointer := h.log.Snapshot()
	resp := protocol.ResyncResponse{
		LocalParticipant: sess.participant,
		Operations:       ops,
		Pointer:          pointer,
		Participants:     h.participantsLocked(),
	}

	sess.conn.Send(protocol.MustMessage(protocol.TypeResyncResponse, resp))
	h.metrics.ResyncsTotal.Inc()

	timer.End()
}
