package client

import (
	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
)

// handle applies one server message to the local state
func (c *Client) handle(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeResyncResponse:
		c.handleResync(msg)

	case protocol.TypeCommitEnd:
		var bc protocol.CommitEndBroadcast
		if err := msg.Decode(&bc); err != nil {
			c.logger.Warn("Malformed commit broadcast", logging.Error(err))
			return
		}
		c.mirror.Confirm(bc.Operation, bc.Pointer)
		c.stateChanged()
		c.resyncOnDivergence()

	case protocol.TypeClear:
		var bc protocol.ClearBroadcast
		if err := msg.Decode(&bc); err != nil {
			c.logger.Warn("Malformed clear broadcast", logging.Error(err))
			return
		}
		c.mirror.Confirm(bc.Operation, bc.Pointer)
		c.stateChanged()
		c.resyncOnDivergence()

	case protocol.TypeUndo, protocol.TypeRedo:
		var upd protocol.PointerUpdate
		if err := msg.Decode(&upd); err != nil {
			c.logger.Warn("Malformed pointer update", logging.Error(err))
			return
		}
		c.mirror.ApplyPointer(upd.Pointer)
		c.stateChanged()
		c.resyncOnDivergence()

	case protocol.TypeCommitStart, protocol.TypeCommitStream:
		if c.events.OnPreview != nil {
			c.events.OnPreview(msg)
		}

	case protocol.TypeCursor:
		c.handleCursor(msg)

	case protocol.TypeParticipantJoined:
		var ann protocol.ParticipantJoined
		if err := msg.Decode(&ann); err != nil {
			return
		}
		c.mu.Lock()
		c.participants[ann.Participant.ID] = ann.Participant
		c.mu.Unlock()
		c.rosterChanged()

	case protocol.TypeParticipantLeft:
		var ann protocol.ParticipantLeft
		if err := msg.Decode(&ann); err != nil {
			return
		}
		c.mu.Lock()
		delete(c.participants, ann.Participant.ID)
		c.mu.Unlock()
		c.rosterChanged()

	case protocol.TypeRejected:
		var rej protocol.Rejected
		if err := msg.Decode(&rej); err != nil {
			return
		}
		c.logger.Warn("Server rejected message", logging.String("reason", rej.Reason))
		if c.events.OnRejected != nil {
			c.events.OnRejected(rej.Reason)
		}

	default:
		c.logger.Debug("Ignoring unknown message type", logging.MessageType(string(msg.Type)))
	}
}

// handleResync replaces all local state with the authoritative snapshot
func (c *Client) handleResync(msg *protocol.Message) {
	var resp protocol.ResyncResponse
	if err := msg.Decode(&resp); err != nil {
		c.logger.Error("Malformed resync response", logging.Error(err))
		return
	}

	c.mu.Lock()
	c.self = resp.LocalParticipant
	c.participants = make(map[string]board.Participant, len(resp.Participants))
	for _, p := range resp.Participants {
		c.participants[p.ID] = p
	}
	c.mu.Unlock()

	c.mirror.Rebuild(resp.Operations, resp.Pointer)

	c.logger.Info("Resynced",
		logging.Count(len(resp.Operations)),
		logging.Pointer(resp.Pointer))

	c.stateChanged()
	c.rosterChanged()
}

// handleCursor updates a peer's last-known cursor position
func (c *Client) handleCursor(msg *protocol.Message) {
	var bc protocol.CursorBroadcast
	if err := msg.Decode(&bc); err != nil {
		return
	}

	c.mu.Lock()
	if p, ok := c.participants[bc.AuthorID]; ok {
		point := bc.Point
		p.Cursor = &point
		c.participants[bc.AuthorID] = p
	}
	c.mu.Unlock()
	c.rosterChanged()
}
