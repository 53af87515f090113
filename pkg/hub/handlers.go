package hub

import (
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
	"github.com/dd0wney/cluso-sketch/pkg/validation"
)

// handleCommitStart records a new in-flight stroke and relays the start
// to everyone but the originator
func (h *Hub) handleCommitStart(sess *session, msg *protocol.Message) {
	var req protocol.CommitStart
	if err := msg.Decode(&req); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	check := validation.StrokeRequest{
		Points: []board.Point{req.Point},
		Color:  req.Color,
		Width:  req.Width,
		Tool:   req.Tool,
	}
	if err := validation.ValidateStroke(&check, h.cfg.CoordinateBound); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}
	if req.ClientOpID == "" {
		h.rejectLocked(sess, msg.Type, "clientOpId: field is required")
		return
	}

	sess.inflight[req.ClientOpID] = &inflightStroke{
		color:   req.Color,
		width:   req.Width,
		tool:    req.Tool,
		points:  1,
		started: time.Now(),
	}
	h.metrics.InFlightStrokes.Inc()

	h.broadcastLocked(protocol.MustMessage(protocol.TypeCommitStart, protocol.CommitStartBroadcast{
		AuthorID:   sess.participant.ID,
		Point:      req.Point,
		Color:      req.Color,
		Width:      req.Width,
		Tool:       req.Tool,
		ClientOpID: req.ClientOpID,
	}), sess.participant.ID)
}

// handleCommitStream validates a streamed point batch against the
// in-flight table and relays it. If the start message was missed the
// entry is rehydrated from the stream message itself, provided it
// carries full style metadata; this is a degraded-mode acceptance, not
// the happy path.
func (h *Hub) handleCommitStream(sess *session, msg *protocol.Message) {
	var req protocol.CommitStream
	if err := msg.Decode(&req); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	check := validation.StreamRequest{StrokeID: req.ClientOpID, Points: req.Points}
	if err := validation.ValidateStream(&check, h.cfg.CoordinateBound); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	stroke, ok := sess.inflight[req.ClientOpID]
	if !ok {
		if req.Color == "" || req.Width == 0 || req.Tool == "" {
			h.rejectLocked(sess, msg.Type, "unknown in-flight stroke and no style metadata to rehydrate from")
			return
		}
		styleCheck := validation.StrokeRequest{
			Points: req.Points,
			Color:  req.Color,
			Width:  req.Width,
			Tool:   req.Tool,
		}
		if err := validation.ValidateStroke(&styleCheck, h.cfg.CoordinateBound); err != nil {
			h.rejectLocked(sess, msg.Type, err.Error())
			return
		}

		stroke = &inflightStroke{
			color:   req.Color,
			width:   req.Width,
			tool:    req.Tool,
			started: time.Now(),
		}
		sess.inflight[req.ClientOpID] = stroke
		h.metrics.InFlightStrokes.Inc()
		h.metrics.StreamRehydrationsTotal.Inc()

		h.logger.Debug("Rehydrated in-flight stroke from stream message",
			logging.ParticipantID(sess.participant.ID),
			logging.ClientOpID(req.ClientOpID))
	}
	stroke.points += len(req.Points)

	h.broadcastLocked(protocol.MustMessage(protocol.TypeCommitStream, protocol.CommitStreamBroadcast{
		AuthorID:   sess.participant.ID,
		ClientOpID: req.ClientOpID,
		Points:     req.Points,
	}), sess.participant.ID)
}

// handleCommitEnd commits a finished stroke to the sequenced log and
// announces the authoritative operation to all participants, including
// the originator
func (h *Hub) handleCommitEnd(sess *session, msg *protocol.Message) {
	var req protocol.CommitEnd
	if err := msg.Decode(&req); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	check := validation.StrokeRequest{
		Points: req.Path,
		Color:  req.Color,
		Width:  req.Width,
		Tool:   req.Tool,
	}
	if err := validation.ValidateStroke(&check, h.cfg.CoordinateBound); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	// A COMMIT_END carries the full path and style, so it is acceptable
	// even when the start was never seen
	if _, ok := sess.inflight[req.ClientOpID]; ok {
		delete(sess.inflight, req.ClientOpID)
		h.metrics.InFlightStrokes.Dec()
	}

	kind := board.KindDraw
	if req.Tool == "eraser" {
		kind = board.KindErase
	}

	op := &board.Operation{
		ID:        uuid.NewString(),
		AuthorID:  sess.participant.ID,
		CreatedAt: time.Now(),
		Kind:      kind,
		Stroke: &board.Stroke{
			Points: req.Path,
			Color:  req.Color,
			Width:  req.Width,
			Tool:   req.Tool,
		},
		ClientOpID: req.ClientOpID,
	}

	pointer := h.commitLocked(op)

	h.broadcastLocked(protocol.MustMessage(protocol.TypeCommitEnd, protocol.CommitEndBroadcast{
		AuthorID:  sess.participant.ID,
		Stroke:    op.Stroke,
		Operation: op,
		Pointer:   pointer,
	}), "")
}

// handleClear commits a clear operation
func (h *Hub) handleClear(sess *session) {
	op := &board.Operation{
		ID:        uuid.NewString(),
		AuthorID:  sess.participant.ID,
		CreatedAt: time.Now(),
		Kind:      board.KindClear,
	}

	pointer := h.commitLocked(op)

	h.broadcastLocked(protocol.MustMessage(protocol.TypeClear, protocol.ClearBroadcast{
		AuthorID:  sess.participant.ID,
		Operation: op,
		Pointer:   pointer,
	}), "")
}

// commitLocked appends an operation to the sequenced log and records the
// resulting log shape. It returns the post-commit pointer.
func (h *Hub) commitLocked(op *board.Operation) int {
	lenBefore := h.log.Len()
	ptrBefore := h.log.Pointer()

	committed, pointer := h.log.Append(op)

	// Reconstruct what Append did for observability: the future branch
	// discarded before insertion, and the overflow trimmed after it
	truncated := lenBefore - 1 - ptrBefore
	if truncated < 0 {
		truncated = 0
	}
	trimmed := (lenBefore - truncated + 1) - h.log.Len()
	if trimmed < 0 {
		trimmed = 0
	}

	h.metrics.RecordCommit(string(op.Kind), truncated, trimmed, h.log.Len(), pointer)

	h.logger.Info("Operation committed",
		logging.OpID(committed.ID),
		logging.ParticipantID(committed.AuthorID),
		logging.Kind(string(committed.Kind)),
		logging.Seq(committed.Seq),
		logging.Pointer(pointer))

	return pointer
}

// handleCursor updates the participant's last-known cursor and relays it
func (h *Hub) handleCursor(sess *session, msg *protocol.Message) {
	var req protocol.Cursor
	if err := msg.Decode(&req); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	if err := validation.ValidateCursor(req.Point, h.cfg.CoordinateBound); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	point := req.Point
	sess.participant.Cursor = &point

	h.broadcastLocked(protocol.MustMessage(protocol.TypeCursor, protocol.CursorBroadcast{
		AuthorID: sess.participant.ID,
		Point:    req.Point,
	}), sess.participant.ID)
}

// handleUndo moves the pointer back and announces it to all participants
func (h *Hub) handleUndo() {
	pointer := h.log.Undo()
	h.metrics.UndosTotal.Inc()
	h.metrics.UpdateLogShape(h.log.Len(), pointer)

	h.broadcastLocked(protocol.MustMessage(protocol.TypeUndo,
		protocol.PointerUpdate{Pointer: pointer}), "")
}

// handleRedo moves the pointer forward and announces it to all participants
func (h *Hub) handleRedo() {
	pointer := h.log.Redo()
	h.metrics.RedosTotal.Inc()
	h.metrics.UpdateLogShape(h.log.Len(), pointer)

	h.broadcastLocked(protocol.MustMessage(protocol.TypeRedo,
		protocol.PointerUpdate{Pointer: pointer}), "")
}

// handleIdentify sets the participant's display name. The updated
// participant is re-announced so peers can update their rosters.
func (h *Hub) handleIdentify(sess *session, msg *protocol.Message) {
	var req protocol.Identify
	if err := msg.Decode(&req); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	if err := validation.ValidateName(req.Name); err != nil {
		h.rejectLocked(sess, msg.Type, err.Error())
		return
	}

	sess.participant.Name = req.Name

	h.broadcastLocked(protocol.MustMessage(protocol.TypeParticipantJoined,
		protocol.ParticipantJoined{Participant: sess.participant}), sess.participant.ID)
}
