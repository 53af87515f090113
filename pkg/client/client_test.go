package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/hub"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/oplog"
	"github.com/dd0wney/cluso-sketch/pkg/protocol"
	"github.com/dd0wney/cluso-sketch/pkg/server"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startServer(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	reg := metrics.NewRegistry()
	h := hub.New(oplog.NewLog(cfg.MaxOperations), hub.Config{CoordinateBound: cfg.CoordinateBound}, nil, reg)
	ts := httptest.NewServer(server.New(*cfg, h, nil, reg).Router())
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func startClient(t *testing.T, url string, events Events) *Client {
	t.Helper()

	c := New(Config{URL: url, MaxOperations: 1000, CheckpointInterval: 20}, events, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(c.Close)

	go func() { _ = c.Run(ctx) }()
	waitFor(t, "resync after connect", func() bool { return c.Self().ID != "" })
	return c
}

func TestClient_ConnectAndIdentify(t *testing.T) {
	url := startServer(t)
	c := startClient(t, url, Events{})

	assert.True(t, c.Connected())
	assert.NotEmpty(t, c.Self().Color)

	require.NoError(t, c.Identify("alice"))
	// Identify is acknowledged only via peer broadcasts; the roster on
	// the server is authoritative
	_, pointer := c.Mirror().Snapshot()
	assert.Equal(t, -1, pointer)
}

func TestClient_OptimisticCommitConfirmed(t *testing.T) {
	url := startServer(t)
	c := startClient(t, url, Events{})

	clientOpID, err := c.StartStroke(board.Point{X: 1, Y: 1}, "#0af", 2, "pen")
	require.NoError(t, err)
	require.NoError(t, c.StreamPoints(clientOpID, []board.Point{{X: 2, Y: 2}}))
	require.NoError(t, c.EndStroke(clientOpID, []board.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, "#0af", 2, "pen"))

	// Staged immediately, confirmed shortly after
	assert.Equal(t, 1, c.Mirror().Len())
	waitFor(t, "commit confirmation", func() bool { return c.Mirror().PendingCount() == 0 })

	ops, pointer := c.Mirror().Snapshot()
	assert.Equal(t, 0, pointer)
	require.Len(t, ops, 1)
	assert.Equal(t, uint64(1), ops[0].Seq)
	assert.False(t, c.Mirror().Diverged())
}

func TestClient_SharedUndoAcrossClients(t *testing.T) {
	url := startServer(t)
	c1 := startClient(t, url, Events{})
	c2 := startClient(t, url, Events{})

	opID, err := c1.StartStroke(board.Point{X: 1, Y: 1}, "#0af", 2, "pen")
	require.NoError(t, err)
	require.NoError(t, c1.EndStroke(opID, []board.Point{{X: 1, Y: 1}}, "#0af", 2, "pen"))

	waitFor(t, "commit visible on both mirrors", func() bool {
		return c1.Mirror().Pointer() == 0 && c2.Mirror().Pointer() == 0
	})

	// The undo initiated by one participant moves everyone's pointer
	require.NoError(t, c2.Undo())
	waitFor(t, "undo visible on both mirrors", func() bool {
		return c1.Mirror().Pointer() == -1 && c2.Mirror().Pointer() == -1
	})

	require.NoError(t, c1.Redo())
	waitFor(t, "redo visible on both mirrors", func() bool {
		return c1.Mirror().Pointer() == 0 && c2.Mirror().Pointer() == 0
	})
}

func TestClient_RejectionSurfacesReason(t *testing.T) {
	url := startServer(t)

	rejected := make(chan string, 1)
	c := startClient(t, url, Events{OnRejected: func(reason string) {
		select {
		case rejected <- reason:
		default:
		}
	}})

	require.NoError(t, c.EndStroke("bad", []board.Point{{X: 1, Y: 1}}, "not-a-color", 2, "pen"))

	select {
	case reason := <-rejected:
		assert.Contains(t, reason, "Color")
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for rejection")
	}
}

func TestClient_RosterTracksPeers(t *testing.T) {
	url := startServer(t)
	c1 := startClient(t, url, Events{})
	c2 := startClient(t, url, Events{})

	waitFor(t, "peer in roster", func() bool {
		for _, p := range c1.Participants() {
			if p.ID == c2.Self().ID {
				return true
			}
		}
		return false
	})

	c2.Close()
	waitFor(t, "peer removed from roster", func() bool {
		for _, p := range c1.Participants() {
			if p.ID == c2.Self().ID {
				return false
			}
		}
		return true
	})
}

func TestHandle_DivergenceTriggersRebuildOnResync(t *testing.T) {
	c := New(Config{URL: "ws://unused", MaxOperations: 100}, Events{}, nil)

	// A commit whose post-commit pointer implies missed history
	op := &board.Operation{ID: "op-9", Seq: 9, Kind: board.KindClear}
	c.handle(protocol.MustMessage(protocol.TypeCommitEnd, protocol.CommitEndBroadcast{
		AuthorID:  "peer",
		Operation: op,
		Pointer:   8,
	}))
	assert.True(t, c.Mirror().Diverged())

	// The resync rebuild clears the divergence
	c.handle(protocol.MustMessage(protocol.TypeResyncResponse, protocol.ResyncResponse{
		LocalParticipant: board.Participant{ID: "me"},
		Operations:       []*board.Operation{op},
		Pointer:          0,
	}))
	assert.False(t, c.Mirror().Diverged())
	assert.Equal(t, "me", c.Self().ID)
	assert.Equal(t, 0, c.Mirror().Pointer())
}

func TestHandle_PreviewTrafficDoesNotTouchMirror(t *testing.T) {
	previews := 0
	c := New(Config{URL: "ws://unused", MaxOperations: 100}, Events{
		OnPreview: func(*protocol.Message) { previews++ },
	}, nil)

	c.handle(protocol.MustMessage(protocol.TypeCommitStart, protocol.CommitStartBroadcast{
		AuthorID:   "peer",
		Point:      board.Point{X: 1, Y: 1},
		Color:      "#000",
		Width:      2,
		Tool:       "pen",
		ClientOpID: "c-1",
	}))
	c.handle(protocol.MustMessage(protocol.TypeCommitStream, protocol.CommitStreamBroadcast{
		AuthorID:   "peer",
		ClientOpID: "c-1",
		Points:     []board.Point{{X: 2, Y: 2}},
	}))

	assert.Equal(t, 2, previews)
	assert.Equal(t, 0, c.Mirror().Len())
}
