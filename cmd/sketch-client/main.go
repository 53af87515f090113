// Command sketch-client is a headless board client for demos and
// smoke-testing: it connects to a sketch server, mirrors the shared
// history, and prints the board state as it evolves. With -draw it
// contributes a stroke of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/client"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/mirror"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/ws", "Websocket endpoint of the sketch server")
		name     = flag.String("name", "", "Display name")
		draw     = flag.Bool("draw", false, "Draw a demo stroke after connecting")
		logLevel = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(*logLevel))

	surface := board.NewMemorySurface()
	projector := mirror.NewProjector(surface, nil)

	var c *client.Client
	render := func() {
		ops, pointer := c.Mirror().Snapshot()
		if _, err := projector.Render(ops, pointer); err != nil {
			logger.Error("Render failed", logging.Error(err))
			return
		}
		fmt.Printf("board: %d strokes visible, pointer=%d, %d ops mirrored, %d pending\n",
			surface.StrokeCount(), pointer, c.Mirror().Len(), c.Mirror().PendingCount())
	}

	c = client.New(client.Config{
		URL:                *url,
		Name:               *name,
		MaxOperations:      1000,
		CheckpointInterval: 20,
	}, client.Events{
		OnStateChanged: func() { render() },
		OnRejected: func(reason string) {
			fmt.Fprintf(os.Stderr, "rejected: %s\n", reason)
		},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Client stopped", logging.Error(err))
			os.Exit(1)
		}
	}()

	waitUntil(func() bool { return c.Self().ID != "" }, 5*time.Second)
	self := c.Self()
	fmt.Printf("connected as %s (%s)\n", self.Name, self.Color)

	if *draw {
		if err := drawDemoStroke(c, self.Color); err != nil {
			fmt.Fprintf(os.Stderr, "draw failed: %v\n", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	c.Close()
}

// drawDemoStroke streams a short diagonal stroke the way an interactive
// client would: start, a few point batches, then the commit
func drawDemoStroke(c *client.Client, color string) error {
	path := make([]board.Point, 0, 10)
	for i := 0; i < 10; i++ {
		path = append(path, board.Point{X: float64(i * 10), Y: float64(i * 10)})
	}

	opID, err := c.StartStroke(path[0], color, 3, "pen")
	if err != nil {
		return err
	}
	for i := 1; i < len(path); i += 3 {
		end := i + 3
		if end > len(path) {
			end = len(path)
		}
		if err := c.StreamPoints(opID, path[i:end]); err != nil {
			return err
		}
		time.Sleep(20 * time.Millisecond)
	}
	return c.EndStroke(opID, path, color, 3, "pen")
}

func waitUntil(cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
}
