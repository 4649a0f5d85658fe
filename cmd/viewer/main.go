// Viewer tails the global activity stream and renders it as a table.
// Useful during development to watch what other clients broadcast.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"collab-hub/activity"
	"collab-hub/hub"
	"collab-hub/internal"
	"collab-hub/runtime"
	"collab-hub/transport"
)

const refreshInterval = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := transport.NewManager(log, config.WebsocketURL, &transport.Settings{
		HandshakeTimeout: config.HandshakeTimeout,
		ReconnectDelay:   config.ReconnectDelay,
		WriteTimeout:     config.WriteTimeout,
		PingInterval:     config.PingInterval,
	})
	h := hub.New(log, tr, config.BufferSize)
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("realtime backend unreachable: %w", err)
	}
	defer func() { _ = tr.Disconnect() }()

	feed := activity.NewFeed(log, h, activity.GlobalScope(), config.MaxActivityItems)
	defer feed.Close()

	sup := runtime.NewSupervisor(log)
	sup.Add(hub.NewDispatcher(log, h))
	go sup.Run(ctx)

	color.Bold.Println("Watching activity stream (Ctrl+C to quit)")
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			render(feed)
		}
	}
}

func render(feed *activity.Feed) {
	events := feed.Events()
	if len(events) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Type", "User", "Action", "Entity"})
	for _, e := range events {
		changes, more := activity.ChangePreview(e)
		action := e.Action
		if more > 0 {
			action = fmt.Sprintf("%s (%d changes, +%d more)", e.Action, len(changes), more)
		}
		table.Append([]string{
			e.Timestamp.Format(time.TimeOnly),
			string(e.Type),
			e.UserName,
			action,
			e.EntityType + "/" + e.EntityID,
		})
	}
	table.Render()
}
