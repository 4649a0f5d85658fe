package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"collab-hub/activity"
	"collab-hub/collab"
	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/hub"
	"collab-hub/internal"
	"collab-hub/livebind"
	"collab-hub/moderation"
	"collab-hub/notification"
	"collab-hub/presence"
	"collab-hub/querycache"
	"collab-hub/runtime"
	"collab-hub/search"
	"collab-hub/storage"
	"collab-hub/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the client lifecycle, so every
// defer (store close, transport disconnect) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Shared in-memory store (query cache, handoff)
	db, err := storage.OpenInMemory()
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing in-memory store...")
		_ = db.Close()
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Transport & Hub
	tr := transport.NewManager(log, config.WebsocketURL, &transport.Settings{
		HandshakeTimeout: config.HandshakeTimeout,
		ReconnectDelay:   config.ReconnectDelay,
		WriteTimeout:     config.WriteTimeout,
		PingInterval:     config.PingInterval,
	})
	tr.OnStatusChange(func(status contract.ConnectionStatus) {
		log.Info("Connection status changed", "status", status)
	})
	h := hub.New(log, tr, config.BufferSize)

	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("realtime backend unreachable: %w", err)
	}
	defer func() { _ = tr.Disconnect() }()

	// 5. Feature components
	tracker := presence.NewTracker(log, h, domain.PresenceUser{
		ID:     config.UserID,
		Name:   config.UserName,
		Status: domain.StatusOnline,
	})
	defer tracker.Close()
	if err := tracker.Announce(); err != nil {
		log.Warn("Initial presence announcement lost", "error", err)
	}

	archive, err := search.NewIndex()
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	feed := activity.NewFeed(log, h, activity.GlobalScope(), config.MaxActivityItems,
		activity.WithArchive(archive))
	defer feed.Close()

	var centerOpts []notification.Option
	if config.BlockedWords != nil && *config.BlockedWords != "" {
		mask, err := internal.MaskRune(config.MaskCharacter)
		if err != nil {
			return err
		}
		sanitizer, err := moderation.NewSanitizer(strings.Split(*config.BlockedWords, ","), mask)
		if err != nil {
			return fmt.Errorf("sanitizer build failed: %w", err)
		}
		centerOpts = append(centerOpts, notification.WithSanitizer(sanitizer))
	}
	center := notification.NewCenter(log, h, config.MaxNotifications, config.AutoHideDuration, centerOpts...)
	defer center.Close()

	cache := querycache.NewStore(log, db)
	binding := livebind.New(log, h, cache, "customer:current",
		livebind.ForEntity("customer", "current"))
	defer binding.Close()

	// The form session demonstrates the co-editing room wiring; real forms
	// create their own sessions per form id.
	form := collab.NewFormSession(log, h, "demo", config.UserID, config.UserName)
	defer form.Close()

	// 6. Supervised workers
	stats := func() map[string]any {
		s := h.Stats()
		visible, hidden := tracker.Visible(config.MaxVisibleUsers, false)
		s["visible_users"] = len(visible)
		s["hidden_users"] = hidden
		return s
	}
	sup := runtime.NewSupervisor(log)
	sup.Add(
		hub.NewDispatcher(log, h),
		runtime.NewHeartbeatWorker(log, tracker, config.HeartbeatInterval),
		runtime.NewTelemetryWorker(log, stats, config.TelemetryInterval),
	)

	log.Info("Collaboration client started", "user", config.UserID)
	sup.Run(ctx)
	log.Info("Shutting down")
	return nil
}
