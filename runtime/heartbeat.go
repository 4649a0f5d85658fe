package runtime

import (
	"context"
	"time"

	"collab-hub/errors"
	"collab-hub/presence"

	"log/slog"

	stderrors "errors"
)

// HeartbeatWorker re-announces the current user's presence at a fixed
// interval so clients that joined after our last update converge. It is
// sender-side only: nobody infers absence from a missing heartbeat.
type HeartbeatWorker struct {
	log      *slog.Logger
	tracker  *presence.Tracker
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, tracker *presence.Tracker, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, tracker: tracker, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.tracker.Announce(); err != nil {
				if stderrors.Is(err, errors.ErrChannelUnavailable) {
					// Expected while reconnecting; the next tick retries.
					w.log.Debug("Presence heartbeat skipped, channel down")
					continue
				}
				w.log.Warn("Presence heartbeat failed", "error", err)
			}
		}
	}
}
