package hub

import (
	"context"

	"log/slog"
)

// Dispatcher drains the hub's inbound buffer and fans each envelope out to
// its subscribers. It runs under the supervisor so a panicking handler only
// crashes the dispatch loop, which is then restarted.
type Dispatcher struct {
	log *slog.Logger
	hub *Hub
}

func NewDispatcher(log *slog.Logger, h *Hub) *Dispatcher {
	return &Dispatcher{log: log, hub: h}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Context done, stopping dispatch")
			return nil
		case msg := <-d.hub.inbound:
			d.hub.Deliver(msg)
		}
	}
}
