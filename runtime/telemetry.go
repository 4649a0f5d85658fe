package runtime

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"log/slog"
)

// StatsProvider returns a point-in-time view of hub counters.
type StatsProvider func() map[string]any

// TelemetryWorker periodically logs hub counters together with the
// process's own memory and CPU footprint.
type TelemetryWorker struct {
	log      *slog.Logger
	stats    StatsProvider
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, stats StatsProvider, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, stats: stats, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			args := []any{}
			for k, v := range w.stats() {
				args = append(args, k, v)
			}
			if mem, err := p.MemoryInfo(); err == nil {
				args = append(args, "rss", mem.RSS)
			}
			if cpu, err := p.CPUPercent(); err == nil {
				args = append(args, "cpu", cpu)
			}
			w.log.Info("Realtime telemetry", args...)
		}
	}
}
