package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"term-chatroom/observability"
)

// RoomStats exposes the engine counters the health worker reports.
type RoomStats interface {
	OnlineCount() int
	LastSequence() uint64
}

// HealthMonitoringWorker periodically logs process resource usage and
// room counters. It is observability only; the chat keeps running when
// metrics collection fails.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	room           RoomStats
	metrics        *observability.ChatMetrics
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	room RoomStats,
	metrics *observability.ChatMetrics,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		room:           room,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Error("Cannot inspect own process, health monitoring disabled", "err", err)
		return nil
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *HealthMonitoringWorker) report(proc *process.Process) {
	cpu, err := proc.CPUPercent()
	if err != nil {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	ram, err := proc.MemoryPercent()
	if err != nil {
		w.log.Debug("Error while finding process ram usage", "err", err)
	}

	stats := w.metrics.Stats()
	w.log.Info("room health",
		"online", w.room.OnlineCount(),
		"last_sequence", w.room.LastSequence(),
		"messages", stats.Messages,
		"delivery_failures", stats.DeliveryFailures,
		"dropped_events", stats.DroppedEvents,
		"cpu_percent", cpu,
		"ram_percent", ram,
	)
}
