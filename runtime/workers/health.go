package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"chat-relay/domain/event"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker reports CPU, memory and thread usage of the server process.
type HealthWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

func NewHealthWorker(log *slog.Logger, telemetryChan chan event.Event, metricInterval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, telemetryChan: telemetryChan, metricInterval: metricInterval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			stats, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			select {
			case w.telemetryChan <- event.New(event.ProcessStatsType, stats):
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

// selfStats retrieves memory, CPU and thread count for the given process.
func selfStats(p *process.Process) (event.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return event.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return event.ProcessStats{}, err
	}
	return event.ProcessStats{
		PID:        p.Pid,
		Threads:    threads,
		Cpu:        cpuPercent,
		RSS:        memInfo.RSS,
		Goroutines: goruntime.NumGoroutine(),
	}, nil
}
