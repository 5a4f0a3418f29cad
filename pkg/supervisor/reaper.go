package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/kralicky/streamrelay/pkg/events"
	"github.com/kralicky/streamrelay/pkg/process"
)

// Reaped describes a stream that was removed because its process exited
// without being stopped, e.g. after the source stayed unreachable for longer
// than the transcoder's reconnect limits.
type Reaped struct {
	StreamSummary
	Status process.Status
}

// Reap removes every stream whose process is no longer running, publishes a
// StreamSelfTerminated event for each, and returns them.
func (s *Supervisor) Reap() []Reaped {
	var reaped []Reaped
	for _, rec := range s.registry.List() {
		if rec.Handle.IsRunning() {
			continue
		}
		// a concurrent stop may have claimed the record since List
		if !s.registry.RemoveIf(rec) {
			continue
		}
		status := rec.Handle.Status()
		end := status.EndTime
		if end.IsZero() {
			end = s.Clock()
		}
		slog.With(
			"stream", rec.ID,
			"exitCode", status.ExitCode,
			"signal", status.Signal,
		).Warn("stream process exited on its own; removed stream")
		events.Publish(s.Events, events.StreamSelfTerminated{
			ID:       rec.ID,
			ExitCode: status.ExitCode,
			Signal:   status.Signal,
			Duration: end.Sub(rec.StartedAt),
			Time:     s.Clock(),
		})
		reaped = append(reaped, Reaped{
			StreamSummary: summarize(rec),
			Status:        status,
		})
	}
	return reaped
}

// Run calls Reap every ReapInterval until ctx is canceled. Returns
// immediately if reaping is disabled.
func (s *Supervisor) Run(ctx context.Context) {
	if s.ReapInterval < 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}
