// Package processtest provides in-memory implementations of process.Handle
// and process.Launcher for testing code that supervises processes.
package processtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/util"
)

// IgnoreTerm can be used as a stop delay for handles that never respond to
// graceful termination.
const IgnoreTerm time.Duration = -1

// Handle is a fake process. It exits after StopDelay when terminated, or
// is killed at the end of the grace period if StopDelay exceeds it or is
// IgnoreTerm.
type Handle struct {
	ID   string
	Args []string

	pid       int
	stopDelay time.Duration
	output    *util.TailBuffer
	done      chan struct{}

	terminateMu  sync.Mutex
	terminations atomic.Int32

	statusMu sync.Mutex
	status   process.Status
}

var _ process.Handle = (*Handle)(nil)

func NewHandle(id string, pid int, args []string, stopDelay time.Duration) *Handle {
	return &Handle{
		ID:        id,
		Args:      args,
		pid:       pid,
		stopDelay: stopDelay,
		output:    util.NewTailBuffer(4096),
		done:      make(chan struct{}),
		status: process.Status{
			Pid:       pid,
			State:     process.StateRunning,
			StartTime: time.Now(),
			Message:   process.StateRunning.String(),
		},
	}
}

func (h *Handle) Pid() int {
	return h.pid
}

func (h *Handle) IsRunning() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Status() process.Status {
	h.statusMu.Lock()
	defer h.statusMu.Unlock()
	return h.status
}

func (h *Handle) Output(ctx context.Context) <-chan []byte {
	return h.output.NewStream(ctx)
}

// WriteOutput simulates the process writing to stdout or stderr.
func (h *Handle) WriteOutput(p []byte) {
	h.output.Write(p)
}

func (h *Handle) Terminate(gracePeriod time.Duration) process.Termination {
	h.terminateMu.Lock()
	defer h.terminateMu.Unlock()

	if !h.IsRunning() {
		return process.AlreadyExited
	}
	h.terminations.Add(1)
	if h.stopDelay >= 0 && h.stopDelay <= gracePeriod {
		time.Sleep(h.stopDelay)
		h.exit(-1, "SIGTERM")
		return process.TerminatedGracefully
	}
	time.Sleep(gracePeriod)
	h.exit(-1, "SIGKILL")
	return process.TerminatedForcefully
}

// Terminations returns the number of times Terminate acted on the running
// process.
func (h *Handle) Terminations() int {
	return int(h.terminations.Load())
}

// Exit simulates the process exiting on its own with the given exit code.
func (h *Handle) Exit(code int) {
	h.terminateMu.Lock()
	defer h.terminateMu.Unlock()
	if h.IsRunning() {
		h.exit(code, "")
	}
}

func (h *Handle) exit(code int, signal string) {
	h.statusMu.Lock()
	h.status.State = process.StateExited
	h.status.EndTime = time.Now()
	h.status.ExitCode = code
	h.status.Signal = signal
	h.status.Message = "exited"
	h.statusMu.Unlock()
	h.output.Close()
	close(h.done)
}

// Launcher is a fake process.Launcher that records every launch.
type Launcher struct {
	// If set, Launch fails with a *process.LaunchError wrapping Err.
	Err error
	// Stop delay applied to every launched handle.
	StopDelay time.Duration

	mu      sync.Mutex
	nextPid int
	handles []*Handle
}

var _ process.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(id string, args []string) (process.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, &process.LaunchError{Command: "ffmpeg", Err: l.Err}
	}
	l.nextPid++
	h := NewHandle(id, 1000+l.nextPid, append([]string(nil), args...), l.StopDelay)
	l.handles = append(l.handles, h)
	return h, nil
}

// Handles returns every handle launched so far, in launch order.
func (l *Launcher) Handles() []*Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Handle(nil), l.handles...)
}

// Handle returns the most recently launched handle for the given id, or nil.
func (l *Launcher) Handle(id string) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.handles) - 1; i >= 0; i-- {
		if l.handles[i].ID == id {
			return l.handles[i]
		}
	}
	return nil
}
