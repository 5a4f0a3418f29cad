package process

import (
	"context"
	"fmt"
	"time"
)

// Handle represents one external transcode process started by a Launcher,
// and can be used to query its liveness, stream its output, and terminate it.
type Handle interface {
	// Returns the pid of the process.
	Pid() int
	// Reports whether the process is still running. Never blocks, and never
	// consumes the exit status of the process; that remains available from
	// Status() after the process exits.
	IsRunning() bool
	// Sends a graceful termination signal and waits up to gracePeriod for the
	// process to exit. If it is still alive after that, the process is killed
	// and Terminate waits a further bounded amount of time for it to die.
	// Safe to call concurrently; concurrent calls are serialized.
	Terminate(gracePeriod time.Duration) Termination
	// Returns a channel that will be closed when the process exits.
	// Successive calls to Done() will return the same channel.
	Done() <-chan struct{}
	// Returns the current status of the process. Safe to call concurrently
	// from multiple goroutines.
	Status() Status
	// Streams the retained combined stdout and stderr of the process, then
	// any new output in real time, until either the process exits or the
	// provided context is canceled, after which the channel is closed.
	Output(ctx context.Context) <-chan []byte
}

// Launcher starts transcode processes.
type Launcher interface {
	// Starts a new process for the stream with the given id using the given
	// arguments, and returns immediately without waiting for it to finish.
	// Returns a *LaunchError if the process could not be started.
	Launch(id string, args []string) (Handle, error)
}

// Termination describes how a call to Terminate ended the process.
type Termination int

const (
	// The process exited within the grace period after being signaled.
	TerminatedGracefully Termination = iota
	// The process ignored the graceful signal and had to be killed.
	TerminatedForcefully
	// The process had already exited before Terminate was called.
	AlreadyExited
)

func (t Termination) String() string {
	switch t {
	case TerminatedGracefully:
		return "graceful"
	case TerminatedForcefully:
		return "forced"
	case AlreadyExited:
		return "exited"
	default:
		return fmt.Sprintf("Termination(%d)", int(t))
	}
}

type State int

const (
	StateRunning State = iota
	StateStopping
	StateExited
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Status struct {
	Pid       int
	State     State
	StartTime time.Time
	EndTime   time.Time
	// Only meaningful once State is StateExited. ExitCode is -1 if the process
	// was terminated by a signal, in which case Signal holds its name.
	ExitCode int
	Signal   string
	Message  string
}

// LaunchError is returned when an external process cannot be started, for
// example because the executable does not exist or is not executable.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
