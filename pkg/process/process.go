package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kralicky/streamrelay/pkg/util"
	"golang.org/x/sys/unix"
)

// DefaultKillTimeout bounds how long Terminate waits for a process to die
// after it has been sent SIGKILL.
const DefaultKillTimeout = 2 * time.Second

type Options struct {
	// How long to wait after SIGKILL. Defaults to DefaultKillTimeout.
	KillTimeout time.Duration
	// Number of bytes of output retained in memory. Defaults to
	// util.DefaultTailSize.
	TailSize int
	// Base logger for process lifecycle messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Process is a Handle backed by an OS process.
type Process struct {
	cmd         *exec.Cmd
	output      *util.TailBuffer
	done        chan struct{}
	killTimeout time.Duration
	lg          *slog.Logger

	// serializes Terminate calls
	terminateMu sync.Mutex

	statusMu sync.Mutex
	status   Status
}

var _ Handle = (*Process)(nil)

// Start starts command with the given arguments in its own process group.
// The combined stdout and stderr of the process are retained in memory and,
// if sink is not nil, are also written to sink. Start returns without
// waiting for the process to exit.
func Start(command string, args []string, sink io.Writer, opts ...Options) (*Process, error) {
	var options Options
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.KillTimeout <= 0 {
		options.KillTimeout = DefaultKillTimeout
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	output := util.NewTailBuffer(options.TailSize)
	var w io.Writer = output
	if sink != nil {
		w = io.MultiWriter(output, sink)
	}

	cmd := exec.Command(command, args...)
	cmd.Stdin = nil
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// bounds how long Wait blocks on output pipes held open by stray children
	cmd.WaitDelay = options.KillTimeout

	if err := cmd.Start(); err != nil {
		output.Close()
		return nil, &LaunchError{Command: command, Err: err}
	}

	p := &Process{
		cmd:         cmd,
		output:      output,
		done:        make(chan struct{}),
		killTimeout: options.KillTimeout,
		lg:          options.Logger.With("command", command, "pid", cmd.Process.Pid),
		status: Status{
			Pid:       cmd.Process.Pid,
			State:     StateRunning,
			StartTime: time.Now(),
			Message:   StateRunning.String(),
		},
	}
	p.lg.Info("process started")

	go p.wait()
	return p, nil
}

// wait is the only caller of cmd.Wait.
func (p *Process) wait() {
	defer close(p.done)
	defer p.output.Close()
	err := p.cmd.Wait()
	endTime := time.Now()

	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	p.status.State = StateExited
	p.status.EndTime = endTime
	p.status.ExitCode = -1
	if ps := p.cmd.ProcessState; ps != nil {
		p.status.ExitCode = ps.ExitCode()
		p.status.Message = ps.String()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			p.status.Signal = unix.SignalName(ws.Signal())
		}
	} else if err != nil {
		p.status.Message = err.Error()
	}
	if err != nil && !errors.As(err, new(*exec.ExitError)) {
		p.lg.Warn("error waiting for process", "error", err)
	}

	p.lg.With(
		"exitCode", p.status.ExitCode,
		"signal", p.status.Signal,
		"duration", endTime.Sub(p.status.StartTime),
	).Info("process exited")
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) IsRunning() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func (p *Process) Output(ctx context.Context) <-chan []byte {
	return p.output.NewStream(ctx)
}

func (p *Process) Terminate(gracePeriod time.Duration) Termination {
	p.terminateMu.Lock()
	defer p.terminateMu.Unlock()

	if !p.IsRunning() {
		return AlreadyExited
	}
	p.setStopping()

	start := time.Now()
	p.lg.Debug("attempting graceful shutdown", "gracePeriod", gracePeriod)
	if err := p.signal(unix.SIGTERM); err != nil {
		p.lg.Warn("failed to send SIGTERM", "error", err)
	}

	timeout := time.NewTimer(gracePeriod)
	defer timeout.Stop()
	select {
	case <-p.done:
		p.lg.Debug("process exited within grace period", "took", time.Since(start))
		return TerminatedGracefully
	case <-timeout.C:
	}

	p.lg.Warn("process did not exit within grace period, sending SIGKILL")
	if err := p.signal(unix.SIGKILL); err != nil {
		p.lg.Error("failed to send SIGKILL", "error", err)
	}
	killTimeout := time.NewTimer(p.killTimeout)
	defer killTimeout.Stop()
	select {
	case <-p.done:
	case <-killTimeout.C:
		p.lg.Error("process did not exit after SIGKILL", "killTimeout", p.killTimeout)
	}
	return TerminatedForcefully
}

func (p *Process) setStopping() {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	if p.status.State == StateRunning {
		p.status.State = StateStopping
		p.status.Message = StateStopping.String()
	}
}

// signal sends sig to the process group, falling back to the process itself
// if the group is already gone.
func (p *Process) signal(sig syscall.Signal) error {
	pid := p.cmd.Process.Pid
	err := unix.Kill(-pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		err = unix.Kill(pid, sig)
		if errors.Is(err, unix.ESRCH) {
			// already exited; the wait goroutine will observe it
			return nil
		}
	}
	return err
}
