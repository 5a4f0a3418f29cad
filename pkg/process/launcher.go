package process

import (
	"io"
	"log/slog"

	"github.com/kralicky/streamrelay/pkg/logger"
)

// ExecLauncher is a Launcher that runs Command as an OS process, writing
// its output to a per-stream log target.
type ExecLauncher struct {
	// Path or name of the transcoder executable.
	Command string
	Output  logger.OutputConfig
	Options Options
}

var _ Launcher = (*ExecLauncher)(nil)

// Launch implements Launcher.
func (l *ExecLauncher) Launch(id string, args []string) (Handle, error) {
	sink, err := l.Output.Writer(id)
	if err != nil {
		return nil, &LaunchError{Command: l.Command, Err: err}
	}
	var w io.Writer
	if sink != nil {
		w = sink
	}
	opts := l.Options
	opts.Logger = slog.With("stream", id)
	p, err := Start(l.Command, args, w, opts)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, err
	}
	if sink != nil {
		go func() {
			<-p.Done()
			if err := sink.Close(); err != nil {
				slog.Error("failed to close stream log", "stream", id, "error", err)
			}
		}()
	}
	return p, nil
}
