// Package chat implements the slash-command interface of the relay, turning
// a line of chat text into a supervisor operation and a human readable reply.
package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/supervisor"
)

// Supervisor is the subset of *supervisor.Supervisor used by the dispatcher.
type Supervisor interface {
	StartStream(req supervisor.StreamRequest) (string, error)
	StopStream(id string) (supervisor.StopOutcome, error)
	StopAll() []supervisor.StopOutcome
	ListStreams() []supervisor.StreamSummary
	StreamStats() []supervisor.StreamStat
	Uptime() time.Duration
}

var _ Supervisor = (*supervisor.Supervisor)(nil)

const (
	Welcome = "Welcome to the Streaming Bot! Use /help to see available commands."

	Help = "/stream <m3u8_url> <rtmp_url> <stream_key> [bitrate] - Stream an M3U8 link to an RTMP destination.\n" +
		"Example: /stream http://example.com/playlist.m3u8 rtmp://a.rtmp.youtube.com/live2 abcd-1234-efgh-5678\n" +
		"/stop [stream_id] - Stop a stream. The id can be omitted when only one stream is running.\n" +
		"/stopall - Stop every stream.\n" +
		"/list - List active streams.\n" +
		"/stats - Show how long each stream has been running.\n" +
		"/uptime - Show how long the relay has been running.\n" +
		"/help - Show this help message."

	streamUsage = "Usage: /stream <m3u8_url> <rtmp_url> <stream_key> [bitrate]\n" +
		"Example: /stream http://example.com/playlist.m3u8 rtmp://a.rtmp.youtube.com/live2 abcd-1234-efgh-5678"

	noStreams = "No stream is currently running."
)

type Dispatcher struct {
	sup Supervisor
}

func NewDispatcher(sup Supervisor) *Dispatcher {
	return &Dispatcher{
		sup: sup,
	}
}

// Dispatch runs the command in text and returns the reply. Errors are
// reported in the reply text.
func (d *Dispatcher) Dispatch(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "Unknown command. Use /help to see available commands."
	}
	// commands addressed to a bot in a group chat look like /stop@name
	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	slog.Debug("dispatching chat command", "command", command, "args", len(args))

	switch command {
	case "/start":
		return Welcome
	case "/help":
		return Help
	case "/stream":
		return d.stream(args)
	case "/stop":
		return d.stop(args)
	case "/stopall":
		return d.stopAll()
	case "/list":
		return d.list()
	case "/stats":
		return d.stats()
	case "/uptime":
		return fmt.Sprintf("Bot uptime: %s", supervisor.FormatDuration(d.sup.Uptime()))
	default:
		return fmt.Sprintf("Unknown command %s. Use /help to see available commands.", command)
	}
}

func (d *Dispatcher) stream(args []string) string {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Sprintf("%s\nReceived: %q", streamUsage, args)
	}
	req := supervisor.StreamRequest{
		Source:          args[0],
		DestinationBase: args[1],
		Key:             args[2],
	}
	if len(args) == 4 {
		req.Bitrate = args[3]
	}
	id, err := d.sup.StartStream(req)
	if err != nil {
		var launchErr *process.LaunchError
		switch {
		case errors.Is(err, supervisor.ErrInvalidArgument):
			return "Invalid M3U8 or RTMP URL. Please check and try again."
		case errors.As(err, &launchErr):
			return fmt.Sprintf("Error starting stream: %s", launchErr.Err)
		default:
			return fmt.Sprintf("Error starting stream: %s", err)
		}
	}
	return fmt.Sprintf("Started stream %s from %s to %s",
		id, req.Source, supervisor.JoinDestination(req.DestinationBase, req.Key))
}

func (d *Dispatcher) stop(args []string) string {
	var id string
	switch len(args) {
	case 0:
		active := d.sup.ListStreams()
		switch len(active) {
		case 0:
			return noStreams
		case 1:
			id = active[0].ID
		default:
			return "Multiple streams are running. Use /stop <stream_id>:\n" + formatList(active)
		}
	case 1:
		id = args[0]
	default:
		return "Usage: /stop [stream_id]"
	}

	outcome, err := d.sup.StopStream(id)
	if err != nil {
		if errors.Is(err, supervisor.ErrNotFound) {
			return fmt.Sprintf("No stream with id %s is running.", id)
		}
		return fmt.Sprintf("Error stopping stream %s: %s", id, err)
	}
	return formatOutcome(outcome)
}

func (d *Dispatcher) stopAll() string {
	outcomes := d.sup.StopAll()
	if len(outcomes) == 0 {
		return noStreams
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stopped %d stream(s):", len(outcomes))
	for _, o := range outcomes {
		sb.WriteString("\n")
		sb.WriteString(formatOutcome(o))
	}
	return sb.String()
}

func (d *Dispatcher) list() string {
	active := d.sup.ListStreams()
	if len(active) == 0 {
		return noStreams
	}
	return "Active streams:\n" + formatList(active)
}

func (d *Dispatcher) stats() string {
	stats := d.sup.StreamStats()
	if len(stats) == 0 {
		return noStreams
	}
	var sb strings.Builder
	sb.WriteString("Stream stats:")
	for _, s := range stats {
		fmt.Fprintf(&sb, "\n%s: running for %s at %s (%s -> %s)",
			s.ID, supervisor.FormatDuration(s.Elapsed), s.Bitrate, s.Source, s.Destination)
	}
	return sb.String()
}

func formatList(streams []supervisor.StreamSummary) string {
	lines := make([]string, 0, len(streams))
	for _, s := range streams {
		lines = append(lines, fmt.Sprintf("%s: %s -> %s", s.ID, s.Source, s.Destination))
	}
	return strings.Join(lines, "\n")
}

func formatOutcome(o supervisor.StopOutcome) string {
	switch o.Termination {
	case process.TerminatedForcefully:
		return fmt.Sprintf("Stream %s forcefully stopped.", o.ID)
	case process.AlreadyExited:
		return fmt.Sprintf("Stream %s had already exited.", o.ID)
	default:
		return fmt.Sprintf("Stream %s stopped successfully.", o.ID)
	}
}
