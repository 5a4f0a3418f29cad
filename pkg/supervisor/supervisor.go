package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kralicky/streamrelay/pkg/events"
	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/streams"
	"github.com/kralicky/streamrelay/pkg/transcode"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGracePeriod  = 5 * time.Second
	DefaultReapInterval = 5 * time.Second

	// number of ids tried before giving up on a start
	maxStartAttempts = 8
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = streams.ErrNotFound
)

type Options struct {
	// How long a stopped stream's process is given to exit after SIGTERM
	// before it is killed. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration
	// Encoder settings for every stream. Defaults to transcode.DefaultProfile.
	Profile transcode.Profile
	// How often Run checks for streams whose process exited on its own.
	// Defaults to DefaultReapInterval; a negative value disables reaping.
	ReapInterval time.Duration
	// Receives stream lifecycle events. Optional.
	Events *events.Bus

	// Clock and NewID default to time.Now and streams.NewID.
	Clock func() time.Time
	NewID func() string
}

// Supervisor owns every active stream. It launches transcode processes,
// tracks them in a registry, and terminates them on request. All methods
// are safe for concurrent use.
type Supervisor struct {
	Options
	launcher  process.Launcher
	registry  *streams.Registry
	startedAt time.Time
}

func New(launcher process.Launcher, options Options) *Supervisor {
	if options.GracePeriod <= 0 {
		options.GracePeriod = DefaultGracePeriod
	}
	if options.Profile == (transcode.Profile{}) {
		options.Profile = transcode.DefaultProfile
	}
	if options.ReapInterval == 0 {
		options.ReapInterval = DefaultReapInterval
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.NewID == nil {
		options.NewID = streams.NewID
	}
	return &Supervisor{
		Options:   options,
		launcher:  launcher,
		registry:  streams.NewRegistry(),
		startedAt: options.Clock(),
	}
}

type StreamRequest struct {
	// Pull endpoint, e.g. an HLS playlist.
	Source string
	// Push endpoint without the stream key, e.g. rtmp://host/live.
	DestinationBase string
	Key             string
	// Display only. Defaults to the profile's video bitrate.
	Bitrate string
}

func (r StreamRequest) Validate() error {
	if !hasScheme(r.Source, "http://", "https://") {
		return fmt.Errorf("%w: source %q is not an http(s) url", ErrInvalidArgument, r.Source)
	}
	if !hasScheme(r.DestinationBase, "rtmp://", "rtmps://") {
		return fmt.Errorf("%w: destination %q is not an rtmp url", ErrInvalidArgument, r.DestinationBase)
	}
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: stream key cannot be empty", ErrInvalidArgument)
	}
	return nil
}

func hasScheme(url string, schemes ...string) bool {
	lower := strings.ToLower(url)
	for _, s := range schemes {
		if strings.HasPrefix(lower, s) && len(lower) > len(s) {
			return true
		}
	}
	return false
}

// JoinDestination appends the stream key to the destination base url.
func JoinDestination(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}

// StartStream launches a transcode process relaying req.Source to the
// destination built from req.DestinationBase and req.Key, and returns the
// new stream's id.
//
// Returns an error wrapping ErrInvalidArgument if the request is invalid, or
// a *process.LaunchError if the process could not be started. In both cases
// no stream is registered.
func (s *Supervisor) StartStream(req StreamRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	destination := JoinDestination(req.DestinationBase, req.Key)
	bitrate := req.Bitrate
	if bitrate == "" {
		bitrate = s.Profile.VideoBitrate
	}
	args := transcode.Args(req.Source, destination, s.Profile)

	for attempt := 0; attempt < maxStartAttempts; attempt++ {
		id := s.NewID()
		if _, err := s.registry.Get(id); err == nil {
			continue
		}
		lg := slog.With("stream", id)

		handle, err := s.launcher.Launch(id, args)
		if err != nil {
			lg.With("error", err).Error("failed to start stream")
			events.Publish(s.Events, events.StreamStartFailed{
				Source: req.Source,
				Error:  err.Error(),
				Time:   s.Clock(),
			})
			return "", err
		}

		rec := &streams.Record{
			ID:          id,
			Source:      req.Source,
			Destination: destination,
			StartedAt:   s.Clock(),
			Bitrate:     bitrate,
			Handle:      handle,
		}
		if err := s.registry.Insert(rec); err != nil {
			// another start claimed the id after the check above
			lg.Warn("stream id collision; retrying with a new id")
			handle.Terminate(s.GracePeriod)
			continue
		}

		lg.With(
			"source", req.Source,
			"destination", destination,
			"pid", handle.Pid(),
		).Info("stream started")
		events.Publish(s.Events, events.StreamStarted{
			ID:          id,
			Source:      req.Source,
			Destination: destination,
			Time:        rec.StartedAt,
		})
		return id, nil
	}
	return "", fmt.Errorf("failed to allocate a unique stream id after %d attempts", maxStartAttempts)
}

type StopOutcome struct {
	ID          string
	Source      string
	Destination string
	Termination process.Termination
}

// Forced reports whether the process had to be killed.
func (o StopOutcome) Forced() bool {
	return o.Termination == process.TerminatedForcefully
}

// StopStream removes the stream with the given id and terminates its
// process. Returns an error wrapping ErrNotFound if there is no such stream.
// Of concurrent calls for the same id, exactly one succeeds.
func (s *Supervisor) StopStream(id string) (StopOutcome, error) {
	rec, err := s.registry.Remove(id)
	if err != nil {
		return StopOutcome{}, err
	}
	return s.terminate(rec), nil
}

// StopAll stops every stream that is active at the time of the call and
// returns one outcome per stream, in the order the streams were started.
// Terminations run concurrently, so a stream that has to be killed does not
// delay the others.
func (s *Supervisor) StopAll() []StopOutcome {
	recs := s.registry.RemoveAll()
	outcomes := make([]StopOutcome, len(recs))
	var eg errgroup.Group
	for i, rec := range recs {
		i, rec := i, rec
		eg.Go(func() error {
			outcomes[i] = s.terminate(rec)
			return nil
		})
	}
	eg.Wait()
	if len(recs) > 0 {
		slog.Info("stopped all streams", "count", len(recs))
	}
	return outcomes
}

func (s *Supervisor) terminate(rec *streams.Record) StopOutcome {
	lg := slog.With("stream", rec.ID)
	lg.Debug("stopping stream")
	term := rec.Handle.Terminate(s.GracePeriod)
	switch term {
	case process.TerminatedForcefully:
		lg.Warn("stream did not stop within grace period and was killed", "gracePeriod", s.GracePeriod)
	default:
		lg.Info("stream stopped", "termination", term)
	}
	now := s.Clock()
	events.Publish(s.Events, events.StreamStopped{
		ID:       rec.ID,
		Outcome:  term.String(),
		Duration: now.Sub(rec.StartedAt),
		Time:     now,
	})
	return StopOutcome{
		ID:          rec.ID,
		Source:      rec.Source,
		Destination: rec.Destination,
		Termination: term,
	}
}

type StreamSummary struct {
	ID          string
	Source      string
	Destination string
}

type StreamStat struct {
	StreamSummary
	StartedAt time.Time
	Elapsed   time.Duration
	Bitrate   string
}

// ListStreams returns every active stream in the order they were started.
func (s *Supervisor) ListStreams() []StreamSummary {
	recs := s.registry.List()
	summaries := make([]StreamSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, summarize(rec))
	}
	return summaries
}

// StreamStats returns every active stream with its running time.
func (s *Supervisor) StreamStats() []StreamStat {
	recs := s.registry.List()
	now := s.Clock()
	stats := make([]StreamStat, 0, len(recs))
	for _, rec := range recs {
		stats = append(stats, StreamStat{
			StreamSummary: summarize(rec),
			StartedAt:     rec.StartedAt,
			Elapsed:       now.Sub(rec.StartedAt),
			Bitrate:       rec.Bitrate,
		})
	}
	return stats
}

// Output streams the output of the given stream's process. See
// process.Handle.Output.
func (s *Supervisor) Output(ctx context.Context, id string) (<-chan []byte, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Handle.Output(ctx), nil
}

// StartedAt returns the time the supervisor was created.
func (s *Supervisor) StartedAt() time.Time {
	return s.startedAt
}

func (s *Supervisor) Uptime() time.Duration {
	return s.Clock().Sub(s.startedAt)
}

func summarize(rec *streams.Record) StreamSummary {
	return StreamSummary{
		ID:          rec.ID,
		Source:      rec.Source,
		Destination: rec.Destination,
	}
}

// FormatDuration formats d as hours:minutes:seconds, e.g. "1:02:03".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
