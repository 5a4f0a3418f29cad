package events

import (
	"time"

	"github.com/kelindar/event"
)

// Event type identifiers for kelindar/event.
const (
	TypeStreamStarted uint32 = iota + 1
	TypeStreamStartFailed
	TypeStreamStopped
	TypeStreamSelfTerminated
)

type Event interface {
	Type() uint32
}

type StreamStarted struct {
	ID          string
	Source      string
	Destination string
	Time        time.Time
}

func (StreamStarted) Type() uint32 { return TypeStreamStarted }

type StreamStartFailed struct {
	Source string
	Error  string
	Time   time.Time
}

func (StreamStartFailed) Type() uint32 { return TypeStreamStartFailed }

// StreamStopped is published after a stream was removed by an explicit stop
// and its process terminated.
type StreamStopped struct {
	ID string
	// One of "graceful", "forced" or "exited".
	Outcome  string
	Duration time.Duration
	Time     time.Time
}

func (StreamStopped) Type() uint32 { return TypeStreamStopped }

// StreamSelfTerminated is published when a stream's process exited without
// being stopped, and the stream was removed from the registry.
type StreamSelfTerminated struct {
	ID       string
	ExitCode int
	Signal   string
	Duration time.Duration
	Time     time.Time
}

func (StreamSelfTerminated) Type() uint32 { return TypeStreamSelfTerminated }

// Bus broadcasts stream lifecycle events. A nil *Bus discards events.
type Bus struct {
	dispatcher *event.Dispatcher
}

func NewBus() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev asynchronously to every subscriber of its type.
func Publish[T Event](b *Bus, ev T) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, ev)
}

// Subscribe registers handler for events of type T and returns a function
// that removes the subscription.
func Subscribe[T Event](b *Bus, handler func(T)) func() {
	if b == nil {
		return func() {}
	}
	return event.Subscribe(b.dispatcher, handler)
}
