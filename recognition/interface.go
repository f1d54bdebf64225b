package recognition

import (
	"context"
	"time"

	"github.com/google/uuid"

	"voice-referee/command_smoother"
)

// CommandEvent is a newly confirmed command.
type CommandEvent struct {
	ID    uuid.UUID
	Label string
	Score float32

	// Timestamp is the wall-clock time of the detection; Offset is the
	// monotonic millisecond timestamp the smoother saw.
	Timestamp time.Time
	Offset    int64

	// Window is a copy of the samples the command was recognised in.
	Window []int16
}

// CommandListener consumes command events. Calls are made from the loop's
// dispatch goroutine, one event at a time; a slow listener delays later
// events but never the recognition loop.
type CommandListener interface {
	OnCommand(ctx context.Context, event CommandEvent)
}

// ListenerFunc adapts a function to CommandListener.
type ListenerFunc func(ctx context.Context, event CommandEvent)

func (f ListenerFunc) OnCommand(ctx context.Context, event CommandEvent) {
	f(ctx, event)
}

// Smoother is the part of command_smoother.Smoother the loop drives.
type Smoother interface {
	Process(scores []float32, timestampMs int64) (command_smoother.Result, error)
	SilenceLabel() string
}
