package system

import (
	"time"

	"github.com/zeusync/planetwalk/internal/core/events/bus"
)

// World is the view of the simulation handed to every system on Update.
type World interface {
	DeltaTime() float64
	TotalTime() time.Duration
	FrameCount() int64

	// Events returns the bus systems publish diagnostics on.
	Events() bus.EventBus

	IsPaused() bool
}
