package system

import "time"

// System is one stage of the simulation frame.
type System interface {
	Name() string
	Priority() Priority
	// Update advances the stage by deltaTime seconds.
	Update(deltaTime float64, world World) error
}

// Priority defines execution order. Higher priorities run first; equal
// priorities keep registration order.
type Priority uint16

// System priorities
const (
	PriorityLowest  Priority = 100
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// StateIdentity represents the current state of a registered system
type StateIdentity uint8

const (
	StateEnabled StateIdentity = iota
	StateDisabled
	StateFailed
)

func (s StateIdentity) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
}
