package engine

import (
	"time"

	"github.com/rxtech-lab/argo-robot/internal/types"
)

// Lifecycle callback types for the robot's run loop.
// Callbacks with an error return abort the loop when they return an error.

// OnEngineStartCallback is called once before the first cycle.
type OnEngineStartCallback func(symbols []string, interval time.Duration) error

// OnEngineStopCallback is called when the loop exits (always called via defer).
type OnEngineStopCallback func(err error)

// OnCycleCallback is called after every completed cycle.
type OnCycleCallback func(result CycleResult) error

// OnErrorCallback is called when a cycle fails.
type OnErrorCallback func(err error)

// OnWarmupProgressCallback reports warm-up progress per symbol.
type OnWarmupProgressCallback func(current float64, total float64, message string)

// Callbacks holds the lifecycle callbacks of Run. Nil fields are skipped.
type Callbacks struct {
	// OnEngineStart is called once before the first cycle.
	OnEngineStart *OnEngineStartCallback

	// OnEngineStop is called when the loop exits.
	OnEngineStop *OnEngineStopCallback

	// OnCycle is called after every completed cycle.
	OnCycle *OnCycleCallback

	// OnError is called when a cycle fails.
	OnError *OnErrorCallback
}

// CycleResult summarizes one fetch-evaluate-execute cycle.
type CycleResult struct {
	Bars      []types.Bar
	Signals   types.SignalResult
	Responses []types.OrderResponse
	Duration  time.Duration
}
