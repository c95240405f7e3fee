// Package orchestrator drives the tick-based simulation loop: a fixed
// 5-phase pipeline (collection, fusion, routing, evacuation,
// advancement) executed under a single mutex per spec.md §4.8,
// mirroring the source SimulationManager's ordered-agent-execution
// design.
package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/marikina-frc/floodcore/internal/geo"
	"github.com/marikina-frc/floodcore/internal/raster"
	"github.com/marikina-frc/floodcore/internal/routing"
)

// State is the simulation's 3-state lifecycle.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Mode selects which raster return-period scenario fusion samples.
// Closed enum by construction: Start rejects any other value before a
// tick can ever run, so fusion and routing never observe an invalid mode.
type Mode string

const (
	ModeLight  Mode = "light"
	ModeMedium Mode = "medium"
	ModeHeavy  Mode = "heavy"
)

// modeToReturnPeriod mirrors MODE_TO_RETURN_PERIOD from the source
// simulation manager: LIGHT/MEDIUM/HEAVY map to the 2/5/25-year rasters.
var modeToReturnPeriod = map[Mode]raster.ReturnPeriodID{
	ModeLight:  "rr01",
	ModeMedium: "rr02",
	ModeHeavy:  "rr04",
}

func validMode(m Mode) bool {
	_, ok := modeToReturnPeriod[m]
	return ok
}

const MaxTimeStep = 18

// RequestID identifies a queued route request across ticks.
type RequestID string

// routeRequest is one queued AddRouteRequest call, resolved during the
// next tick's routing phase.
type routeRequest struct {
	ID      RequestID
	Start   geo.LatLon
	End     geo.LatLon
	Prefs   routing.Preferences
	AddedAt time.Time
}

// ResolvedRoute pairs a queued request's ID with its outcome once the
// routing phase has run.
type ResolvedRoute struct {
	ID     RequestID
	Result routing.RouteResult
	Err    error
}

func newRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// PhaseReport carries one phase's duration and headline counters for
// TickReport, the typed analogue of the source's tick_result["phases"] dict.
type PhaseReport struct {
	Duration time.Duration
	Counts   map[string]int
}

// TickReport is the full per-tick result, mirroring
// simulation_manager.py's tick_result dict as a typed struct.
type TickReport struct {
	Tick           int
	TimeStep       int
	Mode           Mode
	Collection     PhaseReport
	Fusion         PhaseReport
	Routing        PhaseReport
	Evacuation     PhaseReport
	Advancement    PhaseReport
	ResolvedRoutes []ResolvedRoute
	PhaseErrors    []string
}

// Status is the read-only snapshot returned by Status().
type Status struct {
	State               State
	Mode                Mode
	TotalRuntimeSeconds float64
	TickCount           int
	CurrentTimeStep     int
	ReturnPeriod        raster.ReturnPeriodID
	PendingRoutes       int
}

// StartReport, StopReport, ResetReport are the result shapes of their
// namesake operations, matching the source's returned status dicts.
type StartReport struct {
	State         State
	Mode          Mode
	TimeStep      int
	ReturnPeriod  raster.ReturnPeriodID
	StartedAt     time.Time
	PreviousState State
}

type StopReport struct {
	State               State
	Mode                Mode
	PausedAt            time.Time
	TotalRuntimeSeconds float64
	TickCount           int
	TimeStep            int
}

type ResetReport struct {
	State            State
	Mode             Mode
	PreviousState    State
	PreviousMode     Mode
	PreviousRuntimeS float64
	PreviousTicks    int
}
