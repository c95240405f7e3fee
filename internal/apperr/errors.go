// Package apperr defines the closed set of error kinds surfaced at the
// core's boundary. Callers match these with errors.Is; none of them is
// raised from inside a tick's critical path (see orchestrator.RunTick).
package apperr

import "errors"

var (
	// ErrInvalidMode is returned by Start when mode is not Light, Medium or Heavy.
	ErrInvalidMode = errors.New("apperr: invalid simulation mode")

	// ErrNotRunning is returned by RunTick when the orchestrator is not Running.
	ErrNotRunning = errors.New("apperr: simulation is not running")

	// ErrInvalidTimeStep is returned when an explicit time step falls outside [1, T].
	ErrInvalidTimeStep = errors.New("apperr: invalid time step")

	// ErrInvalidCoordinates is returned when a query coordinate cannot be snapped to the graph.
	ErrInvalidCoordinates = errors.New("apperr: invalid coordinates")

	// ErrNoSafeRoute indicates routing could not produce a path clear of critical risk.
	// Routing itself never returns this as a hard failure (see spec §7); it is
	// exposed for callers that want to distinguish it from a generic error.
	ErrNoSafeRoute = errors.New("apperr: no safe route")

	// ErrRasterMissing is returned when the raster file for a scenario does not exist on disk.
	ErrRasterMissing = errors.New("apperr: raster file missing")

	// ErrRasterCorrupt is returned when a raster file exists but fails to decode.
	ErrRasterCorrupt = errors.New("apperr: raster file corrupt")

	// ErrUnknownCenter is returned when an evacuation center name has no entry in the directory.
	ErrUnknownCenter = errors.New("apperr: unknown evacuation center")

	// ErrCapacityExceeded is returned when add_evacuees would push occupancy past capacity.
	ErrCapacityExceeded = errors.New("apperr: capacity exceeded")
)
