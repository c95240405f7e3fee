// Package fusion implements the hazard fusion subsystem: it combines
// raster-derived flood depth, crowdsourced scout reports and an optional
// terrain prior into an authoritative per-edge risk score, written back
// to the graph once per tick.
package fusion

import (
	"errors"
	"time"
)

// ErrInvalidScoutReport and ErrInvalidFloodObservation are returned by
// the validation helpers; callers (the orchestrator) log and drop the
// record rather than propagate these.
var (
	ErrInvalidScoutReport      = errors.New("fusion: invalid scout report")
	ErrInvalidFloodObservation = errors.New("fusion: invalid flood observation")
)

// ReportType enumerates the ScoutReport.Type values the source accepts.
type ReportType string

const (
	ReportObservation ReportType = "observation"
	ReportWarning     ReportType = "warning"
	ReportEvacuation  ReportType = "evacuation"
)

// ScoutReport is a crowdsourced flood observation. Coordinates and
// Confidence are optional; a report missing coordinates still
// contributes to label-keyed fusion (Step B) but cannot drive spatial
// decay (Step E).
type ScoutReport struct {
	LocationLabel string
	Severity      float64 // required, [0,1]
	Timestamp     time.Time

	HasCoords bool
	Lat, Lon  float64

	HasConfidence bool
	Confidence    float64 // default 1.0 when absent

	Type     ReportType
	SourceID string
}

func (r ScoutReport) confidenceOrDefault() float64 {
	if r.HasConfidence {
		return r.Confidence
	}
	return 1.0
}

// Validate enforces the intake invariant: severity and confidence (when
// present) must lie in [0,1], location_label and timestamp must be set.
func (r ScoutReport) Validate() error {
	if r.LocationLabel == "" {
		return ErrInvalidScoutReport
	}
	if r.Timestamp.IsZero() {
		return ErrInvalidScoutReport
	}
	if r.Severity < 0 || r.Severity > 1 {
		return ErrInvalidScoutReport
	}
	if r.HasConfidence && (r.Confidence < 0 || r.Confidence > 1) {
		return ErrInvalidScoutReport
	}
	return nil
}

// FloodObservation is a tagged union of the three station-level gauge
// kinds. Exactly one of RiverLevel/WeatherPoint/DamLevel is set,
// matching the discriminant in Kind.
type FloodObservationKind int

const (
	KindRiverLevel FloodObservationKind = iota
	KindWeatherPoint
	KindDamLevel
)

type RiverLevel struct {
	StationName string
	WaterLevelM float64
	AlertM      float64
	AlarmM      float64
	CriticalM   float64
}

type WeatherPoint struct {
	Rainfall1hMM   float64
	Rainfall3hMM   float64
	IntensityClass string
}

type DamLevel struct {
	Name       string
	RWLM       float64 // reservoir water level
	NHWLM      float64 // normal high water level
	DeviationM float64
}

// FloodObservation wraps one of the three station kinds with a shared
// timestamp. Only the field matching Kind is meaningful.
type FloodObservation struct {
	Kind      FloodObservationKind
	Timestamp time.Time

	River   RiverLevel
	Weather WeatherPoint
	Dam     DamLevel
}

// Validate rejects observations with no timestamp; the three payload
// kinds carry no further required invariant in the source beyond being
// well-formed Go values.
func (o FloodObservation) Validate() error {
	if o.Timestamp.IsZero() {
		return ErrInvalidFloodObservation
	}
	return nil
}

// severityMultiplier maps a RiverLevel/DamLevel reading against its threshold
// bands into a [1.0, 1.5] multiplier, the "station multiplier" supplement
// (SPEC §9): a bounded amplifier on w_flood, never a mask.
func (o FloodObservation) severityMultiplier() float64 {
	switch o.Kind {
	case KindRiverLevel:
		return bandMultiplier(o.River.WaterLevelM, o.River.AlertM, o.River.AlarmM, o.River.CriticalM)
	case KindDamLevel:
		return bandMultiplier(o.Dam.RWLM, o.Dam.NHWLM, o.Dam.NHWLM, o.Dam.NHWLM+o.Dam.DeviationM)
	default:
		return 1.0
	}
}

// bandMultiplier returns 1.5 at/above critical, 1.3 at/above alarm, 1.15
// at/above alert, else 1.0 — a coarse three-band amplifier bounded to
// [1.0, 1.5] per the supplemented feature.
func bandMultiplier(value, alert, alarm, critical float64) float64 {
	switch {
	case critical > 0 && value >= critical:
		return 1.5
	case alarm > 0 && value >= alarm:
		return 1.3
	case alert > 0 && value >= alert:
		return 1.15
	default:
		return 1.0
	}
}
