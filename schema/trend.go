package schema

import (
	"math"
	"time"
)

// secondsPerDay converts between Unix seconds and day ordinals.
const secondsPerDay = 86400.0

// Ordinal maps a timestamp to fractional days since the Unix epoch.
func Ordinal(ts time.Time) float64 {
	return float64(ts.Unix()) / secondsPerDay
}

// FromOrdinal maps a day ordinal back to a UTC timestamp, rounded to the second.
func FromOrdinal(t float64) time.Time {
	sec := math.Round(t * secondsPerDay)
	return time.Unix(int64(sec), 0).UTC()
}

// TrendFit holds the parameters of count(t) = exp(Rate * (t - T0)).
// T0 and the domain bounds are day ordinals.
type TrendFit struct {
	Region     Region  `json:"region"`
	T0         float64 `json:"t0"`
	Rate       float64 `json:"rate"`
	DomainMin  float64 `json:"domain_min"`
	DomainMax  float64 `json:"domain_max"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"` // Root mean squared residual of the fit
}

// Eval evaluates the fitted model at ordinal t.
func (f TrendFit) Eval(t float64) float64 {
	return math.Exp(f.Rate * (t - f.T0))
}

// DoublingDays returns how many days the modelled count takes to double.
// A zero rate never doubles and yields +Inf.
func (f TrendFit) DoublingDays() float64 {
	if f.Rate <= 0 {
		return math.Inf(1)
	}
	return math.Ln2 / f.Rate
}

// CurvePoint is one sample of a fitted curve.
type CurvePoint struct {
	Ordinal   float64   `json:"ordinal"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// RegionTrend pairs a fit with the observations it was computed from.
type RegionTrend struct {
	Fit           TrendFit      `json:"fit"`
	Observed      []SeriesPoint `json:"observed"`
	LastObserved  int           `json:"last_observed"`
	Extrapolated  float64       `json:"extrapolated"`   // Model value at the extended domain end
	ExtrapolateTo time.Time     `json:"extrapolate_to"` // Timestamp of the extended domain end
	Monotonic     bool          `json:"monotonic"`
	Curve         []CurvePoint  `json:"curve,omitempty"`
}

// SkippedRegion records why a region has no fit.
type SkippedRegion struct {
	Region Region `json:"region"`
	Reason string `json:"reason"`
}

// TrendResult is the output of fitting every region's series.
type TrendResult struct {
	Trends   []RegionTrend   `json:"trends"`
	Excluded []Region        `json:"excluded"` // Below the minimum count, not an error
	Skipped  []SkippedRegion `json:"skipped"`  // Fit failed for these regions
}
