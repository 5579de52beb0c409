package algo

import (
	"context"
	"errors"

	"github.com/huangsam/casetrend/schema"
)

// SampleTrend returns n evenly spaced samples of the fitted curve over
// [min, min + (max-min)*(1+extend)].
func SampleTrend(fit schema.TrendFit, n int, extend float64) []schema.CurvePoint {
	if n <= 0 {
		n = schema.DefaultPoints
	}
	lo := fit.DomainMin
	hi := ExtendedEnd(fit, extend)
	out := make([]schema.CurvePoint, n)
	for i := range n {
		t := lo
		if n > 1 {
			t = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = schema.CurvePoint{Ordinal: t, Timestamp: schema.FromOrdinal(t), Value: fit.Eval(t)}
	}
	return out
}

// ExtendedEnd is the last ordinal covered by SampleTrend.
func ExtendedEnd(fit schema.TrendFit, extend float64) float64 {
	return fit.DomainMin + (fit.DomainMax-fit.DomainMin)*(1+extend)
}

// TrendOptions configures FitAll.
type TrendOptions struct {
	Fit    FitOptions
	Points int     // Curve samples per region, 0 leaves curves out
	Extend float64 // Fraction of the observed span to extrapolate
}

// FitAll fits every series. Regions under the threshold are listed as
// excluded and failed fits as skipped; neither stops the batch.
func FitAll(ctx context.Context, series []schema.TimeSeries, opts TrendOptions) schema.TrendResult {
	var result schema.TrendResult
	for _, ts := range series {
		fit, err := FitExponential(ctx, ts.Region, ts.Points, opts.Fit)
		if errors.Is(err, ErrBelowThreshold) {
			result.Excluded = append(result.Excluded, ts.Region)
			continue
		}
		if err != nil {
			reason := err.Error()
			var convErr *FitConvergenceError
			if errors.As(err, &convErr) {
				reason = convErr.Reason
			}
			result.Skipped = append(result.Skipped, schema.SkippedRegion{Region: ts.Region, Reason: reason})
			continue
		}

		end := ExtendedEnd(fit, opts.Extend)
		trend := schema.RegionTrend{
			Fit:           fit,
			Observed:      ts.Points,
			LastObserved:  ts.LastCount,
			Extrapolated:  fit.Eval(end),
			ExtrapolateTo: schema.FromOrdinal(end),
			Monotonic:     ts.IsMonotonic(),
		}
		if opts.Points > 0 {
			trend.Curve = SampleTrend(fit, opts.Points, opts.Extend)
		}
		result.Trends = append(result.Trends, trend)
	}
	return result
}
