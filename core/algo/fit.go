// Package algo fits growth models to per-region case series.
package algo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/casetrend/schema"
)

// ErrBelowThreshold marks a series too small to fit. Callers leave the
// region out of the output; it is not a failure.
var ErrBelowThreshold = errors.New("series maximum is below the fit threshold")

// FitConvergenceError reports a region whose fit failed. The batch goes on.
type FitConvergenceError struct {
	Region schema.Region
	Reason string
	Err    error
}

func (e *FitConvergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fit for %s failed: %s: %v", e.Region, e.Reason, e.Err)
	}
	return fmt.Sprintf("fit for %s failed: %s", e.Region, e.Reason)
}

func (e *FitConvergenceError) Unwrap() error { return e.Err }

// FitOptions controls the exponential fit.
type FitOptions struct {
	MinCount      int // Series whose maximum is below this are excluded
	MaxIterations int
}

// DefaultFitOptions returns the options used by the CLI.
func DefaultFitOptions() FitOptions {
	return FitOptions{MinCount: schema.DefaultMinCount, MaxIterations: 1000}
}

type observation struct {
	x float64 // day ordinal
	y float64 // count
}

// FitExponential fits count(t) = exp(c*(t - t0)) with t0 >= 0 and c >= 0 by
// bounded Levenberg-Marquardt. The solver starts at t0 = first ordinal and
// c = 1; when the counts allow a log-linear regression it is also started
// from that guess, and the lower cost of the converged runs wins.
func FitExponential(ctx context.Context, region schema.Region, points []schema.SeriesPoint, opts FitOptions) (schema.TrendFit, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultFitOptions().MaxIterations
	}

	peak := 0
	obs := make([]observation, 0, len(points))
	for _, p := range points {
		peak = max(peak, p.Count)
		obs = append(obs, observation{x: schema.Ordinal(p.Timestamp), y: float64(p.Count)})
	}
	if peak < opts.MinCount {
		return schema.TrendFit{}, ErrBelowThreshold
	}
	return fitObservations(ctx, region, obs, opts)
}

// fitObservations runs the solver on raw (ordinal, value) pairs.
func fitObservations(ctx context.Context, region schema.Region, obs []observation, opts FitOptions) (schema.TrendFit, error) {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].x < obs[j].x })
	if reason := checkObservations(obs); reason != "" {
		return schema.TrendFit{}, &FitConvergenceError{Region: region, Reason: reason}
	}

	// Work relative to the first ordinal: s = t0 - x0 keeps exp() arguments
	// small while t0 >= 0 becomes s >= -x0.
	x0 := obs[0].x
	m := &model{
		n:     len(obs),
		lower: [2]float64{-x0, 0},
		upper: [2]float64{math.Inf(1), math.Inf(1)},
		eval: func(p [2]float64, r []float64, jac [][2]float64) {
			s, c := p[0], p[1]
			for i, o := range obs {
				u := o.x - x0 - s
				e := math.Exp(c * u)
				r[i] = e - o.y
				if jac != nil {
					jac[i] = [2]float64{-c * e, u * e}
				}
			}
		},
	}

	starts := [][2]float64{{0, 1}}
	if guess, ok := logLinearGuess(obs, x0); ok {
		starts = append(starts, guess)
	}

	var best *lmResult
	var lastErr error
	for _, start := range starts {
		res, err := solveLM(ctx, m, start, opts.MaxIterations)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return schema.TrendFit{}, &FitConvergenceError{Region: region, Reason: "deadline exceeded", Err: ctxErr}
			}
			lastErr = err
			continue
		}
		if best == nil || res.cost < best.cost {
			best = &res
		}
	}
	if best == nil {
		return schema.TrendFit{}, &FitConvergenceError{Region: region, Reason: "solver did not converge", Err: lastErr}
	}

	fit := schema.TrendFit{
		Region:     region,
		T0:         best.params[0] + x0,
		Rate:       best.params[1],
		DomainMin:  obs[0].x,
		DomainMax:  obs[len(obs)-1].x,
		Iterations: best.iterations,
		Residual:   math.Sqrt(best.cost / float64(len(obs))),
	}
	if !finiteAll(fit.T0, fit.Rate, fit.Residual) {
		return schema.TrendFit{}, &FitConvergenceError{Region: region, Reason: "parameters are not finite"}
	}
	return fit, nil
}

// checkObservations returns why obs cannot be fitted, or "".
func checkObservations(obs []observation) string {
	distinct := 0
	for i, o := range obs {
		if !finiteAll(o.x, o.y) {
			return "series has non-finite values"
		}
		if i == 0 || o.x != obs[i-1].x {
			distinct++
		}
	}
	if distinct < 3 {
		return fmt.Sprintf("need at least 3 distinct timestamps, have %d", distinct)
	}
	flat := true
	for _, o := range obs[1:] {
		if o.y != obs[0].y {
			flat = false
			break
		}
	}
	if flat {
		return "series is flat"
	}
	return ""
}

// logLinearGuess regresses ln(count) on the shifted ordinal. It returns
// false when fewer than two positive counts exist or the slope is not positive.
func logLinearGuess(obs []observation, x0 float64) ([2]float64, bool) {
	var n, sx, sy, sxx, sxy float64
	for _, o := range obs {
		if o.y <= 0 {
			continue
		}
		u, ly := o.x-x0, math.Log(o.y)
		n++
		sx += u
		sy += ly
		sxx += u * u
		sxy += u * ly
	}
	if n < 2 {
		return [2]float64{}, false
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return [2]float64{}, false
	}
	slope := (n*sxy - sx*sy) / den
	intercept := (sy - slope*sx) / n
	if slope <= 0 || !finiteAll(slope, intercept) {
		return [2]float64{}, false
	}
	// ln y = c*u - c*s, so s = -intercept / c.
	return [2]float64{math.Max(-intercept/slope, -x0), slope}, true
}
