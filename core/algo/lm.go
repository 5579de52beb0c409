package algo

import (
	"context"
	"errors"
	"math"
)

// Solver tuning. The fit has two parameters, so the normal equations are
// solved in closed form.
const (
	lambdaInit = 1e-3
	lambdaMax  = 1e16
	lambdaMin  = 1e-15
	ftol       = 1e-14
	xtol       = 1e-12
)

var (
	errNonFinite    = errors.New("cost is not finite")
	errNoConverge   = errors.New("iteration limit reached")
	errSingularStep = errors.New("normal equations are singular")
)

// model is a two-parameter least squares problem with box constraints.
type model struct {
	// eval writes residuals for p into r and the Jacobian rows into jac (may be nil).
	eval  func(p [2]float64, r []float64, jac [][2]float64)
	lower [2]float64
	upper [2]float64
	n     int
}

// lmResult is the outcome of one solver run.
type lmResult struct {
	params     [2]float64
	cost       float64
	iterations int
}

func (m *model) project(p [2]float64) [2]float64 {
	for i := range p {
		p[i] = math.Min(math.Max(p[i], m.lower[i]), m.upper[i])
	}
	return p
}

func (m *model) cost(p [2]float64, r []float64) float64 {
	m.eval(p, r, nil)
	sum := 0.0
	for _, v := range r {
		sum += v * v
	}
	return sum
}

// solveLM minimizes the sum of squared residuals starting at start, keeping
// every iterate inside the box by projection. Steps that do not lower the
// cost, or that produce a non-finite cost, are rejected and the damping grows.
func solveLM(ctx context.Context, m *model, start [2]float64, maxIter int) (lmResult, error) {
	r := make([]float64, m.n)
	rTry := make([]float64, m.n)
	jac := make([][2]float64, m.n)

	p := m.project(start)
	cost := m.cost(p, r)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return lmResult{}, errNonFinite
	}

	lambda := lambdaInit
	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return lmResult{}, err
		}
		if cost == 0 {
			return lmResult{params: p, cost: cost, iterations: iter - 1}, nil
		}

		m.eval(p, r, jac)
		var a [2][2]float64
		var g [2]float64
		for i := range m.n {
			j0, j1 := jac[i][0], jac[i][1]
			a[0][0] += j0 * j0
			a[0][1] += j0 * j1
			a[1][1] += j1 * j1
			g[0] += j0 * r[i]
			g[1] += j1 * r[i]
		}
		a[1][0] = a[0][1]
		if !finiteAll(a[0][0], a[0][1], a[1][1], g[0], g[1]) {
			return lmResult{}, errNonFinite
		}

		// Marquardt scaling: damp along the Jacobian's own column norms.
		floor := 1e-12 * math.Max(1, math.Max(a[0][0], a[1][1]))
		d0, d1 := math.Max(a[0][0], floor), math.Max(a[1][1], floor)

		accepted := false
		for !accepted {
			b00, b11 := a[0][0]+lambda*d0, a[1][1]+lambda*d1
			det := b00*b11 - a[0][1]*a[1][0]
			if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
				if lambda >= lambdaMax {
					return lmResult{}, errSingularStep
				}
				lambda *= 10
				continue
			}
			step := [2]float64{
				(-g[0]*b11 + g[1]*a[0][1]) / det,
				(-g[1]*b00 + g[0]*a[1][0]) / det,
			}
			next := m.project([2]float64{p[0] + step[0], p[1] + step[1]})
			nextCost := m.cost(next, rTry)

			if !math.IsNaN(nextCost) && !math.IsInf(nextCost, 0) && nextCost < cost {
				moved := math.Hypot(next[0]-p[0], next[1]-p[1])
				size := math.Hypot(p[0], p[1])
				reduction := cost - nextCost
				p, cost = next, nextCost
				lambda = math.Max(lambda/10, lambdaMin)
				accepted = true
				if reduction <= ftol*cost || moved <= xtol*(size+xtol) {
					return lmResult{params: p, cost: cost, iterations: iter}, nil
				}
				continue
			}

			lambda *= 10
			if lambda > lambdaMax {
				// No downhill step exists at working precision: p is a
				// local minimum inside the box.
				return lmResult{params: p, cost: cost, iterations: iter}, nil
			}
		}
	}
	return lmResult{}, errNoConverge
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
