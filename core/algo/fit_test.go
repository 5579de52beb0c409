package algo

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/huangsam/casetrend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dayPoints builds points at the given day ordinals.
func dayPoints(days []float64, f func(float64) int) []schema.SeriesPoint {
	out := make([]schema.SeriesPoint, len(days))
	for i, d := range days {
		ts := time.Unix(int64(d*86400), 0).UTC()
		out[i] = schema.SeriesPoint{Timestamp: ts, Count: f(d)}
	}
	return out
}

func TestFitExponentialRecoversExactCurve(t *testing.T) {
	// exp(0.1*t) on 0..10 stays below 3, so the float model is fitted
	// directly; integer counts would round the curve away.
	obs := make([]observation, 11)
	for i := range obs {
		d := float64(i)
		obs[i] = observation{x: d, y: math.Exp(0.1 * d)}
	}
	fit, err := fitObservations(context.Background(), "Test", obs, FitOptions{MaxIterations: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, fit.Rate, 1e-6)
	assert.InDelta(t, 0.0, fit.T0, 1e-4)
	assert.InDelta(t, 0.0, fit.DomainMin, 1e-12)
	assert.InDelta(t, 10.0, fit.DomainMax, 1e-12)
	assert.InDelta(t, math.Ln2/0.1, fit.DoublingDays(), 1e-3)
}

func TestFitExponentialRealisticSeries(t *testing.T) {
	x0 := schema.Ordinal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	t0 := x0 - 20
	days := make([]float64, 15)
	for i := range days {
		days[i] = x0 + float64(i)
	}
	points := dayPoints(days, func(d float64) int { return int(math.Round(math.Exp(0.2 * (d - t0)))) })

	fit, err := FitExponential(context.Background(), "Bayern", points, DefaultFitOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.2, fit.Rate, 0.005)
	assert.InDelta(t, t0, fit.T0, 0.5)
	assert.Equal(t, schema.Region("Bayern"), fit.Region)

	t.Run("input order is not trusted", func(t *testing.T) {
		shuffled := make([]schema.SeriesPoint, len(points))
		copy(shuffled, points)
		r := rand.New(rand.NewPCG(1, 2))
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again, err := FitExponential(context.Background(), "Bayern", shuffled, DefaultFitOptions())
		require.NoError(t, err)
		assert.InDelta(t, fit.Rate, again.Rate, 1e-9)
		assert.InDelta(t, fit.T0, again.T0, 1e-6)
	})
}

func TestFitExponentialExclusions(t *testing.T) {
	days := []float64{0, 1, 2, 3, 4}

	t.Run("flat small series is below threshold", func(t *testing.T) {
		points := dayPoints(days, func(float64) int { return 5 })
		_, err := FitExponential(context.Background(), "Bremen", points, DefaultFitOptions())
		assert.ErrorIs(t, err, ErrBelowThreshold)
	})

	t.Run("flat large series fails", func(t *testing.T) {
		points := dayPoints(days, func(float64) int { return 500 })
		_, err := FitExponential(context.Background(), "Bremen", points, DefaultFitOptions())
		var convErr *FitConvergenceError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, schema.Region("Bremen"), convErr.Region)
		assert.Contains(t, convErr.Reason, "flat")
	})

	t.Run("too few timestamps", func(t *testing.T) {
		points := dayPoints([]float64{0, 1, 1}, func(d float64) int { return 100 + int(d)*10 })
		_, err := FitExponential(context.Background(), "Saarland", points, DefaultFitOptions())
		var convErr *FitConvergenceError
		require.ErrorAs(t, err, &convErr)
		assert.Contains(t, convErr.Reason, "3 distinct")
	})

	t.Run("cancelled context is a skipped region", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		points := dayPoints(days, func(d float64) int { return 60 + int(d*d)*30 })
		_, err := FitExponential(ctx, "Hessen", points, DefaultFitOptions())
		var convErr *FitConvergenceError
		require.ErrorAs(t, err, &convErr)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSampleTrend(t *testing.T) {
	fit := schema.TrendFit{T0: 0, Rate: 0.1, DomainMin: 10, DomainMax: 20}
	curve := SampleTrend(fit, 500, 0.2)
	require.Len(t, curve, 500)
	assert.InDelta(t, 10.0, curve[0].Ordinal, 1e-12)
	assert.InDelta(t, 22.0, curve[499].Ordinal, 1e-9)
	assert.InDelta(t, math.Exp(2.2), curve[499].Value, 1e-9)
	for i := 1; i < len(curve); i++ {
		assert.Greater(t, curve[i].Ordinal, curve[i-1].Ordinal)
	}

	assert.Len(t, SampleTrend(fit, 0, 0.2), schema.DefaultPoints)
	single := SampleTrend(fit, 1, 0.2)
	require.Len(t, single, 1)
	assert.InDelta(t, 10.0, single[0].Ordinal, 1e-12)
}

func TestFitAll(t *testing.T) {
	x0 := schema.Ordinal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	days := make([]float64, 10)
	for i := range days {
		days[i] = x0 + float64(i)
	}
	growing := dayPoints(days, func(d float64) int { return int(math.Round(100 * math.Exp(0.15*(d-x0)))) })
	series := []schema.TimeSeries{
		{Region: "Bayern", Points: growing, LastCount: growing[len(growing)-1].Count},
		{Region: "Bremen", Points: dayPoints(days, func(float64) int { return 3 })},
		{Region: "Berlin", Points: dayPoints(days, func(float64) int { return 80 })},
	}

	result := FitAll(context.Background(), series, TrendOptions{Fit: DefaultFitOptions(), Points: 50, Extend: 0.2})
	require.Len(t, result.Trends, 1)
	trend := result.Trends[0]
	assert.Equal(t, schema.Region("Bayern"), trend.Fit.Region)
	assert.Len(t, trend.Curve, 50)
	assert.Greater(t, trend.Extrapolated, float64(trend.LastObserved))
	assert.Equal(t, []schema.Region{"Bremen"}, result.Excluded)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, schema.Region("Berlin"), result.Skipped[0].Region)
}
