// Package stats provides the robust statistics primitives used by the
// analytics pipeline: median/MAD based z-scores, Pearson correlation with
// significance testing, Huber regression for outlier-resistant trends, and
// an entropy-based consistency score.
package stats

import (
	"math"
	"sort"
)

// madScale rescales MAD so it estimates the standard deviation for
// normally distributed data.
const madScale = 1.4826

// Median returns the middle value of xs, averaging the two central values
// for even lengths. Returns 0 for an empty slice.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MAD returns the median absolute deviation of xs around its median,
// scaled to be consistent with the standard deviation.
func MAD(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	med := Median(xs)
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - med)
	}
	return Median(devs) * madScale
}

// ZScoresMedian returns robust z-scores computed against the median and
// scaled MAD. When the MAD is zero the data has no usable spread and all
// scores are zero.
func ZScoresMedian(xs []float64) []float64 {
	scores := make([]float64, len(xs))
	if len(xs) == 0 {
		return scores
	}
	med := Median(xs)
	mad := MAD(xs)
	if mad == 0 {
		return scores
	}
	for i, x := range xs {
		scores[i] = (x - med) / mad
	}
	return scores
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation, 0 for fewer than
// two values.
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// PearsonCorrelation returns the Pearson correlation coefficient of the
// paired samples. Returns 0 when fewer than two pairs are available or when
// either series has zero variance.
func PearsonCorrelation(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)
	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// PValueForCorrelation returns the two-tailed p-value of a Pearson
// correlation r observed over n pairs, using the Student-t distribution with
// n-2 degrees of freedom. Returns 1 when the test is not applicable.
func PValueForCorrelation(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	rr := r * r
	if rr >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := math.Abs(r) * math.Sqrt(df/(1-rr))
	return 2 * studentTSurvival(t, df)
}

// studentTSurvival returns P(T > t) for a Student-t variable with df
// degrees of freedom, via the regularized incomplete beta function.
func studentTSurvival(t, df float64) float64 {
	if t <= 0 {
		return 0.5
	}
	x := df / (df + t*t)
	return 0.5 * regularizedIncompleteBeta(df/2, 0.5, x)
}

// regularizedIncompleteBeta computes I_x(a, b) using the continued fraction
// expansion from Numerical Recipes.
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lnBeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lnBeta + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		tiny    = 1e-30
	)
	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d
	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm
		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c
		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// HuberOptions tunes the iteratively reweighted least squares fit.
type HuberOptions struct {
	Delta   float64 // residual scale at which the loss switches to linear
	MaxIter int
	Tol     float64
}

// DefaultHuberOptions matches the standard 95%-efficiency tuning constant.
func DefaultHuberOptions() HuberOptions {
	return HuberOptions{Delta: 1.345, MaxIter: 50, Tol: 1e-6}
}

// HuberResult is the fitted line y = Intercept + Slope*x with a goodness
// measure.
type HuberResult struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// HuberRegression fits a straight line robust to outliers using IRLS with
// Huber weights. Falls back to a degenerate flat fit for fewer than two
// points.
func HuberRegression(xs, ys []float64, opts HuberOptions) HuberResult {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n == 0 {
		return HuberResult{}
	}
	if n == 1 {
		return HuberResult{Intercept: ys[0]}
	}
	if opts.Delta <= 0 {
		opts = DefaultHuberOptions()
	}

	slope, intercept := olsFit(xs[:n], ys[:n])

	residuals := make([]float64, n)
	weights := make([]float64, n)
	for iter := 0; iter < opts.MaxIter; iter++ {
		for i := 0; i < n; i++ {
			residuals[i] = ys[i] - (intercept + slope*xs[i])
		}
		scale := MAD(residuals)
		if scale == 0 {
			break
		}
		for i := 0; i < n; i++ {
			r := math.Abs(residuals[i]) / scale
			if r <= opts.Delta {
				weights[i] = 1
			} else {
				weights[i] = opts.Delta / r
			}
		}
		newSlope, newIntercept, ok := weightedFit(xs[:n], ys[:n], weights)
		if !ok {
			break
		}
		if math.Abs(newSlope-slope) < opts.Tol && math.Abs(newIntercept-intercept) < opts.Tol {
			slope, intercept = newSlope, newIntercept
			break
		}
		slope, intercept = newSlope, newIntercept
	}

	return HuberResult{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared(xs[:n], ys[:n], slope, intercept),
	}
}

func olsFit(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func weightedFit(xs, ys, ws []float64) (slope, intercept float64, ok bool) {
	var sw, swx, swy, swxy, swxx float64
	for i := range xs {
		w := ws[i]
		sw += w
		swx += w * xs[i]
		swy += w * ys[i]
		swxy += w * xs[i] * ys[i]
		swxx += w * xs[i] * xs[i]
	}
	denom := sw*swxx - swx*swx
	if denom == 0 || sw == 0 {
		return 0, 0, false
	}
	slope = (sw*swxy - swx*swy) / denom
	intercept = (swy - slope*swx) / sw
	return slope, intercept, true
}

func rSquared(xs, ys []float64, slope, intercept float64) float64 {
	meanY := Mean(ys)
	var ssTot, ssRes float64
	for i := range xs {
		pred := intercept + slope*xs[i]
		dt := ys[i] - meanY
		dr := ys[i] - pred
		ssTot += dt * dt
		ssRes += dr * dr
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	return r2
}

// ConsistencyScore measures how evenly observations spread over categories
// using normalized Shannon entropy. 1 means perfectly uniform, 0 means a
// single dominant category (or not enough data to tell).
func ConsistencyScore(counts map[string]int) float64 {
	if len(counts) < 2 {
		if len(counts) == 1 {
			for _, c := range counts {
				if c > 0 {
					return 1
				}
			}
		}
		return 0
	}
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0
	}
	return entropy / maxEntropy
}

// Clamp01 restricts v to the [0,1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
