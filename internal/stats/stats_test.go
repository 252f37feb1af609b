package stats

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.in); got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestZScoresMedianZeroSpread(t *testing.T) {
	scores := ZScoresMedian([]float64{4, 4, 4, 4})
	for i, s := range scores {
		if s != 0 {
			t.Errorf("score[%d] = %v, want 0 for constant data", i, s)
		}
	}
}

func TestZScoresMedianFlagsOutlier(t *testing.T) {
	data := []float64{1, 1, 1, 1, 1, 1, 1, 10}
	scores := ZScoresMedian(data)
	last := scores[len(scores)-1]
	if last <= 2.5 {
		t.Errorf("outlier z-score = %v, expected > 2.5", last)
	}
	for i := 0; i < len(scores)-1; i++ {
		if scores[i] != 0 {
			t.Errorf("score[%d] = %v, want 0", i, scores[i])
		}
	}
}

func TestPearsonCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	perfect := PearsonCorrelation(xs, []float64{2, 4, 6, 8, 10})
	if math.Abs(perfect-1) > 1e-9 {
		t.Errorf("perfect positive correlation = %v, want 1", perfect)
	}
	inverse := PearsonCorrelation(xs, []float64{10, 8, 6, 4, 2})
	if math.Abs(inverse+1) > 1e-9 {
		t.Errorf("perfect negative correlation = %v, want -1", inverse)
	}
	if got := PearsonCorrelation([]float64{1}, []float64{2}); got != 0 {
		t.Errorf("single pair correlation = %v, want 0", got)
	}
	if got := PearsonCorrelation(xs, []float64{3, 3, 3, 3, 3}); got != 0 {
		t.Errorf("zero variance correlation = %v, want 0", got)
	}
}

func TestPValueForCorrelation(t *testing.T) {
	if got := PValueForCorrelation(0.9, 2); got != 1 {
		t.Errorf("p-value with n<3 = %v, want 1", got)
	}
	if got := PValueForCorrelation(1, 10); got != 0 {
		t.Errorf("p-value at |r|=1 = %v, want 0", got)
	}
	strong := PValueForCorrelation(0.95, 20)
	weak := PValueForCorrelation(0.1, 20)
	if strong >= 0.001 {
		t.Errorf("strong correlation p-value = %v, want < 0.001", strong)
	}
	if weak <= 0.5 {
		t.Errorf("weak correlation p-value = %v, want > 0.5", weak)
	}
	if strong >= weak {
		t.Errorf("expected p(strong)=%v < p(weak)=%v", strong, weak)
	}
}

func TestHuberRegressionRecoverLine(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2*x + 1
	}
	res := HuberRegression(xs, ys, DefaultHuberOptions())
	if math.Abs(res.Slope-2) > 1e-6 {
		t.Errorf("slope = %v, want 2", res.Slope)
	}
	if math.Abs(res.Intercept-1) > 1e-6 {
		t.Errorf("intercept = %v, want 1", res.Intercept)
	}
	if res.RSquared < 0.999 {
		t.Errorf("r-squared = %v, want ~1", res.RSquared)
	}
}

func TestHuberRegressionResistsOutlier(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2*x + 1
	}
	ys[5] = 100

	robust := HuberRegression(xs, ys, DefaultHuberOptions())
	olsSlope, _ := olsFit(xs, ys)
	if math.Abs(robust.Slope-2) >= math.Abs(olsSlope-2) {
		t.Errorf("huber slope %v not closer to 2 than ols slope %v", robust.Slope, olsSlope)
	}
}

func TestHuberRegressionDegenerate(t *testing.T) {
	if res := HuberRegression(nil, nil, DefaultHuberOptions()); res.Slope != 0 || res.Intercept != 0 {
		t.Errorf("empty fit = %+v, want zero", res)
	}
	res := HuberRegression([]float64{3}, []float64{7}, DefaultHuberOptions())
	if res.Intercept != 7 || res.Slope != 0 {
		t.Errorf("single point fit = %+v, want flat through y", res)
	}
}

func TestConsistencyScore(t *testing.T) {
	uniform := ConsistencyScore(map[string]int{"a": 5, "b": 5})
	if math.Abs(uniform-1) > 1e-9 {
		t.Errorf("uniform consistency = %v, want 1", uniform)
	}
	skewed := ConsistencyScore(map[string]int{"a": 99, "b": 1})
	if skewed >= uniform {
		t.Errorf("skewed consistency %v not below uniform %v", skewed, uniform)
	}
	if got := ConsistencyScore(nil); got != 0 {
		t.Errorf("empty consistency = %v, want 0", got)
	}
}

func TestClampAndRound(t *testing.T) {
	if got := Clamp01(1.5); got != 1 {
		t.Errorf("Clamp01(1.5) = %v", got)
	}
	if got := Clamp01(-0.2); got != 0 {
		t.Errorf("Clamp01(-0.2) = %v", got)
	}
	if got := Round2(0.125); got != 0.13 {
		t.Errorf("Round2(0.125) = %v", got)
	}
}
