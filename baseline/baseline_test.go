package baseline

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-raman/spectrum"
)

const tolerance = 1e-10

func almostEqual(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}

	return math.Abs(a-b) <= tol
}

func generateAxis(n int, start, step float64) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = start + float64(i)*step
	}

	return xs
}

func addGaussian(y, x []float64, amp, center, sigma float64) {
	for i := range y {
		d := x[i] - center
		y[i] += amp * math.Exp(-d*d/(2*sigma*sigma))
	}
}

func mustSpectrum(t *testing.T, x, y []float64) spectrum.Spectrum {
	t.Helper()

	s, err := spectrum.New(x, y)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return s
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"Defaults", func(*Params) {}, nil},
		{"ZeroLambda", func(p *Params) { p.Lambda = 0 }, ErrInvalidLambda},
		{"NegativeLambda", func(p *Params) { p.Lambda = -1 }, ErrInvalidLambda},
		{"ZeroIterations", func(p *Params) { p.MaxIterations = 0 }, ErrInvalidIterations},
		{"ZeroTolerance", func(p *Params) { p.Tolerance = 0 }, ErrInvalidTolerance},
		{"ZeroDegree", func(p *Params) { p.PolyDegree = 0 }, ErrInvalidDegree},
		{"ZeroSmoothing", func(p *Params) { p.SplineSmoothing = 0 }, ErrInvalidSmoothing},
		{"SmoothingAboveOne", func(p *Params) { p.SplineSmoothing = 1.5 }, ErrInvalidSmoothing},
		{"NegativeProminence", func(p *Params) { p.MaskProminencePercent = -1 }, ErrInvalidProminence},
		{"ProminenceAbove100", func(p *Params) { p.MaskProminencePercent = 101 }, ErrInvalidProminence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)

			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name   string
		want   Method
		wantOK bool
	}{
		{"arpls", MethodARPLS, true},
		{"polynomial", MethodPolynomial, true},
		{"spline", MethodSpline, true},
		{"", MethodSpline, false},
		{"quadratic", MethodSpline, false},
	}

	for _, tt := range tests {
		t.Run("Name_"+tt.name, func(t *testing.T) {
			got, ok := ParseMethod(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMethod(%q) = (%v, %v), want (%v, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMethodString(t *testing.T) {
	pairs := map[Method]string{
		MethodARPLS:      "arpls",
		MethodPolynomial: "polynomial",
		MethodSpline:     "spline",
		Method(42):       "unknown",
	}

	for m, want := range pairs {
		if got := m.String(); got != want {
			t.Errorf("Method(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}

func TestPenaltyBands(t *testing.T) {
	t.Run("N5", func(t *testing.T) {
		diag, off1, off2 := penaltyBands(5)

		wantDiag := []float64{1, 5, 6, 5, 1}
		wantOff1 := []float64{-2, -4, -4, -2}
		wantOff2 := []float64{1, 1, 1}

		compareSlices(t, "diag", diag, wantDiag)
		compareSlices(t, "off1", off1, wantOff1)
		compareSlices(t, "off2", off2, wantOff2)
	})

	t.Run("N3", func(t *testing.T) {
		diag, off1, off2 := penaltyBands(3)

		compareSlices(t, "diag", diag, []float64{1, 4, 1})
		compareSlices(t, "off1", off1, []float64{-2, -2})
		compareSlices(t, "off2", off2, []float64{1})
	})
}

func compareSlices(t *testing.T, name string, got, want []float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("%s: length = %d, want %d", name, len(got), len(want))
	}

	for i := range want {
		if !almostEqual(got[i], want[i], tolerance) {
			t.Errorf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestReweight(t *testing.T) {
	t.Run("KnownResiduals", func(t *testing.T) {
		y := []float64{1, 2, 3, 4}
		z := []float64{2, 4, 2, 4}

		// Residuals: -1, -2, 1, 0. Negatives: mean -1.5, std 0.5, shift 2.5.
		w, ok := reweight(y, z)
		if !ok {
			t.Fatal("reweight() ok = false, want true")
		}

		want := []float64{
			math.Exp((-1 - 2.5) / 0.5),
			math.Exp((-2 - 2.5) / 0.5),
			0,
			math.Exp((0 - 2.5) / 0.5),
		}

		compareSlices(t, "weights", w, want)
	})

	t.Run("NoNegatives", func(t *testing.T) {
		if _, ok := reweight([]float64{2, 3}, []float64{1, 1}); ok {
			t.Error("reweight() ok = true for all-positive residuals, want false")
		}
	})

	t.Run("ZeroSpread", func(t *testing.T) {
		// Single negative residual has zero population deviation.
		if _, ok := reweight([]float64{0, 5}, []float64{1, 1}); ok {
			t.Error("reweight() ok = true for zero-spread negatives, want false")
		}
	})
}

func TestARPLSExactOnLine(t *testing.T) {
	// A straight line carries no curvature penalty and no point lies below
	// the first fit, so the solver returns it unchanged after one round.
	x := generateAxis(64, 100, 1)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = 2 + 0.01*float64(i)
	}

	s := mustSpectrum(t, x, y)

	corrected, base, err := Estimate(s, MethodARPLS, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	for i := range y {
		if !almostEqual(base[i], y[i], 1e-6) {
			t.Fatalf("base[%d] = %v, want %v", i, base[i], y[i])
		}

		if !almostEqual(corrected[i], 0, 1e-6) {
			t.Fatalf("corrected[%d] = %v, want 0", i, corrected[i])
		}
	}
}

func TestARPLSRecoversLinearBaseline(t *testing.T) {
	const (
		slope     = 0.01
		intercept = 2.0
		amp       = 5.0
		sigma     = 8.0
		center    = 250.0
	)

	x := generateAxis(500, 100, 1)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = intercept + slope*float64(i)
	}

	addGaussian(y, x, amp, 100+center, sigma)

	s := mustSpectrum(t, x, y)

	corrected, base, err := Estimate(s, MethodARPLS, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	for i := range y {
		if math.Abs(float64(i)-center) < 10*sigma {
			continue
		}

		line := intercept + slope*float64(i)
		if math.Abs(base[i]-line) > 0.1 {
			t.Fatalf("base[%d] = %v, want within 0.1 of %v", i, base[i], line)
		}
	}

	apex := corrected[int(center)]
	if apex < 4.5 || apex > 5.5 {
		t.Errorf("corrected apex = %v, want within [4.5, 5.5]", apex)
	}
}

func TestPolynomialRecoversCubic(t *testing.T) {
	x := generateAxis(501, 0, 0.02)
	y := make([]float64, len(x))

	cubic := func(v float64) float64 {
		return 2 + 0.5*v + 0.05*v*v + 0.01*v*v*v
	}

	for i := range y {
		y[i] = cubic(x[i])
	}

	// Narrow enough that the exclusion window swallows the whole peak.
	addGaussian(y, x, 10, 5, 0.03)

	s := mustSpectrum(t, x, y)

	corrected, base, err := Estimate(s, MethodPolynomial, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	for i := range base {
		if !almostEqual(base[i], cubic(x[i]), 1e-6) {
			t.Fatalf("base[%d] = %v, want %v", i, base[i], cubic(x[i]))
		}
	}

	apexIdx := 250 // x = 5
	if got := corrected[apexIdx]; !almostEqual(got, 10, 1e-3) {
		t.Errorf("corrected apex = %v, want 10", got)
	}
}

func TestPolynomialClipsToRaw(t *testing.T) {
	x := generateAxis(200, 100, 1)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = 1 + 0.5*math.Sin(float64(i)/10)
	}

	s := mustSpectrum(t, x, y)

	_, base, err := Estimate(s, MethodPolynomial, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	for i := range base {
		if base[i] > y[i]+tolerance {
			t.Fatalf("base[%d] = %v exceeds raw %v", i, base[i], y[i])
		}
	}
}

func TestFitPolyTooFewPoints(t *testing.T) {
	_, err := fitPoly([]float64{1, 2, 3}, []float64{1, 2, 3}, 3)
	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("fitPoly() error = %v, want %v", err, ErrTooFewPoints)
	}
}

func TestSplineOutputContract(t *testing.T) {
	x := generateAxis(400, 100, 1)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = 3 + 0.002*float64(i)
	}

	peakIdx := 200
	addGaussian(y, x, 8, x[peakIdx], 4)

	s := mustSpectrum(t, x, y)

	corrected, base, err := Estimate(s, MethodSpline, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	minVal, maxVal := corrected[0], corrected[0]
	argMax := 0

	for i, v := range corrected {
		if v < minVal {
			minVal = v
		}

		if v > maxVal {
			maxVal = v
			argMax = i
		}
	}

	if !almostEqual(minVal, 0, tolerance) {
		t.Errorf("min(corrected) = %v, want 0", minVal)
	}

	if !almostEqual(maxVal, 1, tolerance) {
		t.Errorf("max(corrected) = %v, want 1", maxVal)
	}

	if argMax != peakIdx {
		t.Errorf("corrected apex at %d, want %d", argMax, peakIdx)
	}

	for i := range base {
		if base[i] > y[i]+tolerance {
			t.Fatalf("base[%d] = %v exceeds raw %v", i, base[i], y[i])
		}
	}
}

func TestSplineFlatInput(t *testing.T) {
	x := generateAxis(50, 100, 1)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = 7
	}

	s := mustSpectrum(t, x, y)

	corrected, _, err := Estimate(s, MethodSpline, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	for i, v := range corrected {
		if v != 0 {
			t.Fatalf("corrected[%d] = %v, want 0", i, v)
		}
	}
}

func TestEstimateAdditivity(t *testing.T) {
	x := generateAxis(150, 200, 2)
	y := make([]float64, len(x))

	for i := range y {
		y[i] = 1 + 0.01*float64(i)
	}

	addGaussian(y, x, 3, 350, 10)

	s := mustSpectrum(t, x, y)

	for _, method := range []Method{MethodARPLS, MethodPolynomial} {
		t.Run(method.String(), func(t *testing.T) {
			corrected, base, err := Estimate(s, method, DefaultParams())
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}

			for i := range y {
				if !almostEqual(corrected[i]+base[i], y[i], 1e-9) {
					t.Fatalf("corrected[%d]+base[%d] = %v, want %v", i, i, corrected[i]+base[i], y[i])
				}
			}
		})
	}
}

func TestEstimateValidates(t *testing.T) {
	x := generateAxis(10, 100, 1)
	s := mustSpectrum(t, x, make([]float64, 10))

	p := DefaultParams()
	p.Lambda = 0

	if _, _, err := Estimate(s, MethodARPLS, p); !errors.Is(err, ErrInvalidLambda) {
		t.Errorf("Estimate() error = %v, want %v", err, ErrInvalidLambda)
	}
}

func TestPeakMask(t *testing.T) {
	y := make([]float64, 21)
	y[10] = 1

	mask := peakMask(y, 5)

	for i := range mask {
		want := i >= 9 && i <= 11
		if mask[i] != want {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], want)
		}
	}

	if got := unmaskedCount(mask); got != 18 {
		t.Errorf("unmaskedCount() = %d, want 18", got)
	}
}

func TestPeakMaskThresholdIsStrict(t *testing.T) {
	y := make([]float64, 21)
	y[10] = 1

	// Prominence equals 100% of the range, which does not exceed it.
	mask := peakMask(y, 100)

	if got := unmaskedCount(mask); got != len(y) {
		t.Errorf("unmaskedCount() = %d, want %d", got, len(y))
	}
}

func TestMedianMask(t *testing.T) {
	y := []float64{1, 5, 2, 6, 3}
	mask := medianMask(y)

	want := []bool{false, true, false, true, false}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], want[i])
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got := movingAverage([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{1.5, 2, 3, 4, 4.5}

	compareSlices(t, "movingAverage", got, want)
}

func TestSmoothingWindow(t *testing.T) {
	if got := smoothingWindow(0.05, 100); got != 5 {
		t.Errorf("smoothingWindow(0.05, 100) = %d, want 5", got)
	}

	if got := smoothingWindow(0.001, 100); got != 3 {
		t.Errorf("smoothingWindow(0.001, 100) = %d, want 3", got)
	}
}

func TestShiftScaleUnit(t *testing.T) {
	vals := []float64{2, 4, 6}
	shiftScaleUnit(vals)
	compareSlices(t, "shifted", vals, []float64{0, 0.5, 1})

	flat := []float64{3, 3}
	shiftScaleUnit(flat)
	compareSlices(t, "flat", flat, []float64{0, 0})
}

func TestProminenceAt(t *testing.T) {
	// Peak at 3 with valleys 1 (left) and 2 (right): prominence 5-2 = 3.
	y := []float64{4, 1, 3, 5, 2, 6}

	if got := prominenceAt(y, 3); !almostEqual(got, 3, tolerance) {
		t.Errorf("prominenceAt() = %v, want 3", got)
	}
}
