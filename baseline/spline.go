package baseline

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/cwbudde/algo-raman/stats"
)

// fineGridFactor oversamples the spline before resampling back onto the
// original axis.
const fineGridFactor = 10

// splineBaseline masks prominent maxima and draws an Akima spline through
// the smoothed background anchors. When masking removes more than half of
// the spectrum the mask is rebuilt from the global median instead, keeping
// only points at or below it. The spline is evaluated on a grid ten times
// finer than the axis and resampled back by piecewise-linear interpolation;
// if the spline cannot be constructed the anchors are interpolated linearly.
// The result is clipped to the raw intensities.
func splineBaseline(x, y []float64, p Params) []float64 {
	n := len(y)
	mask := peakMask(y, p.MaskProminencePercent)

	if masked := n - unmaskedCount(mask); float64(masked)/float64(n) > 0.5 {
		mask = medianMask(y)
	}

	ax, ay := selectUnmasked(x, y, mask)
	if len(ax) < 2 {
		return flatBaseline(y)
	}

	window := smoothingWindow(p.SplineSmoothing, n)
	anchors := movingAverage(ay, window)

	base, err := akimaResample(x, ax, anchors)
	if err != nil {
		base = linearResample(x, ax, anchors)
	}

	for i := range base {
		if base[i] > y[i] {
			base[i] = y[i]
		}
	}

	return base
}

// medianMask masks every point above the global median intensity.
func medianMask(y []float64) []bool {
	median := stats.Median(y)
	mask := make([]bool, len(y))

	for i, v := range y {
		mask[i] = v > median
	}

	return mask
}

// smoothingWindow converts the smoothing fraction into a sample count of at
// least three.
func smoothingWindow(frac float64, n int) int {
	w := int(math.Round(frac * float64(n)))
	if w < 3 {
		w = 3
	}

	return w
}

// movingAverage smooths values with a centered window that shrinks at the
// edges.
func movingAverage(vals []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(vals))

	for i := range vals {
		lo := i - half
		if lo < 0 {
			lo = 0
		}

		hi := i + half
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}

		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += vals[j]
		}

		out[i] = sum / float64(hi-lo+1)
	}

	return out
}

// akimaResample fits an Akima spline through the anchors, samples it on a
// fine grid spanning the full axis and maps the samples back onto the axis
// by piecewise-linear interpolation.
func akimaResample(x, ax, ay []float64) ([]float64, error) {
	var spline interp.AkimaSpline
	if err := spline.Fit(ax, ay); err != nil {
		return nil, err
	}

	fine := make([]float64, fineGridFactor*len(x))
	floats.Span(fine, x[0], x[len(x)-1])

	fineVals := make([]float64, len(fine))
	for i, xv := range fine {
		fineVals[i] = spline.Predict(xv)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(fine, fineVals); err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	for i, xv := range x {
		out[i] = pl.Predict(xv)
	}

	return out, nil
}

// linearResample interpolates the anchors directly onto the axis.
func linearResample(x, ax, ay []float64) []float64 {
	out := make([]float64, len(x))

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ax, ay); err != nil {
		for i := range out {
			out[i] = ay[0]
		}

		return out
	}

	for i, xv := range x {
		out[i] = pl.Predict(xv)
	}

	return out
}
