package spectrum

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const tolerance = 1e-12

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		w, y    []float64
		wantErr error
	}{
		{"valid", []float64{1, 2, 3}, []float64{4, 5, 6}, nil},
		{"length mismatch", []float64{1, 2}, []float64{1}, ErrLengthMismatch},
		{"too short", []float64{1}, []float64{1}, ErrTooShort},
		{"not increasing", []float64{1, 1, 2}, []float64{0, 0, 0}, ErrNotIncreasing},
		{"decreasing", []float64{3, 2, 1}, []float64{0, 0, 0}, ErrNotIncreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.w, tt.y)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New: got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpectrum_MeanSpacing(t *testing.T) {
	s, err := New([]float64{100, 102, 104, 110}, []float64{0, 1, 2, 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := (110.0 - 100.0) / 3.0
	if math.Abs(s.MeanSpacing()-want) > tolerance {
		t.Errorf("MeanSpacing: got %g, want %g", s.MeanSpacing(), want)
	}
}

func TestSpectrum_QualityFractions(t *testing.T) {
	s := Spectrum{
		Wavenumbers: []float64{1, 2, 3, 4},
		Intensities: []float64{0, math.NaN(), 5, 0},
	}

	if got := s.NaNFraction(); math.Abs(got-0.25) > tolerance {
		t.Errorf("NaNFraction: got %g, want 0.25", got)
	}

	if got := s.ZeroFraction(); math.Abs(got-0.5) > tolerance {
		t.Errorf("ZeroFraction: got %g, want 0.5", got)
	}
}

func TestSpectrum_CheckQuality(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name    string
		y       []float64
		wantErr error
	}{
		{"clean", []float64{1, 2, 3, 4}, nil},
		{"mostly NaN", []float64{nan, nan, nan, 4}, ErrTooManyNaN},
		{"mostly zero", []float64{0, 0, 0, 4}, ErrTooManyZeros},
		{"exactly half zero passes", []float64{0, 0, 3, 4}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Spectrum{Wavenumbers: []float64{1, 2, 3, 4}, Intensities: tt.y}

			err := s.CheckQuality(0.5, 0.5)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckQuality: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpectrum_DropNaN(t *testing.T) {
	s := Spectrum{
		Wavenumbers: []float64{1, 2, 3, 4},
		Intensities: []float64{10, math.NaN(), 30, 40},
	}

	out := s.DropNaN()

	if out.Len() != 3 {
		t.Fatalf("DropNaN length: got %d, want 3", out.Len())
	}

	wantW := []float64{1, 3, 4}
	wantY := []float64{10, 30, 40}

	for i := range wantW {
		if out.Wavenumbers[i] != wantW[i] || out.Intensities[i] != wantY[i] {
			t.Errorf("DropNaN sample %d: got (%g, %g), want (%g, %g)",
				i, out.Wavenumbers[i], out.Intensities[i], wantW[i], wantY[i])
		}
	}
}

func TestReadTable_HeaderAndIdentifiers(t *testing.T) {
	input := "wavenumber,g01_p1,g01_p2\n100,1.0,2.0\n101,1.5,2.5\n102,2.0,3.0\n"

	table, err := ReadTable(strings.NewReader(input), "ZRN-7")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if table.Sample != "ZRN-7" {
		t.Errorf("Sample: got %q, want %q", table.Sample, "ZRN-7")
	}

	if len(table.Columns) != 2 {
		t.Fatalf("columns: got %d, want 2", len(table.Columns))
	}

	c := table.Columns[0]
	if c.Grain != "g01" || c.Location != "p1" {
		t.Errorf("identifiers: got (%q, %q), want (g01, p1)", c.Grain, c.Location)
	}

	if c.Spectrum.Len() != 3 {
		t.Errorf("spectrum length: got %d, want 3", c.Spectrum.Len())
	}

	if c.Spectrum.Intensities[2] != 2.0 {
		t.Errorf("intensity[2]: got %g, want 2.0", c.Spectrum.Intensities[2])
	}
}

func TestReadTable_NoHeader(t *testing.T) {
	input := "100,1.0\n101,2.0\n"

	table, err := ReadTable(strings.NewReader(input), "s")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if table.Columns[0].Name != "col1" {
		t.Errorf("synthesized name: got %q, want col1", table.Columns[0].Name)
	}
}

func TestReadTable_DecreasingAxisReversed(t *testing.T) {
	input := "wn,a\n300,3\n200,2\n100,1\n"

	table, err := ReadTable(strings.NewReader(input), "s")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	s := table.Columns[0].Spectrum
	if s.Wavenumbers[0] != 100 || s.Intensities[0] != 1 {
		t.Errorf("first sample after reversal: got (%g, %g), want (100, 1)",
			s.Wavenumbers[0], s.Intensities[0])
	}
}

func TestReadTable_BadCellsBecomeNaN(t *testing.T) {
	input := "wn,a\n100,1.0\n101,??\n102,3.0\n"

	table, err := ReadTable(strings.NewReader(input), "s")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if !math.IsNaN(table.Columns[0].Spectrum.Intensities[1]) {
		t.Errorf("bad cell: got %g, want NaN", table.Columns[0].Spectrum.Intensities[1])
	}
}

func TestReadTable_TooFewColumns(t *testing.T) {
	_, err := ReadTable(strings.NewReader("100\n101\n"), "s")
	if !errors.Is(err, ErrTooFewColumns) {
		t.Errorf("got %v, want ErrTooFewColumns", err)
	}
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), "s")
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("got %v, want ErrEmptyTable", err)
	}
}

func TestReadTable_TabDelimited(t *testing.T) {
	input := "wn\tg1_a\n100\t1.0\n101\t2.0\n"

	table, err := ReadTable(strings.NewReader(input), "s", WithDelimiter('\t'))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if table.Columns[0].Grain != "g1" {
		t.Errorf("grain: got %q, want g1", table.Columns[0].Grain)
	}
}

func TestGenerator_Synthetic(t *testing.T) {
	g := NewGenerator(WithSeed(42))

	s, err := g.Synthetic(SyntheticConfig{
		Start:   100,
		End:     1200,
		Samples: 1101,
		Peaks:   []PeakSpec{{Center: 1008, Amplitude: 1.0, Sigma: 4}},
	})
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}

	if s.Len() != 1101 {
		t.Fatalf("length: got %d, want 1101", s.Len())
	}

	// Noiseless peak apex sits on the grid point at 1008 cm⁻¹.
	iPeak := 908
	if s.Wavenumbers[iPeak] != 1008 {
		t.Fatalf("grid point: got %g, want 1008", s.Wavenumbers[iPeak])
	}

	if math.Abs(s.Intensities[iPeak]-1.0) > 1e-9 {
		t.Errorf("apex intensity: got %g, want 1.0", s.Intensities[iPeak])
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := SyntheticConfig{
		Start:      100,
		End:        200,
		Samples:    101,
		NoiseSigma: 0.05,
	}

	a, err := NewGenerator(WithSeed(7)).Synthetic(cfg)
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}

	b, err := NewGenerator(WithSeed(7)).Synthetic(cfg)
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}

	for i := range a.Intensities {
		if a.Intensities[i] != b.Intensities[i] {
			t.Fatalf("sample %d differs across identically seeded generators", i)
		}
	}
}

func TestGenerator_Validation(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Synthetic(SyntheticConfig{Start: 0, End: 10, Samples: 1}); err == nil {
		t.Error("expected error for too few samples")
	}

	if _, err := g.Synthetic(SyntheticConfig{Start: 10, End: 0, Samples: 5}); err == nil {
		t.Error("expected error for non-increasing range")
	}

	if _, err := g.Synthetic(SyntheticConfig{
		Start: 0, End: 10, Samples: 5,
		Peaks: []PeakSpec{{Center: 5, Amplitude: 1, Sigma: 0}},
	}); err == nil {
		t.Error("expected error for zero sigma")
	}

	if _, err := g.Synthetic(SyntheticConfig{
		Start: 0, End: 10, Samples: 5, NoiseSigma: -1,
	}); err == nil {
		t.Error("expected error for negative noise sigma")
	}
}
