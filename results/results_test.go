package results

import (
	"testing"

	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/zircon"
)

func makeTable(fwhms ...float64) Table {
	var t Table

	for i, w := range fwhms {
		t.Add(PeakRecord{
			Sample:    "S1",
			Column:    "c1",
			PeakIndex: i,
			Fit:       peakfit.FittedPeak{FWHM: w, Center: 1000 + float64(i), R2: 0.9, AnalyticArea: 2 * w},
			Region:    zircon.RegionNu3,
		})
	}

	return t
}

func TestTableRemoveKeepsOrderAndSource(t *testing.T) {
	table := makeTable(4, 8, 12, 16, 20)
	drop := NewIndexSet(1, 3)

	cleaned := table.Remove(drop)

	if cleaned.Len() != 3 {
		t.Fatalf("cleaned Len() = %d, want 3", cleaned.Len())
	}

	wantFWHM := []float64{4, 12, 20}
	for i, rec := range cleaned.Records {
		if rec.Fit.FWHM != wantFWHM[i] {
			t.Errorf("cleaned row %d FWHM = %v, want %v", i, rec.Fit.FWHM, wantFWHM[i])
		}
	}

	if table.Len() != 5 {
		t.Errorf("source table mutated: Len() = %d, want 5", table.Len())
	}

	for i, w := range []float64{4, 8, 12, 16, 20} {
		if table.Records[i].Fit.FWHM != w {
			t.Errorf("source row %d FWHM = %v, want %v", i, table.Records[i].Fit.FWHM, w)
		}
	}
}

func TestTableRemoveEmptySet(t *testing.T) {
	table := makeTable(4, 8)

	cleaned := table.Remove(NewIndexSet())
	if cleaned.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cleaned.Len())
	}
}

func TestRegionIndices(t *testing.T) {
	var table Table

	regions := []zircon.Region{
		zircon.RegionNu3,
		zircon.RegionNu1,
		zircon.RegionNu3,
		zircon.RegionUnclassified,
		zircon.RegionNu3,
	}
	for i, r := range regions {
		table.Add(PeakRecord{PeakIndex: i, Region: r})
	}

	got := table.RegionIndices()

	tests := []struct {
		region zircon.Region
		want   []int
	}{
		{zircon.RegionNu3, []int{0, 2, 4}},
		{zircon.RegionNu1, []int{1}},
		{zircon.RegionUnclassified, []int{3}},
	}
	for _, tt := range tests {
		indices, ok := got[tt.region]
		if !ok {
			t.Errorf("region %v missing from grouping", tt.region)
			continue
		}

		if len(indices) != len(tt.want) {
			t.Errorf("region %v: got %d indices, want %d", tt.region, len(indices), len(tt.want))
			continue
		}

		for i := range indices {
			if indices[i] != tt.want[i] {
				t.Errorf("region %v index %d = %d, want %d", tt.region, i, indices[i], tt.want[i])
			}
		}
	}

	if _, ok := got[zircon.RegionNu2]; ok {
		t.Error("empty region should not appear in grouping")
	}
}

func TestExtractors(t *testing.T) {
	table := makeTable(4, 8, 12)
	indices := []int{2, 0}

	fwhms := table.FWHMs(indices)
	if fwhms[0] != 12 || fwhms[1] != 4 {
		t.Errorf("FWHMs = %v, want [12 4]", fwhms)
	}

	centers := table.Centers(indices)
	if centers[0] != 1002 || centers[1] != 1000 {
		t.Errorf("Centers = %v, want [1002 1000]", centers)
	}

	areas := table.Areas(indices)
	if areas[0] != 24 || areas[1] != 8 {
		t.Errorf("Areas = %v, want [24 8]", areas)
	}

	r2s := table.R2s([]int{1})
	if len(r2s) != 1 || r2s[0] != 0.9 {
		t.Errorf("R2s = %v, want [0.9]", r2s)
	}
}

func TestIndexSetUnion(t *testing.T) {
	a := NewIndexSet(1, 3, 5)
	b := NewIndexSet(3, 4)

	u := a.Union(b)

	want := []int{1, 3, 4, 5}
	got := u.Sorted()

	if len(got) != len(want) {
		t.Fatalf("Union size = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sorted()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if a.Len() != 3 || b.Len() != 2 {
		t.Error("Union modified an operand")
	}
}

func TestIndexSetHas(t *testing.T) {
	s := NewIndexSet(2, 7)

	if !s.Has(2) || !s.Has(7) {
		t.Error("Has() missed a member")
	}

	if s.Has(3) {
		t.Error("Has(3) = true for non-member")
	}
}
