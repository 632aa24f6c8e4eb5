package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsUnique(t *testing.T) {
	ids := map[uint16]bool{}
	names := map[string]bool{}
	for _, d := range CounterDefs {
		if ids[uint16(d.ID)] || names[d.Name] {
			t.Fatalf("duplicate counter definition %+v", d)
		}
		ids[uint16(d.ID)] = true
		names[d.Name] = true
		if !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %q should end in _total", d.Name)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
	if len(HistogramUpperBounds) != 7 {
		t.Fatalf("expected 7 finite bounds, got %d", len(HistogramUpperBounds))
	}
}
