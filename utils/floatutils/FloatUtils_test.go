package floatutils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestRescale(t *testing.T) {
	interval := r1.Interval{Min: 0, Max: 10}
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{1, 10},
		{0, 5},
		{3, 10},
		{-7, 0},
	}
	for _, test := range tests {
		if got := Rescale(test.in, interval); got != test.want {
			t.Errorf("rescale(%v) \n\twant(%v) \n\thave(%v)", test.in,
				test.want, got)
		}
	}
}

func TestArgMax(t *testing.T) {
	if i := ArgMax([]float64{1, 3, 2, 3}); i != 1 {
		t.Errorf("argmax \n\twant(1) \n\thave(%v)", i)
	}
	if i := ArgMax([]float64{-2, -5}); i != 0 {
		t.Errorf("argmax \n\twant(0) \n\thave(%v)", i)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1, 2, -3) {
		t.Error("finite values reported non-finite")
	}
	if IsFinite(1, math.NaN()) || IsFinite(math.Inf(-1)) {
		t.Error("non-finite values reported finite")
	}
}

func TestClipSlice(t *testing.T) {
	v := []float64{-3, 0.5, 2}
	ClipSlice(v, -1, 1)
	want := []float64{-1, 0.5, 1}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("clip[%v] \n\twant(%v) \n\thave(%v)", i, want[i], v[i])
		}
	}
}
