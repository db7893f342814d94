package decimate

import (
	"math"
	"reflect"
	"testing"
)

func scalars(values ...float64) []Sample[float64] {
	out := make([]Sample[float64], len(values))
	for i, v := range values {
		out[i] = Sample[float64]{Frame: i, Value: v}
	}
	return out
}

func decimateScalars(s []Sample[float64], threshold float64) []Sample[float64] {
	return Decimate(s, threshold, Lerp[float64], AbsDiff[float64])
}

func TestDecimate(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		threshold  float64
		wantFrames []int
	}{
		{
			name:       "zero threshold keeps everything",
			values:     []float64{0, 1, 2, 3, 4},
			threshold:  0,
			wantFrames: []int{0, 1, 2, 3, 4},
		},
		{
			name:       "straight line collapses to endpoints",
			values:     []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			threshold:  100,
			wantFrames: []int{0, 10},
		},
		{
			name:       "spike is kept",
			values:     []float64{0, 0, 0, 10, 0, 0, 0},
			threshold:  1,
			wantFrames: []int{0, 2, 3, 4, 6},
		},
		{
			name:       "two samples untouched",
			values:     []float64{3, 7},
			threshold:  100,
			wantFrames: []int{0, 1},
		},
		{
			name:       "empty input",
			values:     nil,
			threshold:  1,
			wantFrames: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Frames(decimateScalars(scalars(tt.values...), tt.threshold))
			if !reflect.DeepEqual(got, tt.wantFrames) {
				t.Errorf("frames = %v, want %v", got, tt.wantFrames)
			}
		})
	}
}

func TestDecimateKeepsEndpoints(t *testing.T) {
	in := scalars(1, 1.2, 0.8, 1.1, 0.9, 1.05, 0.95, 2)

	for _, eps := range []float64{0.01, 0.1, 0.5, 5} {
		out := decimateScalars(in, eps)
		if out[0] != in[0] || out[len(out)-1] != in[len(in)-1] {
			t.Errorf("eps %v: endpoints changed: %v", eps, out)
		}
	}
}

func TestDecimateIdempotent(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = math.Sin(float64(i)*0.3) * float64(i%7)
	}
	in := scalars(values...)

	for _, eps := range []float64{0.05, 0.5, 2} {
		once := decimateScalars(in, eps)
		twice := decimateScalars(once, eps)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("eps %v: second pass changed output\nonce:  %v\ntwice: %v", eps, Frames(once), Frames(twice))
		}
	}
}

func TestDecimateRepeatsPasses(t *testing.T) {
	in := scalars(0, 0, 0, 1, 1)

	// One pass keeps frame 2 because frame 3 is still present.
	first, removed := sweep(append([]Sample[float64](nil), in...), 0, len(in)-1, 0.6, Lerp[float64], AbsDiff[float64])
	if got := Frames(first); removed != 2 || !reflect.DeepEqual(got, []int{0, 2, 4}) {
		t.Fatalf("first pass = %v (removed %d), want [0 2 4]", got, removed)
	}

	got := Frames(decimateScalars(in, 0.6))
	if !reflect.DeepEqual(got, []int{0, 4}) {
		t.Errorf("frames = %v, want [0 4]", got)
	}
}

func TestDecimateRange(t *testing.T) {
	in := scalars(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	got := Frames(DecimateRange(in, 2, 6, 100, Lerp[float64], AbsDiff[float64]))
	want := []int{0, 1, 2, 6, 7, 8, 9, 10}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("frames = %v, want %v", got, want)
	}
}

func TestDecimateDoesNotModifyInput(t *testing.T) {
	in := scalars(0, 1, 2, 3, 4)
	orig := append([]Sample[float64](nil), in...)

	decimateScalars(in, 100)
	if !reflect.DeepEqual(in, orig) {
		t.Errorf("input modified: %v", in)
	}
}

func TestDecimateCustomValue(t *testing.T) {
	type vec [2]float64
	lerp := func(a, b vec, t float64) vec {
		return vec{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t)}
	}
	dist := func(a, b vec) float64 {
		return math.Hypot(a[0]-b[0], a[1]-b[1])
	}

	in := []Sample[vec]{
		{0, vec{0, 0}},
		{1, vec{1, 1}},
		{2, vec{2, 2}},
		{3, vec{3, 0}},
	}
	got := Frames(Decimate(in, 0.1, lerp, dist))
	want := []int{0, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("frames = %v, want %v", got, want)
	}
}

func TestScalarHelpers(t *testing.T) {
	if got := Lerp(2.0, 4.0, 0.25); got != 2.5 {
		t.Errorf("Lerp = %v, want 2.5", got)
	}
	if got := AbsDiff(float32(1), float32(3)); got != 2 {
		t.Errorf("AbsDiff = %v, want 2", got)
	}
}
