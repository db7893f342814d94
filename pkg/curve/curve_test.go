package curve

import (
	"math"
	"reflect"
	"testing"
)

func TestPointsEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		points Points
		frame  float64
		want   float64
	}{
		{"empty", nil, 3, 0},
		{"before first key", Points{{2, 5, Linear}, {4, 7, Linear}}, 0, 5},
		{"after last key", Points{{2, 5, Linear}, {4, 7, Linear}}, 9, 7},
		{"linear midpoint", Points{{0, 0, Linear}, {10, 20, Linear}}, 2.5, 5},
		{"constant holds", Points{{0, 1, Constant}, {10, 20, Linear}}, 9.9, 1},
		{"on a key", Points{{0, 1, Constant}, {10, 20, Linear}}, 10, 20},
		{"two key bezier is a line", Points{{0, 0, Bezier}, {10, 10, Bezier}}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.points.Evaluate(tt.frame)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestPointsEvaluateBezierPassesKeys(t *testing.T) {
	p := Points{{0, 0, Bezier}, {5, 10, Bezier}, {10, 0, Bezier}}

	for _, key := range p {
		if got := p.Evaluate(key.Frame); math.Abs(got-key.Value) > 1e-9 {
			t.Errorf("Evaluate(%v) = %v, want %v", key.Frame, got, key.Value)
		}
	}
	if got := p.Evaluate(2.5); got <= 5 {
		t.Errorf("expected an eased value above the chord, got %v", got)
	}
}

func TestInterpolationText(t *testing.T) {
	var i Interpolation
	if err := i.UnmarshalText([]byte("Bezier")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if i != Bezier {
		t.Errorf("expected Bezier, got %v", i)
	}
	if err := i.UnmarshalText([]byte("elastic")); err == nil {
		t.Error("expected error for unknown interpolation")
	}
}

func TestSamplerFrames(t *testing.T) {
	tests := []struct {
		name      string
		points    Points
		threshold float64
		start     int
		end       int
		want      []int
	}{
		{
			name:   "linear keys",
			points: Points{{0, 0, Linear}, {10, 10, Linear}},
			start:  0, end: 10,
			want: []int{0, 10},
		},
		{
			name:   "fractional key is bracketed",
			points: Points{{0, 0, Linear}, {2.5, 1, Linear}, {10, 10, Linear}},
			start:  0, end: 10,
			want: []int{0, 2, 3, 10},
		},
		{
			name:   "constant step adds previous frame",
			points: Points{{0, 0, Constant}, {5, 1, Linear}, {10, 1, Linear}},
			start:  0, end: 10,
			want: []int{0, 4, 5, 10},
		},
		{
			name:   "bezier run sampled densely",
			points: Points{{0, 0, Bezier}, {4, 4, Linear}, {10, 0, Linear}},
			start:  0, end: 10,
			want: []int{0, 1, 2, 3, 4, 10},
		},
		{
			name:      "bezier run thinned",
			points:    Points{{0, 0, Bezier}, {10, 10, Linear}},
			threshold: 1000,
			start:     0, end: 10,
			want: []int{0, 10},
		},
		{
			name:   "adjacent bezier run skipped",
			points: Points{{0, 0, Bezier}, {1, 4, Linear}},
			start:  0, end: 10,
			want: []int{0, 1},
		},
		{
			name:   "clipped to range",
			points: Points{{-5, 0, Linear}, {3, 1, Linear}, {20, 2, Linear}},
			start:  0, end: 10,
			want: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Sampler{Threshold: tt.threshold}
			got, ok := s.Frames(tt.points, tt.start, tt.end)
			if !ok {
				t.Fatal("expected channel to be present")
			}
			if !reflect.DeepEqual(got.Sorted(), tt.want) {
				t.Errorf("frames = %v, want %v", got.Sorted(), tt.want)
			}
		})
	}
}

func TestSamplerAbsentChannel(t *testing.T) {
	s := Sampler{}

	if _, ok := s.Frames(Points{}, 0, 10); ok {
		t.Error("empty curve should report an absent channel")
	}
	if _, ok := s.Frames(nil, 0, 10); ok {
		t.Error("nil curve should report an absent channel")
	}
}

func TestFrameSet(t *testing.T) {
	s := NewFrameSet(5, 1, 3)
	s.Union(NewFrameSet(3, 9))

	if !s.Has(9) || s.Has(2) {
		t.Errorf("unexpected membership: %v", s.Sorted())
	}
	if got := s.Sorted(); !reflect.DeepEqual(got, []int{1, 3, 5, 9}) {
		t.Errorf("Sorted = %v", got)
	}
}

func TestKeyFrames(t *testing.T) {
	tests := []struct {
		name   string
		points Points
		want   []int
	}{
		{"bezier run not sampled", Points{{0, 0, Bezier}, {4, 4, Linear}, {10, 0, Linear}}, []int{0, 4, 10}},
		{"constant step", Points{{0, 0, Constant}, {5, 1, Linear}}, []int{0, 4, 5}},
		{"clipped", Points{{-5, 0, Linear}, {2.5, 1, Linear}, {20, 2, Linear}}, []int{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyFrames(tt.points, 0, 10).Sorted()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("KeyFrames = %v, want %v", got, tt.want)
			}
		})
	}

	if got := KeyFrames(nil, 0, 10); len(got) != 0 {
		t.Errorf("KeyFrames(nil) = %v, want empty", got.Sorted())
	}
}
