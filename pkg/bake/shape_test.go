package bake

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/motion"
)

func step(keys ...float64) curve.Points {
	var p curve.Points
	for i := 0; i+1 < len(keys); i += 2 {
		p = append(p, curve.ControlPoint{Frame: keys[i], Value: keys[i+1], Interpolation: curve.Constant})
	}
	return p
}

func TestBakeShapeTimeline(t *testing.T) {
	tests := []struct {
		name   string
		curves []ShapeCurve
		want   ShapeTimeline
	}{
		{
			name:   "on before start is back-filled",
			curves: []ShapeCurve{{"a", step(3, 1, 6, 0)}},
			want:   ShapeTimeline{0: "a", 3: "a", 6: ""},
		},
		{
			name:   "still on at the last key",
			curves: []ShapeCurve{{"s", step(3, 1)}},
			want:   ShapeTimeline{0: "s", 3: "s"},
		},
		{
			name: "still on is extended to the last key of the action",
			curves: []ShapeCurve{
				{"b", step(2, 0, 4, 1)},
				{"c", step(8, 0)},
			},
			want: ShapeTimeline{2: "", 4: "b", 8: "b"},
		},
		{
			name: "hand-off",
			curves: []ShapeCurve{
				{"a", step(0, 1, 4, 1, 5, 0)},
				{"b", step(4, 0, 5, 1, 7, 0)},
			},
			want: ShapeTimeline{0: "a", 4: "a", 5: "b", 7: ""},
		},
		{
			name: "curves without keys are skipped",
			curves: []ShapeCurve{
				{"a", step(0, 1, 10, 0)},
				{"b", curve.Points{}},
				{"c", nil},
			},
			want: ShapeTimeline{0: "a", 10: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BakeShapeTimeline("act", tt.curves, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBakeShapeTimelineRelativeFrames(t *testing.T) {
	got, err := BakeShapeTimeline("act", []ShapeCurve{{"a", step(12, 1, 15, 0)}}, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, ShapeTimeline{0: "a", 2: "a", 5: ""}, got)
}

func TestBakeShapeTimelineErrors(t *testing.T) {
	tests := []struct {
		name      string
		curves    []ShapeCurve
		wantFrame int
		hasFrame  bool
		contains  string
	}{
		{
			name: "overlap",
			curves: []ShapeCurve{
				{"a", step(0, 1, 5, 1, 8, 0)},
				{"b", step(5, 1, 9, 0)},
			},
			wantFrame: 5,
			hasFrame:  true,
			contains:  "shapes overlap (frame 5)",
		},
		{
			name:      "misaligned key",
			curves:    []ShapeCurve{{"a", step(2.5, 1)}},
			wantFrame: 2,
			hasFrame:  true,
			contains:  "not aligned",
		},
		{
			name:      "non-binary key",
			curves:    []ShapeCurve{{"a", step(2, 0.5)}},
			wantFrame: 2,
			hasFrame:  true,
			contains:  "not 0.0 or 1.0",
		},
		{
			name:      "key out of range",
			curves:    []ShapeCurve{{"a", step(0, 1, 12, 0)}},
			wantFrame: 12,
			hasFrame:  true,
			contains:  "outside the frame range",
		},
		{
			name: "duplicate source",
			curves: []ShapeCurve{
				{"a", step(0, 1, 2, 0)},
				{"a", step(4, 1, 6, 0)},
			},
			contains: "more than one animation source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BakeShapeTimeline("act", tt.curves, 0, 10)
			require.Error(t, err)

			var userErr *UserDataError
			require.True(t, errors.As(err, &userErr))
			assert.Equal(t, "act", userErr.Action)
			assert.Equal(t, tt.hasFrame, userErr.HasFrame)
			if tt.hasFrame {
				assert.Equal(t, tt.wantFrame, userErr.Frame)
			}
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestBakeShapeTimelineOverlapMessage(t *testing.T) {
	_, err := BakeShapeTimeline("act", []ShapeCurve{
		{"a", step(0, 1, 5, 1, 8, 0)},
		{"b", step(5, 1, 9, 0)},
	}, 0, 10)
	require.Error(t, err)
	assert.Equal(t, "action act: one or more shapes overlap (frame 5)", err.Error())
}

func TestBakeShapeTimelineNothingToBake(t *testing.T) {
	_, err := BakeShapeTimeline("idle", []ShapeCurve{{"a", step(0, 0, 5, 0)}}, 0, 10)
	assert.ErrorIs(t, err, ErrNothingToBake)

	_, err = BakeShapeTimeline("idle", nil, 0, 10)
	assert.ErrorIs(t, err, ErrNothingToBake)

	_, err = BakeShapeTimeline("idle", nil, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestShapeTimelineAt(t *testing.T) {
	tl := ShapeTimeline{2: "a", 5: "", 7: "b"}

	want := []string{"", "", "a", "a", "a", "", "", "b", "b"}
	for frame, name := range want {
		assert.Equal(t, name, tl.At(frame), "frame %d", frame)
	}
	assert.Equal(t, []string{"a", "b"}, tl.Shapes())
}

func TestShapeCurves(t *testing.T) {
	tl := ShapeTimeline{0: "a", 5: "b", 8: ""}

	got := ShapeCurves(tl, 10)
	require.Len(t, got, 2)

	assert.Equal(t, step(0, 1, 5, 0, 10, 0), got["a"])
	assert.Equal(t, step(0, 0, 5, 1, 8, 0, 10, 0), got["b"])
}

func TestShapeCurvesExtendsPastLastFrame(t *testing.T) {
	got := ShapeCurves(ShapeTimeline{3: "a"}, 2)
	assert.Equal(t, step(0, 0, 3, 1), got["a"])
}

func TestShapeCurvesRoundTrip(t *testing.T) {
	tl := ShapeTimeline{0: "a", 5: "b", 8: ""}

	var curves []ShapeCurve
	for _, name := range []string{"a", "b"} {
		curves = append(curves, ShapeCurve{Shape: name, Curve: ShapeCurves(tl, 10)[name]})
	}

	got, err := BakeShapeTimeline("rt", curves, 0, 10)
	require.NoError(t, err)
	for frame := 0; frame <= 10; frame++ {
		assert.Equal(t, tl.At(frame), got.At(frame), "frame %d", frame)
	}
}

type stubProvider struct {
	shapes map[string][2][]mgl64.Vec3
	calls  map[string]int
}

func (p *stubProvider) ShapeGeometry(shape string) ([]mgl64.Vec3, []mgl64.Vec3, error) {
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[shape]++

	g, ok := p.shapes[shape]
	if !ok {
		return nil, nil, errors.New("no such shape")
	}
	return g[0], g[1], nil
}

func newStubProvider() *stubProvider {
	return &stubProvider{shapes: map[string][2][]mgl64.Vec3{
		"Basis": {{{0, 0, 0}, {1, 0, 0}}, {{0, 0, 1}, {0, 0, 1}}},
		"Smile": {{{1, 2, 3}, {4, 5, 6}}, {{0, 1, 0}, {1, 0, 0}}},
	}}
}

func TestShapeBakerKeyframes(t *testing.T) {
	provider := newStubProvider()
	b := &ShapeBaker{Basis: "Basis", Normals: NormalsFull, Provider: provider}

	k, err := b.Keyframes(ShapeTimeline{0: "Smile", 5: "", 8: "Smile"})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 5, 8}, k.Vertex.Frames())
	assert.Equal(t, 1, provider.calls["Smile"])
	assert.Equal(t, 1, provider.calls["Basis"])

	first, _ := k.Vertex.Get(0)
	again, _ := k.Vertex.Get(8)
	assert.Same(t, first, again)
	assert.Equal(t, "smile", first.Label)
	assert.Equal(t, []mgl64.Vec3{{1, 3, -2}, {4, 6, -5}}, first.Values)

	basis, _ := k.Vertex.Get(5)
	assert.Equal(t, "basis", basis.Label)

	normals, ok := k.Normal.Get(0)
	require.True(t, ok)
	assert.Equal(t, "smile_normal", normals.Label)
	assert.Equal(t, []mgl64.Vec3{{0, 0, -1}, {1, 0, 0}}, normals.Values)
}

func TestShapeBakerNormalModes(t *testing.T) {
	tl := ShapeTimeline{0: "Smile"}

	b := &ShapeBaker{Basis: "Basis", Normals: NormalsNone, Provider: newStubProvider()}
	k, err := b.Keyframes(tl)
	require.NoError(t, err)
	assert.Zero(t, k.Normal.Len())

	b = &ShapeBaker{Basis: "Basis", Normals: NormalsNulled, Provider: newStubProvider()}
	k, err = b.Keyframes(tl)
	require.NoError(t, err)
	n, _ := k.Normal.Get(0)
	assert.Equal(t, []mgl64.Vec3{{}}, n.Values)
}

func TestShapeBakerVertexMapping(t *testing.T) {
	b := &ShapeBaker{Basis: "Basis", Provider: newStubProvider(), VertexMapping: []int{1, 0, 1}}
	k, err := b.Keyframes(ShapeTimeline{0: "Smile"})
	require.NoError(t, err)

	v, _ := k.Vertex.Get(0)
	assert.Equal(t, []mgl64.Vec3{{4, 6, -5}, {1, 3, -2}, {4, 6, -5}}, v.Values)

	b = &ShapeBaker{Basis: "Basis", Provider: newStubProvider(), VertexMapping: []int{5}}
	_, err = b.Keyframes(ShapeTimeline{0: "Smile"})
	assert.ErrorContains(t, err, "out of range")

	b = &ShapeBaker{Basis: "Basis", Provider: newStubProvider()}
	_, err = b.Keyframes(ShapeTimeline{0: "Frown"})
	assert.ErrorContains(t, err, "shape Frown")
}

func TestShapeImporterLabels(t *testing.T) {
	k := motion.New()
	basis := &motion.LabeledArray{Label: "Basis"}
	smile := &motion.LabeledArray{Label: "smile"}
	k.Vertex.Add(0, basis)
	k.Vertex.Add(3, smile)
	k.Vertex.Add(6, basis)

	s := &ShapeImporter{Basis: "basis"}
	got, err := s.Timeline(k)
	require.NoError(t, err)
	assert.Equal(t, ShapeTimeline{0: "", 3: "smile", 6: ""}, got)
}

func TestShapeImporterReuse(t *testing.T) {
	open := mgl64.Vec3{1, 2, 3}
	s := &ShapeImporter{
		Basis: "basis",
		Existing: map[string][]mgl64.Vec3{
			"basis": {{0, 0, 0}},
			"open":  {open},
		},
		Reuse: true,
	}

	k := motion.New()
	k.Vertex.Add(0, &motion.LabeledArray{Label: "x1", Values: []mgl64.Vec3{{1, 3, -2}}})
	k.Vertex.Add(2, &motion.LabeledArray{Label: "x2", Values: []mgl64.Vec3{{0, 0, 0.001}}})
	k.Vertex.Add(4, &motion.LabeledArray{Label: "x3", Values: []mgl64.Vec3{{1, 3, -2}}})

	got, err := s.Timeline(k)
	require.NoError(t, err)
	assert.Equal(t, ShapeTimeline{0: "open", 2: "", 4: "x3"}, got)
}

func TestShapeImporterErrors(t *testing.T) {
	s := &ShapeImporter{Basis: "basis"}
	_, err := s.Timeline(motion.New())
	assert.ErrorIs(t, err, ErrNothingToBake)

	k := motion.New()
	k.Vertex.Add(1, nil)
	_, err = s.Timeline(k)
	assert.ErrorContains(t, err, "frame 1")
}

func TestNormalLabel(t *testing.T) {
	tests := []struct {
		shape string
		want  string
	}{
		{"Mouth_Vtx", "mouth_nrm"},
		{"VertexSmile", "normalsmile"},
		{"vert_a", "norm_a"},
		{"Smile", "smile_normal"},
	}

	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalLabel(tt.shape))
		})
	}
}

func TestNormalModeText(t *testing.T) {
	var m NormalMode
	require.NoError(t, m.UnmarshalText([]byte("Nulled")))
	assert.Equal(t, NormalsNulled, m)
	assert.Error(t, m.UnmarshalText([]byte("smooth")))

	text, err := NormalsFull.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "full", string(text))
}
