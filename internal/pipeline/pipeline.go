// Package pipeline runs whole clip documents through the keyframe codec.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/motionbake/internal/clip"
	"github.com/Faultbox/motionbake/internal/config"
	"github.com/Faultbox/motionbake/pkg/bake"
	"github.com/Faultbox/motionbake/pkg/curve"
)

// Runner bakes and reconstructs clips with one configuration.
type Runner struct {
	params    bake.Parameters
	normals   bake.NormalMode
	basis     string
	reuse     bool
	deviation float64

	log *zap.Logger
}

// New validates cfg and returns a runner. log may be nil.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	params, err := cfg.Bake.Parameters()
	if err != nil {
		return nil, err
	}
	normals, err := cfg.Shape.NormalMode()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		params:    params,
		normals:   normals,
		basis:     cfg.Shape.Basis,
		reuse:     cfg.Shape.Reuse,
		deviation: cfg.Bake.QuaternionConversionDeviation,
		log:       log,
	}, nil
}

// Result is the outcome of one bake run.
type Result struct {
	Motion *clip.Motion
	// Skipped names the parts of the clip without anything to bake.
	Skipped []string
	// Evaluations counts the frames the scene was advanced to.
	Evaluations int
}

// Bake bakes every node, the camera and the shape action of c. Parts
// without keys are skipped; any other error aborts the run.
func (r *Runner) Bake(c *clip.Clip) (*Result, error) {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID), zap.String("clip", c.Name))

	scene := clip.NewScene()
	ev, err := bake.NewEvaluator(c.Start, c.End, r.params, scene)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", c.Name, err)
	}
	ev.Log = log.Named("bake")

	res := &Result{Motion: &clip.Motion{Name: c.Name, RunID: runID, Start: c.Start, End: c.End}}
	skip := func(part string, err error) bool {
		if errors.Is(err, bake.ErrNothingToBake) {
			log.Debug("nothing to bake", zap.String("part", part))
			res.Skipped = append(res.Skipped, part)
			return true
		}
		return false
	}

	for i := range c.Nodes {
		n := &c.Nodes[i]
		node, base := n.Bake()

		scene.Reset()
		k, err := ev.BakeTransform(node, base)
		if err != nil {
			if skip("node "+n.Name, err) {
				continue
			}
			return nil, fmt.Errorf("clip %s: %w", c.Name, err)
		}
		res.Motion.Nodes = append(res.Motion.Nodes, clip.NewNodeMotion(n, k))
	}

	if c.Camera != nil {
		scene.Reset()
		k, err := ev.BakeCamera(c.Camera.Bake())
		switch {
		case err == nil:
			res.Motion.Camera = clip.NewCameraMotion(c.Camera, k)
		case !skip("camera "+c.Camera.Name, err):
			return nil, fmt.Errorf("clip %s: %w", c.Name, err)
		}
	}

	if c.Shapes != nil {
		sm, err := r.bakeShapes(c)
		switch {
		case err == nil:
			res.Motion.Shapes = sm
		case !skip("shapes "+c.Shapes.Action, err):
			return nil, fmt.Errorf("clip %s: %w", c.Name, err)
		}
	}

	res.Evaluations = scene.Evaluations()
	log.Info("baked clip",
		zap.Int("nodes", len(res.Motion.Nodes)),
		zap.Bool("camera", res.Motion.Camera != nil),
		zap.Bool("shapes", res.Motion.Shapes != nil),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("evaluations", res.Evaluations))
	return res, nil
}

// Timeline resolves the shape timeline of c without building vertex keys.
func (r *Runner) Timeline(c *clip.Clip) (bake.ShapeTimeline, error) {
	if c.Shapes == nil {
		return nil, fmt.Errorf("clip %s has no shapes: %w", c.Name, bake.ErrNothingToBake)
	}
	return bake.BakeShapeTimeline(c.Shapes.Action, c.Shapes.ShapeCurves(), c.Start, c.End)
}

func (r *Runner) shapeBasis(s *clip.Shapes) string {
	if s.Basis != "" {
		return s.Basis
	}
	return r.basis
}

func (r *Runner) bakeShapes(c *clip.Clip) (*clip.ShapeMotion, error) {
	t, err := r.Timeline(c)
	if err != nil {
		return nil, err
	}

	basis := r.shapeBasis(c.Shapes)
	baker := &bake.ShapeBaker{Basis: basis, Normals: r.normals, Provider: c.Shapes}
	k, err := baker.Keyframes(t)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", c.Shapes.Action, err)
	}
	return clip.NewShapeMotion(c.Shapes.Action, basis, t, k), nil
}

// Reconstruct rebuilds a clip document of linear curves from m. When
// existing is not nil and reuse is configured, imported shapes are matched
// against its geometry.
func (r *Runner) Reconstruct(m *clip.Motion, mode bake.RotationMode, existing *clip.Shapes) (*clip.Clip, error) {
	log := r.log.With(zap.String("run_id", m.RunID), zap.String("clip", m.Name))
	out := &clip.Clip{Name: m.Name, Start: m.Start, End: m.End}

	for i := range m.Nodes {
		nm := &m.Nodes[i]

		rec := bake.NewReconstructor(mode, nm.SourceOrder)
		rec.ConversionDeviation = r.deviation
		rec.Log = log.Named("reconstruct")

		base, offset, rotation := nm.Transforms()
		cs, err := rec.Transform(nm.Keyframes(), base, offset, rotation)
		if errors.Is(err, bake.ErrNothingToBake) {
			log.Debug("no keys", zap.String("node", nm.Name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nm.Name, err)
		}
		out.Nodes = append(out.Nodes, nodeFromCurves(nm, cs, m.Start))
	}

	if m.Camera != nil {
		rec := bake.NewReconstructor(mode, 0)
		rec.Log = log.Named("reconstruct")

		cs, err := rec.Camera(m.Camera.Keyframes(), matOrIdentity(m.Camera.Base), m.Camera.SensorWidth)
		switch {
		case err == nil:
			out.Camera = cameraFromCurves(m.Camera, cs, m.Start)
		case !errors.Is(err, bake.ErrNothingToBake):
			return nil, fmt.Errorf("camera %s: %w", m.Camera.Name, err)
		}
	}

	if m.Shapes != nil {
		shapes, err := r.reconstructShapes(m, existing)
		if err != nil && !errors.Is(err, bake.ErrNothingToBake) {
			return nil, err
		}
		out.Shapes = shapes
	}

	log.Info("reconstructed clip",
		zap.Int("nodes", len(out.Nodes)),
		zap.Bool("camera", out.Camera != nil),
		zap.Bool("shapes", out.Shapes != nil))
	return out, nil
}

func (r *Runner) reconstructShapes(m *clip.Motion, existing *clip.Shapes) (*clip.Shapes, error) {
	sm := m.Shapes
	basis := sm.Basis
	if basis == "" {
		basis = r.basis
	}

	importer := &bake.ShapeImporter{Basis: basis}
	if r.reuse && existing != nil {
		importer.Existing = existing.Existing()
		importer.Reuse = true
	}

	t, err := importer.Timeline(sm.Keyframes())
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", sm.Action, err)
	}

	out := &clip.Shapes{Action: sm.Action, Basis: basis, Curves: make(map[string]clip.Keys)}
	for name, points := range bake.ShapeCurves(t, m.End-m.Start) {
		out.Curves[name] = shiftKeys(points, m.Start)
	}
	return out, nil
}

func nodeFromCurves(nm *clip.NodeMotion, cs *bake.CurveSet, start int) clip.Node {
	keys := func(p curve.Points) clip.Keys { return shiftKeys(p, start) }
	vec := func(c [3]curve.Points) clip.Curves3 {
		return clip.Curves3{X: keys(c[0]), Y: keys(c[1]), Z: keys(c[2])}
	}

	n := clip.Node{
		Name:           nm.Name,
		Order:          cs.Order,
		Location:       vec(cs.Location),
		Scale:          vec(cs.Scale),
		Base:           nm.Base,
		PositionOffset: nm.PositionOffset,
		RotationOffset: nm.RotationOffset,
	}

	switch {
	case !cs.HasRotation():
	case cs.RotationMode == bake.RotationQuaternion:
		n.Quaternion = true
		q := cs.QuaternionRotation
		n.Rotation = clip.RotationCurves{W: keys(q[0]), X: keys(q[1]), Y: keys(q[2]), Z: keys(q[3])}
	default:
		e := cs.EulerRotation
		n.Rotation = clip.RotationCurves{X: keys(e[0]), Y: keys(e[1]), Z: keys(e[2])}
	}
	return n
}

func cameraFromCurves(cm *clip.CameraMotion, cs *bake.CameraCurves, start int) *clip.Camera {
	keys := func(p curve.Points) clip.Keys { return shiftKeys(p, start) }
	vec := func(c [3]curve.Points) clip.Curves3 {
		return clip.Curves3{X: keys(c[0]), Y: keys(c[1]), Z: keys(c[2])}
	}
	return &clip.Camera{
		Name:        cm.Name,
		Position:    vec(cs.Position),
		Target:      vec(cs.Target),
		Roll:        keys(cs.Roll),
		Lens:        keys(cs.Lens),
		Base:        cm.Base,
		SensorWidth: cm.SensorWidth,
	}
}

func matOrIdentity(m *mgl64.Mat4) mgl64.Mat4 {
	if m == nil {
		return mgl64.Ident4()
	}
	return *m
}

// shiftKeys moves relative frames back onto the clip timeline.
func shiftKeys(points curve.Points, start int) clip.Keys {
	if len(points) == 0 {
		return nil
	}
	out := make(clip.Keys, len(points))
	for i, p := range points {
		p.Frame += float64(start)
		out[i] = p
	}
	return out
}
