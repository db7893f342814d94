package clip

import (
	"fmt"

	"github.com/Faultbox/motionbake/pkg/bake"
)

// Scene is the in-memory host scene used when curves come from a document.
// It only tracks the current frame and enforces increasing frame order.
type Scene struct {
	current     int
	started     bool
	evaluations int
}

// NewScene returns a scene that has not been advanced yet.
func NewScene() *Scene {
	return &Scene{}
}

// AdvanceToFrame implements bake.Scene. Frames must increase strictly until
// the next Reset.
func (s *Scene) AdvanceToFrame(frame int) error {
	if s.started && frame <= s.current {
		return fmt.Errorf("%w: frame %d after %d", bake.ErrFrameOrder, frame, s.current)
	}
	s.current = frame
	s.started = true
	s.evaluations++
	return nil
}

// Reset rewinds the scene before the next bake.
func (s *Scene) Reset() {
	s.current = 0
	s.started = false
}

// Frame returns the current frame.
func (s *Scene) Frame() int {
	return s.current
}

// Evaluations returns the number of frames visited since creation.
func (s *Scene) Evaluations() int {
	return s.evaluations
}
