package mandel

// RenderState is the mutable state of the explorer. It is owned by a single
// FrameController and is never shared between goroutines.
type RenderState struct {
	View            Viewport
	FramesSinceMove int
	MaxIterations   int
}

func NewRenderState(cfg Config) *RenderState {
	return &RenderState{
		View:          cfg.InitialView(),
		MaxIterations: cfg.MinIterations,
	}
}

// Advance records whether the view moved this frame and returns the
// iteration cap to render it with.
func (s *RenderState) Advance(moved bool, cfg Config) int {
	if moved {
		s.FramesSinceMove = 0
	} else {
		s.FramesSinceMove++
	}

	switch {
	case s.FramesSinceMove == 0:
		s.MaxIterations = cfg.MinIterations
	case s.FramesSinceMove%cfg.GrowthPeriod == 0:
		s.MaxIterations = min(max(s.MaxIterations+cfg.GrowthIncrement, cfg.MinIterations), cfg.MaxIterations)
	}
	return s.MaxIterations
}
