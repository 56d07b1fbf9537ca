package termsurface

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	mandel "github.com/marben/mandel_explorer"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newSimSurface(t *testing.T, cols, rows int) (*Surface, tcell.SimulationScreen, *fakeClock) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	s, err := New(screen, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	screen.SetSize(cols, rows)
	clock := &fakeClock{t: time.Unix(0, 0)}
	s.now = clock.now
	t.Cleanup(func() { s.Close() })
	return s, screen, clock
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestKeyHold(t *testing.T) {
	s, screen, clock := newSimSurface(t, 20, 11)

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	waitFor(t, "pan-up", func() bool { return s.IsKeyDown(mandel.KeyPanUp) })
	if s.IsKeyDown(mandel.KeyPanDown) {
		t.Errorf("pan-down reported without a press")
	}

	clock.advance(99 * time.Millisecond)
	if !s.IsKeyDown(mandel.KeyPanUp) {
		t.Errorf("key released before the hold window passed")
	}
	clock.advance(time.Millisecond)
	if s.IsKeyDown(mandel.KeyPanUp) {
		t.Errorf("key still held after the hold window")
	}

	screen.InjectKey(tcell.KeyLeft, 0, tcell.ModNone)
	waitFor(t, "pan-left", func() bool { return s.IsKeyDown(mandel.KeyPanLeft) })
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	waitFor(t, "escape", func() bool { return s.IsKeyDown(mandel.KeyEscape) })
}

func TestCtrlCCloses(t *testing.T) {
	s, screen, _ := newSimSurface(t, 20, 11)
	if !s.IsOpen() {
		t.Fatalf("new surface is closed")
	}
	screen.InjectKey(tcell.KeyCtrlC, 0, tcell.ModNone)
	waitFor(t, "close", func() bool { return !s.IsOpen() })
}

func TestQuitKeys(t *testing.T) {
	s, screen, _ := newSimSurface(t, 20, 11)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	waitFor(t, "q", func() bool { return s.IsKeyDown(mandel.KeyEscape) })
	if s.IsKeyDown(mandel.KeyZoomOut) {
		t.Errorf("q zooms out")
	}

	fc, err := mandel.NewFrameController(mandel.Config{
		Width: 8, Height: 8, Scope: 1, MinIterations: 10, MaxIterations: 20,
		GrowthIncrement: 5, GrowthPeriod: 2, StepFraction: 0.05,
	}, s)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Step(); !errors.Is(err, mandel.ErrQuit) {
		t.Errorf("Step with q held: %v, want ErrQuit", err)
	}
}

func TestPresent(t *testing.T) {
	s, screen, _ := newSimSurface(t, 20, 11)

	buf := mandel.NewPixelBuffer(60, 60)
	for i := range buf.Pix {
		buf.Pix[i] = 0x336699
	}
	if err := s.Present(buf); err != nil {
		t.Fatalf("Present: %v", err)
	}

	cells, cols, _ := screen.GetContents()
	// 11 rows leave 10 for the image, a 20x20 pixel square in 20x10 cells
	for cy := range 10 {
		for x := range 20 {
			c := cells[cy*cols+x]
			if len(c.Runes) == 0 || c.Runes[0] != upperHalfBlock {
				t.Fatalf("cell (%d, %d) = %q", x, cy, c.Runes)
			}
			fg, bg, _ := c.Style.Decompose()
			for _, col := range []tcell.Color{fg, bg} {
				if r, g, b := col.RGB(); r != 0x33 || g != 0x66 || b != 0x99 {
					t.Fatalf("cell (%d, %d) colour %d,%d,%d", x, cy, r, g, b)
				}
			}
		}
	}
}

func TestShowStatus(t *testing.T) {
	s, screen, _ := newSimSurface(t, 60, 5)
	s.ShowStatus(mandel.Status{
		View:          mandel.Viewport{Center: mandel.Complex{Re: -0.5}, Scope: 1},
		MaxIterations: 250,
	})

	cells, cols, rows := screen.GetContents()
	var line strings.Builder
	for x := range cols {
		if rs := cells[(rows-1)*cols+x].Runes; len(rs) > 0 {
			line.WriteRune(rs[0])
		}
	}
	if !strings.Contains(line.String(), "iterations 250") {
		t.Errorf("status line %q", line.String())
	}
}
