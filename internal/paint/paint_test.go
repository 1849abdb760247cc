package paint

import (
	"testing"
	"time"

	"github.com/me/imagebuilder/internal/scene"
	"github.com/me/imagebuilder/internal/surface"
)

// steppingClock advances by step on every reading.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func chain(n int) *scene.Node {
	c := scene.NewCaret(scene.Block)
	for i := 1; i < n; i++ {
		c.SpawnMove("f", "b")
	}
	c.Label("No time")
	return c.Root()
}

func newPainter(t *testing.T, opts ...Option) (*Painter, *surface.Surface) {
	t.Helper()
	surf, err := surface.New(240, 160)
	if err != nil {
		t.Fatalf("surface.New: %v", err)
	}
	t.Cleanup(func() { surf.Close() })
	p, err := New(surf, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, surf
}

func TestPainter_NoRoot(t *testing.T) {
	p, _ := newPainter(t)
	if p.Paint(time.Second) {
		t.Error("Paint without root should report no work")
	}
	if p.Render() {
		t.Error("Render without root should report no work")
	}
}

func TestPainter_PaintIsIncremental(t *testing.T) {
	p, _ := newPainter(t, WithClock(steppingClock(5*time.Millisecond)))
	p.SetRoot(chain(5))

	calls := 0
	for p.Paint(time.Millisecond) {
		calls++
		if calls > 10 {
			t.Fatal("Paint never settled")
		}
	}
	// one box per call, the fifth call reports done
	if calls != 4 {
		t.Errorf("Paint reported more work %d times, want 4", calls)
	}
	st := p.Stats()
	if st.Painted != 5 || st.Layouts != 1 {
		t.Errorf("stats = %+v, want 5 painted, 1 layout", st)
	}
}

func TestPainter_PaintNegativeBudgetStillProgresses(t *testing.T) {
	p, _ := newPainter(t, WithClock(steppingClock(time.Millisecond)))
	p.SetRoot(chain(2))
	p.Paint(-time.Millisecond)
	if got := p.Stats().Painted; got != 1 {
		t.Errorf("Painted = %d, want 1", got)
	}
}

func TestPainter_RenderBatches(t *testing.T) {
	p, _ := newPainter(t, WithRenderBatch(2))
	p.SetRoot(chain(5))
	if p.Paint(time.Hour) {
		t.Fatal("Paint with ample budget should finish")
	}

	var more []bool
	for i := 0; i < 3; i++ {
		more = append(more, p.Render())
	}
	if !more[0] || !more[1] || more[2] {
		t.Errorf("Render results = %v, want [true true false]", more)
	}
	st := p.Stats()
	if st.Rendered != 5 || st.Clears != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPainter_MarkDirtyRelayoutsAndSchedules(t *testing.T) {
	p, _ := newPainter(t)
	scheduled := 0
	p.SetOnScheduleUpdate(func() { scheduled++ })

	root := chain(2)
	p.SetRoot(root)
	p.Paint(time.Hour)
	p.Render()

	root.Child(scene.Forward).Connect(scene.Forward, scene.NewNode(scene.Bud))
	p.MarkDirty()
	if scheduled != 1 {
		t.Errorf("scheduled = %d, want 1", scheduled)
	}
	if p.Paint(time.Hour) {
		t.Fatal("Paint should finish")
	}
	p.Render()
	st := p.Stats()
	if st.Layouts != 2 || st.Painted != 5 || st.Clears != 2 {
		t.Errorf("stats = %+v, want 2 layouts, 5 painted, 2 clears", st)
	}
}

func TestPainter_SetRootNilReleases(t *testing.T) {
	p, _ := newPainter(t)
	p.SetRoot(chain(3))
	p.SetRoot(nil)
	if p.Paint(time.Hour) || p.Render() {
		t.Error("released painter should report no work")
	}
}

func TestPainter_UnsupportedRoot(t *testing.T) {
	p, _ := newPainter(t)
	p.SetRoot("not a scene")
	if p.Paint(time.Hour) {
		t.Error("unsupported root should be ignored")
	}
}

func TestPainter_FitToViewShrinksWideScene(t *testing.T) {
	p, _ := newPainter(t)
	root := chain(30)
	p.FitToView(root)
	if s := p.Camera().Scale; s >= 1 {
		t.Errorf("Scale = %v, want < 1 for a 30-block chain", s)
	}
}

func TestPainter_DrawsOntoSurface(t *testing.T) {
	p, surf := newPainter(t)
	root := scene.NewNode(scene.Block)
	p.FitToView(root)
	p.SetRoot(root)
	p.Paint(time.Hour)
	p.Render()

	_, _, b, _ := surf.Screenshot().At(120, 80).RGBA()
	if b>>8 >= 250 {
		t.Errorf("center pixel blue = %d, want block fill", b>>8)
	}
}
