// Package paint turns a scene graph into pixels on a surface in small,
// time-bounded increments. Painter implements builder.Pipeline.
package paint

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/camera"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/scene"
	"github.com/me/imagebuilder/internal/surface"
)

// Defaults.
const (
	DefaultFontSize    = 12.0
	DefaultRenderBatch = 64
	minLabelScale      = 0.35
)

// Style holds the colors used for drawing, as hex strings.
type Style struct {
	Fill      string
	Stroke    string
	Bud       string
	Connector string
	Text      string
	LineWidth float64
	Radius    float64
}

// DefaultStyle returns the stock palette.
func DefaultStyle() Style {
	return Style{
		Fill:      "#f4f1e8",
		Stroke:    "#3b3b3b",
		Bud:       "#c0504d",
		Connector: "#8c8c8c",
		Text:      "#1f1f1f",
		LineWidth: 1.5,
		Radius:    4,
	}
}

// Option configures a Painter.
type Option func(*Painter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Painter) { p.logger = l }
}

// WithClock replaces time.Now when bounding Paint.
func WithClock(now func() time.Time) Option {
	return func(p *Painter) { p.now = now }
}

// WithRenderBatch limits how many display items one Render call draws.
func WithRenderBatch(n int) Option {
	return func(p *Painter) {
		if n > 0 {
			p.renderBatch = n
		}
	}
}

// WithStyle sets the palette.
func WithStyle(s Style) Option {
	return func(p *Painter) { p.style = s }
}

// WithFontSize sets the label size in scene units.
func WithFontSize(size float64) Option {
	return func(p *Painter) {
		if size > 0 {
			p.fontSize = size
		}
	}
}

// Stats counts the work a Painter has done.
type Stats struct {
	Layouts  int
	Painted  int
	Rendered int
	Clears   int
}

// item is one entry of the display list, already in pixel space.
type item struct {
	kind      scene.Kind
	label     string
	rect      scene.Rect
	connector bool
	fromX     float64
	fromY     float64
}

// Painter lays out, paints and renders one scene at a time onto a surface.
type Painter struct {
	surface     *surface.Surface
	camera      *camera.Camera
	logger      *slog.Logger
	now         func() time.Time
	renderBatch int
	style       Style
	fontSize    float64

	fonts  *text.FontSource
	fontMu sync.Mutex
	faces  map[int]text.Face

	mu               sync.Mutex
	onScheduleUpdate func()
	root             *scene.Node
	fit              bool
	dirty            bool
	layout           scene.Layout
	items            []item
	rendered         int
	clearPending     bool
	stats            Stats
}

var _ builder.Pipeline = (*Painter)(nil)

// New creates a Painter bound to surf.
func New(surf *surface.Surface, opts ...Option) (*Painter, error) {
	fonts, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load label font: %w", err)
	}
	p := &Painter{
		surface:     surf,
		camera:      camera.New(surf.Width(), surf.Height()),
		logger:      logging.Nop(),
		now:         time.Now,
		renderBatch: DefaultRenderBatch,
		style:       DefaultStyle(),
		fontSize:    DefaultFontSize,
		fonts:       fonts,
		faces:       make(map[int]text.Face),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "paint")
	return p, nil
}

// SetOnScheduleUpdate registers fn to be called whenever the scene is
// marked dirty, so the host can schedule another cycle.
func (p *Painter) SetOnScheduleUpdate(fn func()) {
	p.mu.Lock()
	p.onScheduleUpdate = fn
	p.mu.Unlock()
}

// Camera returns the painter's camera.
func (p *Painter) Camera() *camera.Camera { return p.camera }

// Stats returns a snapshot of the work counters.
func (p *Painter) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Measure returns the size of a label in scene units.
func (p *Painter) Measure(label string) (float64, float64) {
	return text.Measure(label, p.face(p.fontSize))
}

// FitToView keeps root centered in the viewport, now and after every
// relayout, until the root is released.
func (p *Painter) FitToView(root builder.Root) {
	n, ok := root.(*scene.Node)
	if !ok || n == nil {
		return
	}
	l := scene.Compute(n, p.Measure)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fit = true
	camera.ShowInCamera(l.Bounds, p.camera)
}

// SetRoot makes root the scene being painted. nil releases the current one.
func (p *Painter) SetRoot(root builder.Root) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if root == nil {
		p.root = nil
		p.fit = false
		p.dirty = false
		p.layout = scene.Layout{}
		p.items = nil
		p.rendered = 0
		p.clearPending = false
		return
	}
	n, ok := root.(*scene.Node)
	if !ok {
		p.logger.Warn("unsupported scene root", "type", fmt.Sprintf("%T", root))
		return
	}
	p.root = n
	p.dirty = true
}

// MarkDirty forces a relayout on the next Paint and asks the host for a
// cycle.
func (p *Painter) MarkDirty() {
	p.mu.Lock()
	p.dirty = true
	fn := p.onScheduleUpdate
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Paint extends the display list until it covers the whole layout or
// timeLeft runs out. At least one box is painted per call. It reports
// whether boxes remain.
func (p *Painter) Paint(timeLeft time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.root == nil {
		return false
	}
	if p.dirty {
		p.relayout()
	}

	start := p.now()
	for len(p.items) < len(p.layout.Boxes) {
		p.items = append(p.items, p.paintBox(len(p.items)))
		p.stats.Painted++
		if p.now().Sub(start) >= timeLeft {
			break
		}
	}
	return len(p.items) < len(p.layout.Boxes)
}

// Render draws up to one batch of painted items onto the surface. It
// reports whether painted items remain undrawn.
func (p *Painter) Render() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.root == nil {
		return false
	}

	p.surface.Lock()
	defer p.surface.Unlock()
	dc := p.surface.Context()

	if p.clearPending {
		dc.ClearWithColor(gg.Hex(p.surface.Background()))
		p.clearPending = false
		p.stats.Clears++
	}

	end := min(len(p.items), p.rendered+p.renderBatch)
	for i := p.rendered; i < end; i++ {
		p.draw(dc, p.items[i])
		p.stats.Rendered++
	}
	p.rendered = end
	return p.rendered < len(p.items)
}

func (p *Painter) relayout() {
	p.layout = scene.Compute(p.root, p.Measure)
	if p.fit {
		camera.ShowInCamera(p.layout.Bounds, p.camera)
	}
	p.items = p.items[:0]
	p.rendered = 0
	p.clearPending = true
	p.dirty = false
	p.stats.Layouts++
	p.logger.Debug("relayout", "boxes", len(p.layout.Boxes), "scale", p.camera.Scale)
}

func (p *Painter) paintBox(i int) item {
	box := p.layout.Boxes[i]
	it := item{
		kind:  box.Node.Kind,
		label: box.Node.Label,
		rect:  p.camera.ProjectRect(box.Rect),
	}
	if box.Parent >= 0 {
		parent := p.layout.Boxes[box.Parent].Rect
		it.connector = true
		it.fromX, it.fromY = p.camera.Project(parent.Center())
	}
	return it
}

func (p *Painter) draw(dc *gg.Context, it item) {
	cx, cy := it.rect.Center()
	if it.connector {
		dc.SetHexColor(p.style.Connector)
		dc.SetLineWidth(p.style.LineWidth)
		dc.DrawLine(it.fromX, it.fromY, cx, cy)
		p.check(dc.Stroke())
	}

	switch it.kind {
	case scene.Bud:
		r := math.Min(it.rect.W, it.rect.H) / 2
		dc.SetHexColor(p.style.Bud)
		dc.DrawCircle(cx, cy, r)
		p.check(dc.Fill())
	default:
		radius := p.style.Radius * p.camera.Scale
		dc.SetHexColor(p.style.Fill)
		dc.DrawRoundedRectangle(it.rect.X, it.rect.Y, it.rect.W, it.rect.H, radius)
		p.check(dc.Fill())
		dc.SetHexColor(p.style.Stroke)
		dc.SetLineWidth(p.style.LineWidth)
		dc.DrawRoundedRectangle(it.rect.X, it.rect.Y, it.rect.W, it.rect.H, radius)
		p.check(dc.Stroke())
	}

	if it.label != "" && p.camera.Scale >= minLabelScale {
		dc.SetFont(p.face(p.fontSize * p.camera.Scale))
		dc.SetHexColor(p.style.Text)
		dc.DrawStringAnchored(it.label, cx, cy, 0.5, 0.35)
	}
}

func (p *Painter) check(err error) {
	if err != nil {
		p.logger.Warn("draw failed", "error", err)
	}
}

// face returns a cached face for size, rounded to a quarter point.
func (p *Painter) face(size float64) text.Face {
	key := int(math.Round(size * 4))
	p.fontMu.Lock()
	defer p.fontMu.Unlock()
	if f, ok := p.faces[key]; ok {
		return f
	}
	f := p.fonts.Face(float64(key) / 4)
	p.faces[key] = f
	return f
}
