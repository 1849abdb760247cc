package scene

import "math"

// Layout constants, in scene units.
const (
	Padding      = 6.0
	Spacing      = 10.0
	MinBlockSize = 28.0
	BudSize      = 14.0
)

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return o
	}
	if o.W == 0 && o.H == 0 {
		return r
	}
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.W, o.X+o.W), math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Box is the placement of one node.
type Box struct {
	Node *Node
	Rect Rect
	// Parent is the index of the parent's box, or -1 for the root.
	Parent int
}

// Layout is the result of laying out a scene.
type Layout struct {
	Boxes  []Box
	Bounds Rect
}

// Measure returns the size of a label.
type Measure func(label string) (w, h float64)

// DefaultMeasure approximates a 12px sans-serif face.
func DefaultMeasure(label string) (float64, float64) {
	return 7 * float64(len([]rune(label))), 12
}

// Compute lays out the subtree under root. Forward children sit to the
// right of their parent, top-aligned; downward children sit below the
// parent and everything hanging forward of it. Boxes come out in
// Walk order.
func Compute(root *Node, measure Measure) Layout {
	if root == nil {
		return Layout{}
	}
	if measure == nil {
		measure = DefaultMeasure
	}
	l := Layout{}
	w, h := place(&l, root, -1, 0, 0, measure)
	l.Bounds = Rect{W: w, H: h}
	return l
}

func nodeSize(n *Node, measure Measure) (float64, float64) {
	if n.Kind == Bud {
		return BudSize, BudSize
	}
	tw, th := 0.0, 0.0
	if n.Label != "" {
		tw, th = measure(n.Label)
	}
	return math.Max(MinBlockSize, tw+2*Padding), math.Max(MinBlockSize, th+2*Padding)
}

// place appends the subtree's boxes and returns its extent.
func place(l *Layout, n *Node, parent int, x, y float64, measure Measure) (float64, float64) {
	w, h := nodeSize(n, measure)
	idx := len(l.Boxes)
	l.Boxes = append(l.Boxes, Box{Node: n, Rect: Rect{X: x, Y: y, W: w, H: h}, Parent: parent})

	extW, extH := w, h
	if f := n.Child(Forward); f != nil {
		fw, fh := place(l, f, idx, x+w+Spacing, y, measure)
		extW = w + Spacing + fw
		extH = math.Max(h, fh)
	}
	if d := n.Child(Downward); d != nil {
		dw, dh := place(l, d, idx, x, y+extH+Spacing, measure)
		extW = math.Max(extW, dw)
		extH += Spacing + dh
	}
	return extW, extH
}
