// Package scene holds the node graph that render jobs construct: blocks
// and buds joined forward or downward, laid out on a plane.
package scene

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is the side of a node a child hangs from.
type Direction int

const (
	Forward Direction = iota
	Downward
	numDirections
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Downward:
		return "downward"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "forward"/"f" and "downward"/"d". Empty means forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "f", "forward":
		return Forward, nil
	case "d", "down", "downward":
		return Downward, nil
	}
	return Forward, fmt.Errorf("unknown direction %q", s)
}

// Kind is the shape of a node.
type Kind int

const (
	Block Kind = iota
	Bud
)

func (k Kind) String() string {
	if k == Bud {
		return "bud"
	}
	return "block"
}

// ParseKind accepts "block"/"b" and "bud"/"u". Empty means block.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "b", "block":
		return Block, nil
	case "u", "bud":
		return Bud, nil
	}
	return Block, fmt.Errorf("unknown node kind %q", s)
}

// ErrOccupied is returned when a child already exists in a direction.
var ErrOccupied = errors.New("scene: direction already occupied")

// Node is one element of a scene graph.
type Node struct {
	Kind  Kind
	Label string

	parent   *Node
	children [numDirections]*Node
}

// NewNode creates a detached node.
func NewNode(kind Kind) *Node {
	return &Node{Kind: kind}
}

// Parent returns the node this one hangs from, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Child returns the child in direction d, or nil.
func (n *Node) Child(d Direction) *Node { return n.children[d] }

// Connect hangs child from n in direction d.
func (n *Node) Connect(d Direction, child *Node) error {
	if n.children[d] != nil {
		return fmt.Errorf("%w: %s", ErrOccupied, d)
	}
	if child.parent != nil {
		return fmt.Errorf("scene: node already has a parent")
	}
	child.parent = n
	n.children[d] = child
	return nil
}

// Walk visits the subtree in pre-order, forward before downward. It stops
// early when fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if c != nil && !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool { count++; return true })
	return count
}
