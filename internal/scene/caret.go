package scene

import "fmt"

// Caret builds a scene by moving a cursor through it. Method names are
// exposed to scene scripts in lower camel case (spawnMove, label, ...).
type Caret struct {
	root  *Node
	node  *Node
	saved []*Node
}

// NewCaret starts a scene with a single root of the given kind.
func NewCaret(kind Kind) *Caret {
	root := NewNode(kind)
	return &Caret{root: root, node: root}
}

// Root returns the scene root.
func (c *Caret) Root() *Node { return c.root }

// Node returns the node under the caret.
func (c *Caret) Node() *Node { return c.node }

// Spawn creates a child in direction dir without moving.
func (c *Caret) Spawn(dir, kind string) error {
	_, err := c.spawn(dir, kind)
	return err
}

// SpawnMove creates a child in direction dir and moves onto it.
func (c *Caret) SpawnMove(dir, kind string) error {
	child, err := c.spawn(dir, kind)
	if err != nil {
		return err
	}
	c.node = child
	return nil
}

// Move moves onto the existing child in direction dir.
func (c *Caret) Move(dir string) error {
	d, err := ParseDirection(dir)
	if err != nil {
		return err
	}
	child := c.node.Child(d)
	if child == nil {
		return fmt.Errorf("scene: no node %s of caret", d)
	}
	c.node = child
	return nil
}

// Label sets the text of the node under the caret.
func (c *Caret) Label(text string) {
	c.node.Label = text
}

// Push remembers the caret position.
func (c *Caret) Push() {
	c.saved = append(c.saved, c.node)
}

// Pop returns to the last pushed position.
func (c *Caret) Pop() error {
	if len(c.saved) == 0 {
		return fmt.Errorf("scene: caret pop without push")
	}
	c.node = c.saved[len(c.saved)-1]
	c.saved = c.saved[:len(c.saved)-1]
	return nil
}

func (c *Caret) spawn(dir, kind string) (*Node, error) {
	d, err := ParseDirection(dir)
	if err != nil {
		return nil, err
	}
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	child := NewNode(k)
	if err := c.node.Connect(d, child); err != nil {
		return nil, err
	}
	return child, nil
}
