package scene

// Node is anything in the scene graph whose visibility propagates
// depth-first from its parent, per the invariant in §4.6:
// visible(node) == visible(parent) && node_in_active_subtree_of_parent.
type Node interface {
	Visible() bool
	SetVisible(bool)
	Children() []Node
}

// PropagateVisible applies n's visibility and recurses into its
// children, implementing the depth-first propagation the invariant
// requires.
func PropagateVisible(n Node, visible bool) {
	n.SetVisible(visible)
	for _, child := range n.Children() {
		PropagateVisible(child, visible)
	}
}

// ContainerKind distinguishes the two tiling layouts a Container can
// run.
type ContainerKind int

const (
	// ContainerSplit lays children out side-by-side (horizontal) or
	// stacked (vertical), each given a share of the container's space
	// proportional to its factor.
	ContainerSplit ContainerKind = iota
	// ContainerMono shows only the active child (tabbed); all children
	// exist and keep their surfaces mapped, but only one paints.
	ContainerMono
)

// Orientation is a split container's layout axis.
type Orientation int

const (
	OrientationHorizontal Orientation = iota
	OrientationVertical
)

// RenderData is the recomputed-on-resize chrome geometry for a
// container: title bar rectangles, borders, and separators between
// children.
type RenderData struct {
	TitleRects     []Rect
	BorderRects    []Rect
	SeparatorRects []Rect
}

// Container is one tiling node: either a split or a mono container,
// holding either child Containers or Toplevels.
type Container struct {
	Kind        ContainerKind
	Orientation Orientation

	parent   *Container
	children []Node
	factors  []float64 // per-child share, split containers only
	active   int        // index of the active/focused child, mono containers

	geometry Rect
	render   RenderData

	visible bool
}

// NewSplitContainer creates an empty split container along orientation.
func NewSplitContainer(o Orientation) *Container {
	return &Container{Kind: ContainerSplit, Orientation: o}
}

// NewMonoContainer creates an empty tabbed container.
func NewMonoContainer() *Container {
	return &Container{Kind: ContainerMono}
}

// Visible implements Node.
func (c *Container) Visible() bool { return c.visible }

// SetVisible implements Node.
func (c *Container) SetVisible(v bool) { c.visible = v }

// Children implements Node. For a mono container every child exists in
// the tree regardless of which is active; only the active one paints,
// but all remain in the visibility-propagation graph so hidden
// siblings can still receive, e.g., unmap notifications correctly.
func (c *Container) Children() []Node { return c.children }

// AddChild appends node as a new last child with an equal starting
// share of a split container's space (ignored for mono containers).
func (c *Container) AddChild(node Node) {
	c.children = append(c.children, node)
	if c.Kind == ContainerSplit {
		c.factors = append(c.factors, 0)
		c.rebalance()
	}
	if len(c.children) == 1 {
		c.active = 0
	}
}

// RemoveChild removes node from c, rebalancing split factors and
// clamping the active index for mono containers.
func (c *Container) RemoveChild(node Node) {
	for i, ch := range c.children {
		if ch == node {
			c.children = append(c.children[:i], c.children[i+1:]...)
			if c.Kind == ContainerSplit {
				c.factors = append(c.factors[:i], c.factors[i+1:]...)
				c.rebalance()
			}
			if c.active >= len(c.children) && c.active > 0 {
				c.active--
			}
			return
		}
	}
}

func (c *Container) rebalance() {
	if len(c.factors) == 0 {
		return
	}
	share := 1.0 / float64(len(c.factors))
	for i := range c.factors {
		c.factors[i] = share
	}
}

// SetActive selects the displayed child of a mono container.
func (c *Container) SetActive(idx int) {
	if idx >= 0 && idx < len(c.children) {
		c.active = idx
	}
}

// Active returns the mono container's currently displayed child, or -1
// if empty.
func (c *Container) Active() int {
	if len(c.children) == 0 {
		return -1
	}
	return c.active
}

// Layout recomputes c's geometry and its children's geometry from a
// bounding rect, recomputing render chrome (title/border/separator
// rectangles) to match.
func (c *Container) Layout(bounds Rect) {
	c.geometry = bounds
	c.render = RenderData{}

	switch c.Kind {
	case ContainerMono:
		c.render.TitleRects = append(c.render.TitleRects, Rect{X: bounds.X, Y: bounds.Y, W: bounds.W, H: 24})
		inner := Rect{X: bounds.X, Y: bounds.Y + 24, W: bounds.W, H: bounds.H - 24}
		for _, child := range c.children {
			layoutNode(child, inner)
		}
	case ContainerSplit:
		c.layoutSplit(bounds)
	}
}

func (c *Container) layoutSplit(bounds Rect) {
	n := len(c.children)
	if n == 0 {
		return
	}
	const separator = 1
	if c.Orientation == OrientationHorizontal {
		x := bounds.X
		avail := bounds.W - separator*(n-1)
		for i, child := range c.children {
			w := int(float64(avail) * c.factors[i])
			layoutNode(child, Rect{X: x, Y: bounds.Y, W: w, H: bounds.H})
			x += w
			if i < n-1 {
				c.render.SeparatorRects = append(c.render.SeparatorRects, Rect{X: x, Y: bounds.Y, W: separator, H: bounds.H})
				x += separator
			}
		}
		return
	}
	y := bounds.Y
	avail := bounds.H - separator*(n-1)
	for i, child := range c.children {
		h := int(float64(avail) * c.factors[i])
		layoutNode(child, Rect{X: bounds.X, Y: y, W: bounds.W, H: h})
		y += h
		if i < n-1 {
			c.render.SeparatorRects = append(c.render.SeparatorRects, Rect{X: bounds.X, Y: y, W: bounds.W, H: separator})
			y += separator
		}
	}
}

func layoutNode(n Node, bounds Rect) {
	if c, ok := n.(*Container); ok {
		c.Layout(bounds)
		return
	}
	if t, ok := n.(*Toplevel); ok && !t.Fullscreen() {
		t.SetFloatGeometry(bounds.X, bounds.Y, bounds.W, bounds.H)
	}
}

// RenderData returns c's recomputed chrome geometry from the last
// Layout call.
func (c *Container) RenderData() RenderData { return c.render }

// Direction is a focus-traversal axis.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

// Navigate resolves focus traversal from child (one of c's direct
// children) in direction dir: the nearest sibling along that axis, or
// nil if none exists, leaving the caller to fall back to the parent
// chain per §4.6.
func (c *Container) Navigate(child Node, dir Direction) Node {
	idx := -1
	for i, ch := range c.children {
		if ch == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	wantsForward := dir == DirRight || dir == DirDown
	axisMatches := (c.Orientation == OrientationHorizontal && (dir == DirLeft || dir == DirRight)) ||
		(c.Orientation == OrientationVertical && (dir == DirUp || dir == DirDown)) ||
		c.Kind == ContainerMono
	if !axisMatches {
		return nil
	}
	if wantsForward {
		if idx+1 < len(c.children) {
			return c.children[idx+1]
		}
		return nil
	}
	if idx-1 >= 0 {
		return c.children[idx-1]
	}
	return nil
}
