package scene

// Workspace is one per-output virtual desktop: a tiling root container
// plus a floating layer, shown or hidden as a unit.
type Workspace struct {
	Name string

	tilingRoot *Container
	floating   []*Toplevel

	visible bool
	output  *Output
}

// NewWorkspace creates an empty workspace with a horizontal split root.
func NewWorkspace(name string) *Workspace {
	return &Workspace{
		Name:       name,
		tilingRoot: NewSplitContainer(OrientationHorizontal),
	}
}

// Visible implements Node.
func (w *Workspace) Visible() bool { return w.visible }

// SetVisible implements Node; showing/hiding a workspace changes the
// visibility of its entire subtree atomically, per §4.6.
func (w *Workspace) SetVisible(v bool) { w.visible = v }

// Children implements Node: the tiling root plus every floating
// toplevel.
func (w *Workspace) Children() []Node {
	out := make([]Node, 0, 1+len(w.floating))
	out = append(out, w.tilingRoot)
	for _, t := range w.floating {
		out = append(out, t)
	}
	return out
}

// TilingRoot returns the workspace's tiling container tree.
func (w *Workspace) TilingRoot() *Container { return w.tilingRoot }

// AddFloating adds a toplevel to the floating layer at its last-known
// (or a caller-assigned) geometry.
func (w *Workspace) AddFloating(t *Toplevel) {
	t.SetFloating(true)
	w.floating = append(w.floating, t)
}

// RemoveFloating removes t from the floating layer.
func (w *Workspace) RemoveFloating(t *Toplevel) {
	for i, ft := range w.floating {
		if ft == t {
			w.floating = append(w.floating[:i], w.floating[i+1:]...)
			return
		}
	}
}

// Floating returns the workspace's floating toplevels, back-to-front
// in stacking order (most recently raised last).
func (w *Workspace) Floating() []*Toplevel { return w.floating }

// Raise moves t to the top of the floating stacking order.
func (w *Workspace) Raise(t *Toplevel) {
	w.RemoveFloating(t)
	w.floating = append(w.floating, t)
}

// Show makes the workspace and its entire subtree visible.
func (w *Workspace) Show() { PropagateVisible(w, true) }

// Hide makes the workspace and its entire subtree invisible.
func (w *Workspace) Hide() { PropagateVisible(w, false) }
