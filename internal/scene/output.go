package scene

// Layer names the output's compositing slots, bottom to top.
type Layer int

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerWorkspace
	LayerTop
	LayerOverlay
	LayerSessionLock
	layerCount
)

// Output is one display: a set of layered slots and a ring of
// workspaces, generalizing the teacher's per-device queue set
// (internal/queue/runner.go, one Runner per hardware queue) into one
// slot set and one workspace ring per physical output.
type Output struct {
	Name   string
	Width  int
	Height int

	layers [layerCount][]Node

	workspaces    []*Workspace
	activeWS      int
	fullscreenSlot *Toplevel // the single fullscreen toplevel, if any

	visible bool
}

// NewOutput creates an output with one default workspace.
func NewOutput(name string, width, height int) *Output {
	o := &Output{Name: name, Width: width, Height: height, visible: true}
	ws := NewWorkspace("1")
	ws.output = o
	o.workspaces = append(o.workspaces, ws)
	ws.Show()
	return o
}

// Visible implements Node.
func (o *Output) Visible() bool { return o.visible }

// SetVisible implements Node (an output is hidden when, e.g., DPMS off).
func (o *Output) SetVisible(v bool) { o.visible = v }

// Children implements Node: every layer's nodes plus all workspaces
// (only the active one is itself visible, by workspace Show/Hide).
func (o *Output) Children() []Node {
	var out []Node
	for _, layer := range o.layers {
		out = append(out, layer...)
	}
	for _, ws := range o.workspaces {
		out = append(out, ws)
	}
	return out
}

// AddLayerNode attaches a node (a layer-shell surface, typically) to
// one of the output's fixed compositing slots.
func (o *Output) AddLayerNode(layer Layer, n Node) {
	o.layers[layer] = append(o.layers[layer], n)
}

// RemoveLayerNode detaches n from layer.
func (o *Output) RemoveLayerNode(layer Layer, n Node) {
	nodes := o.layers[layer]
	for i, existing := range nodes {
		if existing == n {
			o.layers[layer] = append(nodes[:i], nodes[i+1:]...)
			return
		}
	}
}

// ActiveWorkspace returns the workspace currently shown on this output.
func (o *Output) ActiveWorkspace() *Workspace {
	if o.activeWS < 0 || o.activeWS >= len(o.workspaces) {
		return nil
	}
	return o.workspaces[o.activeWS]
}

// AddWorkspace appends a new, initially hidden workspace to the ring.
func (o *Output) AddWorkspace(ws *Workspace) {
	ws.output = o
	o.workspaces = append(o.workspaces, ws)
}

// SwitchWorkspace hides the currently active workspace and shows idx,
// atomically from the scene's point of view (both calls happen before
// any other goroutine can observe the intermediate state, since all
// scene mutation is already funneled through one goroutine per §5).
func (o *Output) SwitchWorkspace(idx int) {
	if idx < 0 || idx >= len(o.workspaces) || idx == o.activeWS {
		return
	}
	if cur := o.ActiveWorkspace(); cur != nil {
		cur.Hide()
	}
	o.activeWS = idx
	o.workspaces[idx].Show()
}

// SetFullscreen records t in the output's fullscreen slot and marks it
// fullscreen, which saves its floating geometry (Toplevel.SetFullscreen).
// t is not detached from its tiling container and no tiling parent is
// recorded. At most one toplevel per output may be fullscreen at a time; setting
// a new one while another is active un-fullscreens the previous one
// first.
func (o *Output) SetFullscreen(t *Toplevel) {
	if o.fullscreenSlot == t {
		return
	}
	if o.fullscreenSlot != nil {
		o.ClearFullscreen()
	}
	t.SetFullscreen(true)
	o.fullscreenSlot = t
}

// ClearFullscreen empties the output's fullscreen slot and un-fullscreens
// its toplevel (if any), restoring the floating geometry and floating
// flag saved on entry; its tiling placement is left as it was.
func (o *Output) ClearFullscreen() {
	if o.fullscreenSlot == nil {
		return
	}
	o.fullscreenSlot.SetFullscreen(false)
	o.fullscreenSlot = nil
}

// Fullscreen returns the output's current fullscreen toplevel, or nil.
func (o *Output) Fullscreen() *Toplevel { return o.fullscreenSlot }

// VisibleSurfaces walks o's node tree depth-first and returns the
// backing Surface of every Toplevel currently visible per the
// propagation invariant in §4.6, including their subsurfaces. The
// frame scheduler calls this once per render tick to know which
// surfaces to drain damage and frame callbacks from.
func (o *Output) VisibleSurfaces() []*Surface {
	var out []*Surface
	var walk func(n Node)
	walk = func(n Node) {
		if !n.Visible() {
			return
		}
		if t, ok := n.(*Toplevel); ok {
			out = append(out, collectSurfaceTree(t.Surface())...)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(o)
	return out
}

func collectSurfaceTree(s *Surface) []*Surface {
	out := []*Surface{s}
	for _, child := range s.Children() {
		out = append(out, collectSurfaceTree(child)...)
	}
	return out
}
