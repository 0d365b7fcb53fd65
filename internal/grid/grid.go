package grid

// Grid holds the reconciler state, the last props it was given and the view
// computed from both. It is a value type: every method returns the updated
// Grid together with the effects the host must execute.
type Grid struct {
	state State
	props Props
	view  View
}

// New returns a Grid on page 0 with no data.
func New() Grid {
	g := Grid{}
	g.view, _ = Materialize(g.state, g.props)
	return g
}

// State returns the current reconciler state.
func (g Grid) State() State { return g.state }

// Props returns the props last passed to WithProps.
func (g Grid) Props() Props { return g.props }

// View returns the view computed after the last change.
func (g Grid) View() View { return g.view }

// WithProps replaces the external input, re-evaluates the authoritative total
// and recomputes the view.
func (g Grid) WithProps(p Props) (Grid, []Effect) {
	g.props = p
	g.state, _ = g.state.Apply(p, TotalChanged{Total: p.Total})
	return g.render(nil)
}

// Dispatch applies ev and recomputes the view.
func (g Grid) Dispatch(ev Event) (Grid, []Effect) {
	var effects []Effect
	g.state, effects = g.state.Apply(g.props, ev)
	return g.render(effects)
}

func (g Grid) render(effects []Effect) (Grid, []Effect) {
	var prefetch []Effect
	g.view, prefetch = Materialize(g.state, g.props)
	return g, append(effects, prefetch...)
}
