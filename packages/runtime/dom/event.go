package dom

// Event is dispatched to a node and bubbles to its ancestors.
type Event struct {
	Type    string
	Target  *Node
	Current *Node
	// Trusted is false for events created by code rather than the user.
	Trusted bool

	defaultPrevented bool
	stopped          bool
}

// NewEvent creates a trusted event.
func NewEvent(typ string) *Event {
	return &Event{Type: typ, Trusted: true}
}

func (e *Event) PreventDefault()        { e.defaultPrevented = true }
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
func (e *Event) StopPropagation()       { e.stopped = true }

// ListenerOptions mirror the options of addEventListener that change
// dispatch here.
type ListenerOptions struct {
	Once    bool
	Capture bool
	Passive bool
}

type listener struct {
	fn      func(*Event)
	opts    ListenerOptions
	removed bool
}

// Listen adds a listener and returns the function that removes it.
func (n *Node) Listen(typ string, fn func(*Event), opts ListenerOptions) func() {
	if n.listeners == nil {
		n.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn, opts: opts}
	n.listeners[typ] = append(n.listeners[typ], l)
	return func() {
		l.removed = true
	}
}

// ListenerCount returns the number of live listeners for typ.
func (n *Node) ListenerCount(typ string) int {
	count := 0
	for _, l := range n.listeners[typ] {
		if !l.removed {
			count++
		}
	}
	return count
}

// Dispatch runs capture listeners from the root down, then bubbling
// listeners from n up, until a listener stops propagation.
func (n *Node) Dispatch(e *Event) {
	e.Target = n
	var path []*Node
	for node := n; node != nil; node = node.Parent {
		path = append(path, node)
	}
	for i := len(path) - 1; i >= 0 && !e.stopped; i-- {
		path[i].fire(e, true)
	}
	for _, node := range path {
		if e.stopped {
			return
		}
		node.fire(e, false)
	}
}

func (n *Node) fire(e *Event, capture bool) {
	e.Current = n
	list := append([]*listener(nil), n.listeners[e.Type]...)
	for _, l := range list {
		if l.removed || l.opts.Capture != capture {
			continue
		}
		if l.opts.Once {
			l.removed = true
		}
		l.fn(e)
	}
}
