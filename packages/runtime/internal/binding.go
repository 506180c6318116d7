package internal

import "sveltec-go/packages/runtime/dom"

// InputBinding is a two-way binding between an element property and a
// context slot. A change made by the user is written back through write;
// the update it causes does not write the same value back into the
// element.
type InputBinding struct {
	Node  *dom.Node
	Prop  string
	Event string

	// Writes counts values written back from the element.
	Writes int

	write    func(v any)
	updating bool
	last     any
	remove   func()
}

// BindInput listens for event on node and passes the new value of prop to
// write. Event defaults to "input" and prop to "value".
func BindInput(node *dom.Node, prop, event string, write func(v any)) *InputBinding {
	if prop == "" {
		prop = "value"
	}
	if event == "" {
		event = "input"
	}
	b := &InputBinding{Node: node, Prop: prop, Event: event, write: write}
	b.remove = Listen(node, event, b.handle, dom.ListenerOptions{})
	return b
}

func (b *InputBinding) handle(*dom.Event) {
	b.updating = true
	b.last = b.Node.Property(b.Prop)
	b.Writes++
	b.write(b.last)
}

// Update writes v into the element unless the element produced v itself.
func (b *InputBinding) Update(v any) {
	if b.updating {
		b.updating = false
		if !NotEqual(b.last, v) {
			return
		}
	}
	if b.Prop == "value" && v == nil {
		v = ""
	}
	if cur := b.Node.Property(b.Prop); cur == nil || NotEqual(cur, v) {
		b.Node.SetProperty(b.Prop, v)
	}
}

// Destroy removes the listener.
func (b *InputBinding) Destroy() {
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
}
