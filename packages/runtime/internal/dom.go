package internal

import (
	"fmt"
	"strings"

	"sveltec-go/packages/runtime/dom"
)

// Element creates an element.
func (s *Scheduler) Element(tag string) *dom.Node {
	return s.Doc.CreateElement(tag)
}

// Text creates a text node.
func (s *Scheduler) Text(data string) *dom.Node {
	return s.Doc.CreateText(data)
}

// Space creates a text node holding one space.
func (s *Scheduler) Space() *dom.Node {
	return s.Text(" ")
}

// Empty creates an empty text node, used as an anchor.
func (s *Scheduler) Empty() *dom.Node {
	return s.Text("")
}

// Insert inserts node into target before anchor.
func Insert(target, node, anchor *dom.Node) {
	target.Insert(node, anchor)
}

// Append appends node to target.
func Append(target, node *dom.Node) {
	target.Append(node)
}

// Detach removes node from its parent.
func Detach(node *dom.Node) {
	node.Remove()
}

// SetData writes text data only when it changed.
func SetData(text *dom.Node, data any) {
	s := toString(data)
	if text.Data != s {
		text.SetData(s)
	}
}

// Attr sets an attribute, or removes it when value is nil. Unchanged
// values are not written.
func Attr(node *dom.Node, name string, value any) {
	if value == nil {
		if _, ok := node.Attribute(name); ok {
			node.RemoveAttribute(name)
		}
		return
	}
	s := toString(value)
	if cur, ok := node.Attribute(name); !ok || cur != s {
		node.SetAttribute(name, s)
	}
}

// Listen adds an event listener and returns its remover.
func Listen(node *dom.Node, event string, handler func(*dom.Event), opts dom.ListenerOptions) func() {
	return node.Listen(event, handler, opts)
}

// SetInputValue writes the value property of an input. Nil writes the
// empty string.
func SetInputValue(input *dom.Node, value any) {
	if value == nil {
		value = ""
	}
	input.SetProperty("value", value)
}

// ToggleClass adds or removes one class of an element.
func ToggleClass(el *dom.Node, name string, toggle bool) {
	cur, _ := el.Attribute("class")
	classes := strings.Fields(cur)
	at := -1
	for i, c := range classes {
		if c == name {
			at = i
			break
		}
	}
	switch {
	case toggle && at < 0:
		classes = append(classes, name)
	case !toggle && at >= 0:
		classes = append(classes[:at], classes[at+1:]...)
	default:
		return
	}
	el.SetAttribute("class", strings.Join(classes, " "))
}

func toString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
