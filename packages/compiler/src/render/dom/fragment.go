package dom

import (
	"strings"

	"sveltec-go/packages/compiler/src/template"
)

// elementsWithoutText never render whitespace-only text children.
var elementsWithoutText = map[string]bool{
	"audio":    true,
	"datalist": true,
	"dl":       true,
	"optgroup": true,
	"select":   true,
	"video":    true,
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// fragment is the wrapper list of one child list.
type fragment struct {
	nodes []Wrapper
}

// newFragment wraps children. Children are built last to first so that
// every wrapper knows the sibling it renders before; next is that sibling
// for the last child. Adjacent text is merged. Trailing whitespace is
// dropped unless it separates the fragment from following text, and
// leading whitespace is dropped when strip is set.
func newFragment(r *Renderer, block *Block, parent Wrapper, children []template.Node, strip bool, next Wrapper) (*fragment, error) {
	f := &fragment{}
	keep := r.options.PreserveWhitespace || withinPre(parent)

	var last Wrapper
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		text, ok := child.(*template.Text)
		if !ok {
			sibling := last
			if sibling == nil {
				sibling = next
			}
			w, err := newWrapper(r, block, parent, child, strip, sibling)
			if err != nil {
				return nil, err
			}
			f.prepend(w)
			last = w
			continue
		}

		data := text.Data
		if len(f.nodes) == 0 && !keep && trimTrailing(parent, next) {
			data = strings.TrimRightFunc(data, isSpace)
			if data == "" {
				continue
			}
		}
		if lt, ok := last.(*textWrapper); ok {
			lt.data = data + lt.data
			continue
		}
		w := newText(r, block, parent, text, data)
		if w.skip {
			continue
		}
		f.prepend(w)
		last = w
	}

	if strip && !keep && len(f.nodes) > 0 {
		if first, ok := f.nodes[0].(*textWrapper); ok {
			first.data = strings.TrimLeftFunc(first.data, isSpace)
			if first.data == "" {
				first.name = ""
				f.nodes = f.nodes[1:]
				if len(f.nodes) > 0 {
					f.nodes[0].base().prev = nil
				}
			}
		}
	}
	return f, nil
}

func (f *fragment) prepend(w Wrapper) {
	if len(f.nodes) > 0 {
		link(w, f.nodes[0])
	}
	f.nodes = append([]Wrapper{w}, f.nodes...)
}

// trimTrailing reports whether the last text of a fragment loses its
// trailing whitespace. Whitespace before following text is significant
// unless an each block boundary lies between them. At the end of the
// document it only matters inside each blocks, where it separates
// iterations.
func trimTrailing(parent, next Wrapper) bool {
	if next == nil {
		return nearestEach(parent) == nil
	}
	nt, ok := next.(*textWrapper)
	if !ok || nt.data == "" || !isSpace(rune(nt.data[0])) {
		return false
	}
	return nearestEach(next) == nearestEach(parent)
}

func nearestEach(w Wrapper) *eachBlockWrapper {
	for ; w != nil; w = w.base().parent {
		if each, ok := w.(*eachBlockWrapper); ok {
			return each
		}
	}
	return nil
}

// withinPre reports whether whitespace is significant at w.
func withinPre(w Wrapper) bool {
	for ; w != nil; w = w.base().parent {
		if el, ok := w.(*elementWrapper); ok && (el.node.Name == "pre" || el.node.Name == "textarea") {
			return true
		}
	}
	return false
}

// Render renders every child in order.
func (f *fragment) Render(block *Block, parentNode, parentNodes string) {
	for _, node := range f.nodes {
		node.Render(block, parentNode, parentNodes)
	}
}

// isEmpty reports whether the fragment renders nothing.
func (f *fragment) isEmpty() bool {
	return f == nil || len(f.nodes) == 0
}
