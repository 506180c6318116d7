package dom

import (
	"sveltec-go/packages/compiler/src/output"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

// Wrapper generates the code for one template node.
type Wrapper interface {
	// Render adds the node's code to block. parentNode is the variable of
	// the enclosing DOM element, empty at the root of a block. parentNodes
	// is the child list claimed from when hydrating, empty otherwise.
	Render(block *Block, parentNode, parentNodes string)
	// IsDOMNode reports whether the wrapper renders exactly one DOM node
	// that a following sibling can be inserted before.
	IsDOMNode() bool
	// Var is the variable holding the node, if any.
	Var() string
	base() *wrapperBase
}

type wrapperBase struct {
	r      *Renderer
	block  *Block
	parent Wrapper
	prev   Wrapper
	next   Wrapper
	name   string
}

func (w *wrapperBase) base() *wrapperBase { return w }

func (w *wrapperBase) Var() string { return w.name }

// needsAnchor reports whether a construct that renders a variable number of
// nodes must mount an empty text node to insert before: when there is no
// DOM sibling after it to serve as the insertion point.
func (w *wrapperBase) needsAnchor(parentNode string) bool {
	if w.next != nil {
		return !w.next.IsDOMNode()
	}
	return parentNode == "" || w.parent == nil || !w.parent.IsDOMNode()
}

// reserveAnchor names the node later insertions go before: an empty text
// node mounted after the construct, the next sibling, or null (append) at
// the end of a DOM parent. id is set when the anchor node must be created
// with addAnchor once the construct's own mount code is in place.
func (w *wrapperBase) reserveAnchor(block *Block, parentNode, name string) (expr output.OutputExpression, id string) {
	if w.needsAnchor(parentNode) {
		id = block.UniqueName(name)
		return ref(id), id
	}
	if w.next != nil {
		return ref(w.next.Var()), ""
	}
	return null(), ""
}

func (w *wrapperBase) addAnchor(block *Block, id, parentNode, parentNodes string) {
	if id == "" {
		return
	}
	var claim output.OutputExpression
	if parentNodes != "" {
		claim = call(w.r.helper(Empty))
	}
	block.AddElement(id, call(w.r.helper(Empty)), claim, parentNode, false)
}

// updateMountNode is the node new content is inserted into on update.
func updateMountNode(parentNode string, anchor output.OutputExpression) output.OutputExpression {
	if parentNode != "" {
		return ref(parentNode)
	}
	return prop(anchor, "parentNode")
}

// factory creates the wrapper for each template node kind.
type factory struct {
	r      *Renderer
	block  *Block
	parent Wrapper
	strip  bool
	next   Wrapper
	result Wrapper
}

func (f *factory) VisitElement(el *template.Element) (err error) {
	f.result, err = newElement(f.r, f.block, f.parent, el, f.strip, f.next)
	return err
}

func (f *factory) VisitText(text *template.Text) error {
	f.result = newText(f.r, f.block, f.parent, text, text.Data)
	return nil
}

func (f *factory) VisitMustacheTag(tag *template.MustacheTag) (err error) {
	f.result, err = newMustache(f.r, f.block, f.parent, tag)
	return err
}

func (f *factory) VisitRawMustacheTag(tag *template.RawMustacheTag) (err error) {
	f.result, err = newRawMustache(f.r, f.block, f.parent, tag)
	return err
}

func (f *factory) VisitEachBlock(each *template.EachBlock) (err error) {
	f.result, err = newEachBlock(f.r, f.block, f.parent, each, f.strip, f.next)
	return err
}

func (f *factory) VisitIfBlock(ifBlock *template.IfBlock) (err error) {
	f.result, err = newIfBlock(f.r, f.block, f.parent, ifBlock, f.strip, f.next)
	return err
}

func (f *factory) VisitAwaitBlock(await *template.AwaitBlock) (err error) {
	f.result, err = newAwaitBlock(f.r, f.block, f.parent, await, f.strip, f.next)
	return err
}

func (f *factory) VisitInlineComponent(c *template.InlineComponent) (err error) {
	f.result, err = newInlineComponent(f.r, f.block, f.parent, c, f.strip, f.next)
	return err
}

func (f *factory) VisitSlot(slot *template.Slot) (err error) {
	f.result, err = newSlot(f.r, f.block, f.parent, slot, f.strip, f.next)
	return err
}

func newWrapper(r *Renderer, block *Block, parent Wrapper, node template.Node, strip bool, next Wrapper) (Wrapper, error) {
	if node == nil {
		return nil, util.Errorf(nil, util.ErrUnknownNode, "missing template node")
	}
	f := &factory{r: r, block: block, parent: parent, strip: strip, next: next}
	if err := node.Visit(f); err != nil {
		return nil, err
	}
	if f.result == nil {
		return nil, util.Errorf(node.Span(), util.ErrUnknownNode, "Unknown template node %T", node)
	}
	return f.result, nil
}

// link threads sibling pointers.
func link(prev, next Wrapper) {
	if prev != nil {
		prev.base().next = next
	}
	if next != nil {
		next.base().prev = prev
	}
}
