package template

import (
	ep "sveltec-go/packages/compiler/src/expression_parser"
	"sveltec-go/packages/compiler/src/util"
)

// Node is the closed set of template node kinds.
type Node interface {
	Span() *util.ParseSourceSpan
	Visit(visitor Visitor) error
	node()
}

// Visitor dispatches over every node kind. Implementations must handle all of
// them; there is no default case.
type Visitor interface {
	VisitElement(el *Element) error
	VisitText(text *Text) error
	VisitMustacheTag(tag *MustacheTag) error
	VisitRawMustacheTag(tag *RawMustacheTag) error
	VisitEachBlock(block *EachBlock) error
	VisitIfBlock(block *IfBlock) error
	VisitAwaitBlock(block *AwaitBlock) error
	VisitInlineComponent(component *InlineComponent) error
	VisitSlot(slot *Slot) error
}

// NodeBase carries the span shared by every node.
type NodeBase struct {
	SourceSpan *util.ParseSourceSpan
}

// Span returns the span of the node
func (n *NodeBase) Span() *util.ParseSourceSpan { return n.SourceSpan }

func (*NodeBase) node() {}

// Element is a DOM element. NeedsScoping is set by the stylesheet pass when a
// selector of the component's style can match it.
type Element struct {
	NodeBase
	Name         string
	Attributes   []AttributeNode
	Children     []Node
	NeedsScoping bool
	Namespace    string
}

func (e *Element) Visit(visitor Visitor) error { return visitor.VisitElement(e) }

// Text is literal character data. Data is already entity-decoded.
type Text struct {
	NodeBase
	Data string
}

func (t *Text) Visit(visitor Visitor) error { return visitor.VisitText(t) }

// IsWhitespace reports whether the text holds only whitespace.
func (t *Text) IsWhitespace() bool {
	for _, r := range t.Data {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '\f' {
			return false
		}
	}
	return true
}

// MustacheTag is `{expression}` in text position.
type MustacheTag struct {
	NodeBase
	Expression ep.Expression
}

func (m *MustacheTag) Visit(visitor Visitor) error { return visitor.VisitMustacheTag(m) }

// RawMustacheTag is `{@html expression}`.
type RawMustacheTag struct {
	NodeBase
	Expression ep.Expression
}

func (m *RawMustacheTag) Visit(visitor Visitor) error { return visitor.VisitRawMustacheTag(m) }

// ElseBlock holds the children of `{:else}`.
type ElseBlock struct {
	NodeBase
	Children []Node
}

// EachBlock is `{#each expression as context, index (key)}...{:else}...{/each}`.
type EachBlock struct {
	NodeBase
	Expression ep.Expression
	Context    *ep.Pattern
	Index      string
	Key        ep.Expression
	Children   []Node
	Else       *ElseBlock
}

func (e *EachBlock) Visit(visitor Visitor) error { return visitor.VisitEachBlock(e) }

// IfBlock is `{#if expression}...{/if}`. An `{:else if}` is represented as an
// ElseBlock holding a single IfBlock with ElseIf set.
type IfBlock struct {
	NodeBase
	Expression ep.Expression
	Children   []Node
	Else       *ElseBlock
	ElseIf     bool
}

func (i *IfBlock) Visit(visitor Visitor) error { return visitor.VisitIfBlock(i) }

// AwaitBranch is one of the pending/then/catch regions of an await block.
type AwaitBranch struct {
	NodeBase
	Children []Node
	Skip     bool
}

// AwaitBlock is `{#await expression}...{:then value}...{:catch error}...{/await}`.
type AwaitBlock struct {
	NodeBase
	Expression ep.Expression
	Value      *ep.Pattern
	Error      *ep.Pattern
	Pending    *AwaitBranch
	Then       *AwaitBranch
	Catch      *AwaitBranch
}

func (a *AwaitBlock) Visit(visitor Visitor) error { return visitor.VisitAwaitBlock(a) }

// InlineComponent is an element whose name refers to another component.
type InlineComponent struct {
	NodeBase
	Name       string
	Attributes []AttributeNode
	Children   []Node
}

func (c *InlineComponent) Visit(visitor Visitor) error { return visitor.VisitInlineComponent(c) }

// Slot is `<slot name="...">fallback</slot>`.
type Slot struct {
	NodeBase
	SlotName   string
	Attributes []AttributeNode
	Children   []Node
}

func (s *Slot) Visit(visitor Visitor) error { return visitor.VisitSlot(s) }

// AttributeNode is the closed set of attribute and directive kinds.
type AttributeNode interface {
	Span() *util.ParseSourceSpan
	VisitAttribute(visitor AttributeVisitor) error
	attribute()
}

// AttributeVisitor dispatches over every attribute kind.
type AttributeVisitor interface {
	VisitAttribute(attr *Attribute) error
	VisitEventHandler(handler *EventHandler) error
	VisitBinding(binding *Binding) error
	VisitTransition(transition *Transition) error
	VisitClass(class *Class) error
	VisitDirective(directive *Directive) error
}

func (*NodeBase) attribute() {}

// AttributeChunk is either static text or an expression within an attribute
// value. Exactly one of Text and Expression is set.
type AttributeChunk struct {
	Text       string
	Expression ep.Expression
	SourceSpan *util.ParseSourceSpan
}

// IsExpression reports whether the chunk is dynamic.
func (c *AttributeChunk) IsExpression() bool { return c.Expression != nil }

// Attribute is a plain attribute. A valueless attribute has IsTrue set.
type Attribute struct {
	NodeBase
	Name   string
	Chunks []*AttributeChunk
	IsTrue bool
}

func (a *Attribute) VisitAttribute(visitor AttributeVisitor) error { return visitor.VisitAttribute(a) }

// IsStatic reports whether the attribute value has no expressions.
func (a *Attribute) IsStatic() bool {
	for _, chunk := range a.Chunks {
		if chunk.IsExpression() {
			return false
		}
	}
	return true
}

// StaticValue concatenates the text chunks.
func (a *Attribute) StaticValue() string {
	var out string
	for _, chunk := range a.Chunks {
		out += chunk.Text
	}
	return out
}

// EventHandler is `on:name|modifiers={expression}`. A nil Expression forwards
// the event.
type EventHandler struct {
	NodeBase
	Name       string
	Modifiers  []string
	Expression ep.Expression
}

func (e *EventHandler) VisitAttribute(visitor AttributeVisitor) error {
	return visitor.VisitEventHandler(e)
}

// Binding is `bind:name={expression}`.
type Binding struct {
	NodeBase
	Name       string
	Expression ep.Expression
}

func (b *Binding) VisitAttribute(visitor AttributeVisitor) error { return visitor.VisitBinding(b) }

// Transition is `transition:`, `in:` or `out:`.
type Transition struct {
	NodeBase
	Name       string
	Expression ep.Expression
	Intro      bool
	Outro      bool
	Local      bool
}

func (t *Transition) VisitAttribute(visitor AttributeVisitor) error {
	return visitor.VisitTransition(t)
}

// Class is `class:name={expression}`. A nil Expression uses the name itself.
type Class struct {
	NodeBase
	Name       string
	Expression ep.Expression
}

func (c *Class) VisitAttribute(visitor AttributeVisitor) error { return visitor.VisitClass(c) }

// Directive is a `type:name` attribute without a dedicated node: use,
// animate, style and let. Code generation reports the types it cannot
// apply where they appear.
type Directive struct {
	NodeBase
	Type       string
	Name       string
	Expression ep.Expression
}

func (d *Directive) VisitAttribute(visitor AttributeVisitor) error {
	return visitor.VisitDirective(d)
}

// VarKind describes how a top-level script name is declared.
type VarKind int

const (
	VarLet VarKind = iota
	VarConst
	VarFunction
	VarImport
	VarStore
)

// Var is one entry of the component's table of top-level names.
type Var struct {
	Name       string
	Kind       VarKind
	Writable   bool
	Exported   bool
	Referenced bool
	SourceSpan *util.ParseSourceSpan
}

// IsReactive reports whether changes to the name must trigger updates.
func (v *Var) IsReactive() bool {
	return v.Kind == VarStore || (v.Writable && v.Kind != VarImport) || v.Exported
}

// Script is the instance script. Content is consumed verbatim apart from the
// edits recorded in Imports and Exports.
type Script struct {
	NodeBase
	Content string
	Offset  int
	Imports []*ScriptRange
	Exports []*ScriptRange
}

// ScriptRange is a byte range of Script.Content with the text that replaces
// it in the generated instance function.
type ScriptRange struct {
	Start       int
	End         int
	Replacement string
	Text        string
}

// Style is the component stylesheet after scoping.
type Style struct {
	NodeBase
	Content string
}

// Component is everything code generation consumes for one component.
type Component struct {
	Name     string
	Filename string
	Source   *util.ParseSourceFile
	Fragment []Node
	Vars     []*Var
	Script   *Script
	Style    *Style
}

// Var looks up a top-level name.
func (c *Component) Var(name string) *Var {
	for _, v := range c.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Walk calls fn for every node in document order, descending into blocks and
// components. Returning false skips the node's children.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *Element:
			Walk(n.Children, fn)
		case *InlineComponent:
			Walk(n.Children, fn)
		case *Slot:
			Walk(n.Children, fn)
		case *EachBlock:
			Walk(n.Children, fn)
			if n.Else != nil {
				Walk(n.Else.Children, fn)
			}
		case *IfBlock:
			Walk(n.Children, fn)
			if n.Else != nil {
				Walk(n.Else.Children, fn)
			}
		case *AwaitBlock:
			for _, branch := range []*AwaitBranch{n.Pending, n.Then, n.Catch} {
				if branch != nil {
					Walk(branch.Children, fn)
				}
			}
		case *Text, *MustacheTag, *RawMustacheTag:
		}
	}
}
